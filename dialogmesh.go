// Package dialogmesh provides a high-level façade over the turn engine and
// its collaborators (dialog registry, conversation store, recognizer,
// generation & notification) enabling rapid construction of declarative,
// turn-based bots. Most applications interact with this package by:
//  1. Creating a DialogMesh via New() (optionally overriding default in-memory services)
//  2. Registering one or more dialog definitions (in code or loaded from YAML)
//  3. Driving turns with ProcessText, ProcessEvent, or ProcessTurn
//
// The façade delegates execution to engine.Engine wrapped in a runner.Runner,
// so turns sharing a conversation key are serialized automatically. All
// defaults are safe for local development and testing; production deployments
// typically supply a durable conversation store and a structured logger.
package dialogmesh

import (
	"context"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/engine"
	"github.com/hupe1980/dialogmesh/expr"
	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/loader"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/notify"
	"github.com/hupe1980/dialogmesh/recognizer"
	"github.com/hupe1980/dialogmesh/runner"
)

// Options configures the DialogMesh instance.
type Options struct {
	// Engine configuration (step budget, root dialog, recognition threshold)
	EngineConfig engine.Config

	// MaxConcurrentTurns limits the number of turns that can execute
	// simultaneously across all conversations. Turns for the same
	// conversation are always serialized regardless of this bound. Set to
	// 0 for unlimited (not recommended).
	MaxConcurrentTurns int64

	// Store persists conversation state (defaults to in-memory if not provided)
	Store core.ConversationStore

	// Recognizer classifies utterances into intents (optional; without one,
	// messages raise activityReceived events)
	Recognizer recognizer.Recognizer

	// Generator renders output templates (defaults to text/template)
	Generator lg.Generator

	// Evaluator evaluates expressions and rule conditions (defaults to text/template)
	Evaluator expr.Evaluator

	// Notifier observes turn and dialog lifecycle (defaults to NoOp)
	Notifier notify.Notifier

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// DialogMesh is the high-level façade aggregating the engine, the runner,
// and the dialog registry.
type DialogMesh struct {
	opts     Options
	registry *core.Registry
	runner   *runner.Runner
}

// New creates a new DialogMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *DialogMesh {
	opts := Options{
		EngineConfig:       engine.DefaultConfig,
		MaxConcurrentTurns: 10,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := core.NewRegistry()

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Registry = registry

		if opts.Store != nil {
			o.Store = opts.Store
		}

		if opts.Recognizer != nil {
			o.Recognizer = opts.Recognizer
		}

		if opts.Generator != nil {
			o.Generator = opts.Generator
		}

		if opts.Evaluator != nil {
			o.Evaluator = opts.Evaluator
		}

		if opts.Notifier != nil {
			o.Notifier = opts.Notifier
		}

		o.Logger = opts.Logger
	})

	r := runner.New(e, func(o *runner.Options) {
		o.MaxConcurrentTurns = opts.MaxConcurrentTurns
		o.Logger = opts.Logger
	})

	return &DialogMesh{opts: opts, registry: registry, runner: r}
}

// RegisterDialog adds a dialog definition to the registry.
func (m *DialogMesh) RegisterDialog(d *core.Dialog) error { return m.registry.Add(d) }

// RegisterDialogs adds several definitions, stopping at the first failure.
func (m *DialogMesh) RegisterDialogs(dialogs ...*core.Dialog) error {
	for _, d := range dialogs {
		if err := m.registry.Add(d); err != nil {
			return err
		}
	}

	return m.registry.Validate()
}

// LoadDialogDir loads every YAML dialog file in dir into the registry,
// replacing whatever was registered before.
func (m *DialogMesh) LoadDialogDir(dir string) error {
	return loader.LoadDirInto(dir, m.registry)
}

// WatchDialogDir loads dir and then hot-reloads the registry whenever its
// dialog files change, until ctx is canceled. It blocks; run it in its own
// goroutine.
func (m *DialogMesh) WatchDialogDir(ctx context.Context, dir string) error {
	w := loader.NewWatcher(dir, m.registry, func(o *loader.WatcherOptions) {
		o.Logger = m.opts.Logger
	})

	return w.Run(ctx)
}

// Registry exposes the underlying dialog registry for advanced wiring, such
// as sharing it with a custom loader.
func (m *DialogMesh) Registry() *core.Registry { return m.registry }

// ProcessTurn runs one turn for the given inbound activity.
func (m *DialogMesh) ProcessTurn(ctx context.Context, conversationKey string, activity core.Activity) (*core.TurnResult, error) {
	return m.runner.ProcessTurn(ctx, conversationKey, activity)
}

// ProcessText runs one turn for a plain user utterance.
func (m *DialogMesh) ProcessText(ctx context.Context, conversationKey, text string) (*core.TurnResult, error) {
	return m.runner.ProcessText(ctx, conversationKey, text)
}

// ProcessEvent runs one turn for a named external event.
func (m *DialogMesh) ProcessEvent(ctx context.Context, conversationKey, name string, value any) (*core.TurnResult, error) {
	return m.runner.ProcessEvent(ctx, conversationKey, name, value)
}
