package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/expr"
	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/notify"
	"github.com/hupe1980/dialogmesh/recognizer"
	"github.com/hupe1980/dialogmesh/store"
)

// Config controls turn execution behavior.
type Config struct {
	// RootDialog names the dialog pushed when a turn arrives on an empty
	// stack. When empty, the first registered dialog is used.
	RootDialog string

	// MaxStepsPerTurn bounds the number of steps a single turn may execute
	// before it is faulted. The budget catches runaway loops built from
	// repeatDialog, editSteps, or cyclic event handlers. Zero disables the
	// budget entirely, which is almost never what you want in production.
	MaxStepsPerTurn int

	// IntentThreshold is the minimum recognizer confidence required before
	// an utterance raises recognizedIntent. Results below the threshold
	// raise unknownIntent instead.
	IntentThreshold float64

	// DefaultLocale is applied when the inbound activity does not carry a
	// locale of its own. It flows into recognition and response generation.
	DefaultLocale string
}

// DefaultConfig provides sensible defaults for turn execution.
var DefaultConfig = Config{
	MaxStepsPerTurn: 1000,
	IntentThreshold: 0.5,
	DefaultLocale:   "en-us",
}

// Options configures the engine's collaborators. Every field has a working
// default so a bare New() yields a usable in-memory engine; production
// deployments swap in durable stores, real recognizers, and observers.
type Options struct {
	// Config controls execution limits and recognition thresholds.
	Config Config

	// Registry holds the dialog definitions turns execute against.
	Registry *core.Registry

	// Store persists conversation state between turns.
	Store core.ConversationStore

	// Recognizer classifies message utterances into intents. When nil,
	// inbound messages raise activityReceived instead of intent events.
	Recognizer recognizer.Recognizer

	// Generator renders sendOutput and prompt templates.
	Generator lg.Generator

	// Evaluator evaluates step expressions and rule guard conditions.
	Evaluator expr.Evaluator

	// Logger receives structured execution logs.
	Logger logging.Logger

	// Notifier receives lifecycle notifications for external observers.
	Notifier notify.Notifier
}

// Engine executes conversation turns against a registry of dialog
// definitions. Each turn loads the conversation's state, classifies the
// inbound activity into an engine event, selects and runs handler steps,
// and persists the resulting state in a single save.
//
// The engine itself is stateless between calls; all conversation state
// lives in the ConversationStore. It is safe for concurrent use across
// different conversation keys, but callers must serialize turns that share
// a key. The Runner provides that serialization.
type Engine struct {
	config     Config
	registry   *core.Registry
	store      core.ConversationStore
	recognizer recognizer.Recognizer
	generator  lg.Generator
	evaluator  expr.Evaluator
	logger     logging.Logger
	notifier   notify.Notifier
}

// Compile-time check that Engine satisfies core.TurnProcessor.
var _ core.TurnProcessor = (*Engine)(nil)

// New creates an engine with the given options applied over defaults.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:    DefaultConfig,
		Registry:  core.NewRegistry(),
		Store:     store.NewInMemory(),
		Generator: lg.NewTemplateGenerator(),
		Evaluator: expr.NewTemplateEvaluator(),
		Logger:    logging.NoOpLogger{},
		Notifier:  notify.NoOp{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		config:     opts.Config,
		registry:   opts.Registry,
		store:      opts.Store,
		recognizer: opts.Recognizer,
		generator:  opts.Generator,
		evaluator:  opts.Evaluator,
		logger:     opts.Logger,
		notifier:   opts.Notifier,
	}
}

// ProcessTurn implements core.TurnProcessor. It executes one full turn for
// the conversation: load state, run the inbound activity to a clean
// boundary, persist, and return the collected responses.
//
// Persistence is all-or-nothing. State is saved exactly once, after the
// turn reaches a clean boundary; a fault anywhere during execution returns
// the error and leaves the stored state untouched, so the conversation can
// retry the turn from its previous snapshot.
func (e *Engine) ProcessTurn(ctx context.Context, conversationKey string, activity core.Activity) (*core.TurnResult, error) {
	start := time.Now()

	state, err := e.store.Load(ctx, conversationKey)
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", conversationKey, err)
	}

	if state == nil {
		state = core.NewConversationState()
	}

	state.TurnCount++

	limiter := core.NewStepLimiter(e.config.MaxStepsPerTurn)
	tc := core.NewTurnContext(ctx, conversationKey, activity, limiter)

	e.logger.Debug("Turn started", "conversation_key", conversationKey, "turn_id", tc.TurnID, "activity_type", string(activity.Type))

	if err := e.notifier.Emit(notify.TurnStarted, conversationKey, &notify.TurnStartedData{
		TurnID:       tc.TurnID,
		ActivityType: string(activity.Type),
	}); err != nil {
		e.logger.Warn("Notification failed", "type", string(notify.TurnStarted), "error", err)
	}

	t := newTurn(e, tc, state)

	outcome, err := t.run()
	if err != nil {
		e.logger.Error("Turn faulted", "conversation_key", conversationKey, "turn_id", tc.TurnID, "error", err)

		if emitErr := e.notifier.Emit(notify.TurnFaulted, conversationKey, &notify.TurnFaultedData{
			TurnID: tc.TurnID,
			Error:  err.Error(),
		}); emitErr != nil {
			e.logger.Warn("Notification failed", "type", string(notify.TurnFaulted), "error", emitErr)
		}

		return nil, err
	}

	if outcome == core.TurnStackCompleted {
		// The conversation's dialog tree is gone; signal the channel so it
		// can close out the exchange. User and conversation scopes survive
		// for the next conversation start.
		tc.AddResponse(core.Activity{Type: core.ActivityEndOfConversation})
	}

	if err := e.store.Save(ctx, conversationKey, state); err != nil {
		return nil, fmt.Errorf("save conversation %q: %w", conversationKey, err)
	}

	result := &core.TurnResult{
		TurnID:    tc.TurnID,
		Outcome:   outcome,
		Responses: tc.Responses(),
	}

	e.logger.Info("Turn completed",
		"conversation_key", conversationKey,
		"turn_id", tc.TurnID,
		"outcome", string(outcome),
		"steps", limiter.Count(),
		"responses", len(result.Responses),
		"duration", time.Since(start),
	)

	if err := e.notifier.Emit(notify.TurnCompleted, conversationKey, &notify.TurnCompletedData{
		TurnID:    tc.TurnID,
		Outcome:   string(outcome),
		Responses: len(result.Responses),
		Steps:     limiter.Count(),
	}); err != nil {
		e.logger.Warn("Notification failed", "type", string(notify.TurnCompleted), "error", err)
	}

	return result, nil
}

// rootDialog resolves the definition used to start a fresh conversation.
func (e *Engine) rootDialog() (*core.Dialog, error) {
	id := e.config.RootDialog
	if id == "" {
		ids := e.registry.IDs()
		if len(ids) == 0 {
			return nil, core.NewConfigurationError("", "no dialogs registered")
		}

		id = ids[0]
	}

	def, ok := e.registry.Get(id)
	if !ok {
		return nil, core.NewConfigurationError(id, "root dialog not registered")
	}

	return def, nil
}
