package runner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxConcurrentTurns bounds the number of turns executing at once
	// across all conversations. Zero or negative means no bound.
	MaxConcurrentTurns int64

	// Logger receives runner-level logs.
	Logger logging.Logger
}

// Runner serializes turns per conversation key and bounds global turn
// concurrency. Public methods are safe for concurrent use.
type Runner struct {
	processor core.TurnProcessor
	logger    logging.Logger
	sem       *semaphore.Weighted

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock is reference-counted so the lock table shrinks back once
// a conversation has no queued turns.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// Compile-time check that Runner satisfies core.TurnProcessor.
var _ core.TurnProcessor = (*Runner)(nil)

// New wraps a turn processor, usually an engine, with per-conversation
// serialization.
func New(processor core.TurnProcessor, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentTurns: 10,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		processor: processor,
		logger:    opts.Logger,
		locks:     make(map[string]*conversationLock),
	}

	if opts.MaxConcurrentTurns > 0 {
		r.sem = semaphore.NewWeighted(opts.MaxConcurrentTurns)
	}

	return r
}

// ProcessTurn implements core.TurnProcessor. Turns sharing a conversation
// key run strictly in arrival-of-lock order; turns for different keys run
// in parallel up to MaxConcurrentTurns.
func (r *Runner) ProcessTurn(ctx context.Context, conversationKey string, activity core.Activity) (*core.TurnResult, error) {
	lock := r.checkout(conversationKey)
	defer r.checkin(conversationKey, lock)

	lock.mu.Lock()
	defer lock.mu.Unlock()

	// The global slot is taken after the key lock so turns queued behind
	// the same conversation do not starve other conversations.
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire turn slot: %w", err)
		}
		defer r.sem.Release(1)
	}

	r.logger.Debug("Processing turn", "conversation_key", conversationKey, "activity_type", string(activity.Type))

	return r.processor.ProcessTurn(ctx, conversationKey, activity)
}

// ProcessText runs one turn for a plain user utterance.
func (r *Runner) ProcessText(ctx context.Context, conversationKey, text string) (*core.TurnResult, error) {
	return r.ProcessTurn(ctx, conversationKey, core.NewMessageActivity(text))
}

// ProcessEvent runs one turn for a named external event.
func (r *Runner) ProcessEvent(ctx context.Context, conversationKey, name string, value any) (*core.TurnResult, error) {
	return r.ProcessTurn(ctx, conversationKey, core.NewEventActivity(name, value))
}

func (r *Runner) checkout(key string) *conversationLock {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[key]
	if !ok {
		lock = &conversationLock{}
		r.locks[key] = lock
	}

	lock.refs++

	return lock
}

func (r *Runner) checkin(key string, lock *conversationLock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(r.locks, key)
	}
}
