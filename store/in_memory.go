package store

import (
	"context"
	"sync"

	"github.com/hupe1980/dialogmesh/core"
)

// InMemory is a volatile ConversationStore implementation storing snapshots
// in a process local map. It is safe for concurrent access and best suited
// for tests or ephemeral demo bots. Snapshots are cloned on the way in and
// out to prevent external mutation of stored state.
type InMemory struct {
	mu     sync.RWMutex
	states map[string]*core.ConversationState
}

// NewInMemory constructs an empty in-memory conversation store.
func NewInMemory() *InMemory {
	return &InMemory{states: make(map[string]*core.ConversationState)}
}

var _ core.ConversationStore = (*InMemory)(nil)

// Load returns a clone of the stored snapshot, or (nil, nil) when the key is
// unknown.
func (s *InMemory) Load(_ context.Context, key string) (*core.ConversationState, error) {
	s.mu.RLock()
	state, ok := s.states[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	return state.Clone()
}

// Save stores a clone of the snapshot under key.
func (s *InMemory) Save(_ context.Context, key string, state *core.ConversationState) error {
	clone, err := state.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.states[key] = clone
	s.mu.Unlock()

	return nil
}

// Delete removes the snapshot for key. Unknown keys are a no-op.
func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.states, key)
	s.mu.Unlock()

	return nil
}
