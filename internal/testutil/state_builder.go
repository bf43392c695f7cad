package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/dialogmesh/core"
)

// StateBuilder helps construct conversation snapshots with fluent chaining
// for store tests. Example:
//
//	state := NewStateBuilder().
//		User(map[string]any{"name": "Ada"}).
//		Instance("order").
//		TurnCount(3).
//		Build()
type StateBuilder struct {
	state *core.ConversationState
}

// NewStateBuilder creates a builder over an empty snapshot.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{state: core.NewConversationState()}
}

// User sets the user scope document (chainable). Panics on unmarshalable
// input; builders are test-only.
func (b *StateBuilder) User(doc any) *StateBuilder {
	b.state.User = mustJSON(doc)
	return b
}

// Conversation sets the conversation scope document (chainable).
func (b *StateBuilder) Conversation(doc any) *StateBuilder {
	b.state.Conversation = mustJSON(doc)
	return b
}

// Instance pushes a fresh instance of the named dialog (chainable).
func (b *StateBuilder) Instance(dialog string) *StateBuilder {
	b.state.Stack.Push(core.NewDialogInstance(dialog))
	return b
}

// Push pushes a prepared instance, cursor and all (chainable).
func (b *StateBuilder) Push(inst *core.DialogInstance) *StateBuilder {
	b.state.Stack.Push(inst)
	return b
}

// TurnCount sets the completed-turn counter (chainable).
func (b *StateBuilder) TurnCount(n int) *StateBuilder {
	b.state.TurnCount = n
	return b
}

// Build returns the assembled snapshot.
func (b *StateBuilder) Build() *core.ConversationState {
	return b.state
}

func mustJSON(doc any) json.RawMessage {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal scope document: %v", err))
	}

	return raw
}
