package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// ConversationState is the persistable snapshot of one conversation: the
// dialog stack with its cursors and dialog scopes, plus the long-lived user
// and conversation memory documents. Turn scope is deliberately absent; it
// dies with the turn.
type ConversationState struct {
	Stack        DialogStack     `json:"stack,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
	Conversation json.RawMessage `json:"conversation,omitempty"`
	TurnCount    int             `json:"turnCount,omitempty"`
}

// NewConversationState creates an empty snapshot: no stack, no memory.
func NewConversationState() *ConversationState {
	return &ConversationState{}
}

// Clone returns a deep copy safe for independent mutation. Stores hand out
// clones so a faulted turn cannot corrupt the persisted snapshot.
func (s *ConversationState) Clone() (*ConversationState, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation state: %w", err)
	}

	var out ConversationState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}

	return &out, nil
}

// ConversationStore persists conversation snapshots keyed by an opaque
// conversation key.
//
// Implementations MUST:
//   - Return (nil, nil) from Load when no snapshot exists for the key
//   - Make Save atomic per key: a concurrent reader sees either the previous
//     snapshot or the new one, never a mix
//   - Be safe for concurrent use across keys
//
// Serializing turns for the same key is the caller's responsibility.
type ConversationStore interface {
	Load(ctx context.Context, key string) (*ConversationState, error)
	Save(ctx context.Context, key string, state *ConversationState) error
	Delete(ctx context.Context, key string) error
}
