package core

import (
	"context"
	"encoding/json"
)

// TurnOutcome reports how a turn reached its clean boundary.
type TurnOutcome string

const (
	// TurnSuspended means the conversation awaits the next inbound activity:
	// an input step is pending or the stack parked mid-sequence.
	TurnSuspended TurnOutcome = "suspended"
	// TurnStackCompleted means the root dialog ended. The dialog tree is
	// gone; user and conversation memory persist.
	TurnStackCompleted TurnOutcome = "stackCompleted"
)

// TurnResult is returned to the transport-facing caller after a clean turn.
type TurnResult struct {
	TurnID    string      `json:"turnId"`
	Outcome   TurnOutcome `json:"outcome"`
	Responses []Activity  `json:"responses,omitempty"`
}

// TurnContext is the typed per-turn carrier: the inbound activity, the turn
// scope document, and the outbound responses accumulated while steps run. It
// exists for exactly one ProcessTurn call and is never persisted.
type TurnContext struct {
	ConversationKey string
	TurnID          string
	Activity        Activity
	Turn            json.RawMessage

	ctx       context.Context
	limiter   *StepLimiter
	responses []Activity
}

// NewTurnContext creates the carrier for one turn.
func NewTurnContext(ctx context.Context, conversationKey string, activity Activity, limiter *StepLimiter) *TurnContext {
	if ctx == nil {
		ctx = context.Background()
	}

	return &TurnContext{
		ConversationKey: conversationKey,
		TurnID:          NewID(),
		Activity:        activity,
		ctx:             ctx,
		limiter:         limiter,
	}
}

// Context returns the context the turn runs under.
func (tc *TurnContext) Context() context.Context {
	return tc.ctx
}

// Limiter returns the per-turn step budget.
func (tc *TurnContext) Limiter() *StepLimiter {
	return tc.limiter
}

// AddResponse queues an outbound activity for delivery after the turn.
func (tc *TurnContext) AddResponse(a Activity) {
	tc.responses = append(tc.responses, a)
}

// Responses returns a copy of the queued outbound activities.
func (tc *TurnContext) Responses() []Activity {
	out := make([]Activity, len(tc.responses))
	copy(out, tc.responses)

	return out
}
