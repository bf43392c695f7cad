package core

import "context"

// TurnProcessor drives one conversation turn from an inbound activity to a
// clean boundary.
//
// Implementations MUST:
//   - Load the conversation snapshot for the key, or start fresh when none
//     exists
//   - Run steps until the turn suspends or the dialog stack completes
//   - Persist the snapshot only at a clean boundary; a faulted turn leaves
//     the previous snapshot untouched
//   - Surface faults as errors to the caller
//
// Callers MUST serialize ProcessTurn calls for the same conversation key;
// different keys may run concurrently.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, conversationKey string, activity Activity) (*TurnResult, error)
}
