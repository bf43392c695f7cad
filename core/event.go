package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Built-in event names raised by the engine itself. Rules may additionally
// trigger on any custom name raised by emit-event steps.
const (
	// EventBeginDialog fires against a dialog's rules when an instance of it
	// is pushed and the definition has no begin steps.
	EventBeginDialog = "beginDialog"
	// EventActivityReceived fires for an inbound activity that produced no
	// recognition result (no recognizer configured, or a non-message
	// activity without a name).
	EventActivityReceived = "activityReceived"
	// EventRecognizedIntent fires when the recognizer returned a confident
	// intent for the inbound utterance.
	EventRecognizedIntent = "recognizedIntent"
	// EventUnknownIntent fires when recognition ran but produced no
	// confident match.
	EventUnknownIntent = "unknownIntent"
)

// Event is the unit offered to rule sets during a turn: a name, an optional
// intent for recognition events, an optional payload, and a flag deciding
// whether the event propagates to ancestor dialogs when unconsumed.
type Event struct {
	Name   string `json:"name"`
	Intent string `json:"intent,omitempty"`
	Value  any    `json:"value,omitempty"`
	Bubble bool   `json:"bubble,omitempty"`
}

// NewEvent creates a non-bubbling event with the given name and payload.
func NewEvent(name string, value any) Event {
	return Event{Name: name, Value: value}
}

// Copy returns an independent event whose payload shares no mutable data
// with the receiver. Each propagation hop inspects its own copy, so a
// handler mutating the payload cannot leak the change to other handlers.
func (e Event) Copy() Event {
	return Event{Name: e.Name, Intent: e.Intent, Value: CopyValue(e.Value), Bubble: e.Bubble}
}

// CopyValue deep-copies JSON-shaped values (maps, slices). Scalars are
// returned as-is; values that do not survive a JSON round trip fall back to
// the original.
func CopyValue(v any) any {
	switch v.(type) {
	case nil, bool, string, int, int64, float64, json.Number:
		return v
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}

	return out
}

// NewID generates a new unique identifier for dialog instances and turns.
func NewID() string {
	return uuid.NewString()
}
