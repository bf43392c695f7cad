package notify

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of notification flowing out of the engine.
type Type string

const (
	TurnStarted    Type = "turn.started"
	TurnCompleted  Type = "turn.completed"
	TurnFaulted    Type = "turn.faulted"
	OutputSent     Type = "output.sent"
	DialogStarted  Type = "dialog.started"
	DialogEnded    Type = "dialog.ended"
	RuleSelected   Type = "rule.selected"
	EventDropped   Type = "event.dropped"
	InputRequested Type = "input.requested"
)

// Envelope is the standard notification wrapper delivered to subscribers.
type Envelope struct {
	ID              string            `json:"id"`
	Type            Type              `json:"type"`
	Source          string            `json:"source"`
	ConversationKey string            `json:"conversation_key"`
	Timestamp       time.Time         `json:"timestamp"`
	Data            json.RawMessage   `json:"data"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// TurnStartedData is the payload for turn.started notifications.
type TurnStartedData struct {
	TurnID       string `json:"turn_id"`
	ActivityType string `json:"activity_type"`
}

// TurnCompletedData is the payload for turn.completed notifications.
type TurnCompletedData struct {
	TurnID    string `json:"turn_id"`
	Outcome   string `json:"outcome"`
	Responses int    `json:"responses"`
	Steps     int    `json:"steps"`
}

// TurnFaultedData is the payload for turn.faulted notifications.
type TurnFaultedData struct {
	TurnID string `json:"turn_id"`
	Error  string `json:"error"`
}

// OutputSentData is the payload for output.sent notifications.
type OutputSentData struct {
	Dialog string `json:"dialog"`
	Text   string `json:"text"`
}

// DialogStartedData is the payload for dialog.started notifications.
type DialogStartedData struct {
	Dialog string `json:"dialog"`
	Depth  int    `json:"depth"`
}

// DialogEndedData is the payload for dialog.ended notifications.
type DialogEndedData struct {
	Dialog string `json:"dialog"`
	Depth  int    `json:"depth"`
}

// RuleSelectedData is the payload for rule.selected notifications.
type RuleSelectedData struct {
	Dialog string `json:"dialog"`
	Rule   string `json:"rule"`
	Event  string `json:"event"`
}

// EventDroppedData is the payload when an event exhausts propagation
// without any dialog consuming it.
type EventDroppedData struct {
	Event  string `json:"event"`
	Intent string `json:"intent,omitempty"`
}

// InputRequestedData is the payload for input.requested notifications.
type InputRequestedData struct {
	Dialog   string `json:"dialog"`
	Property string `json:"property"`
}
