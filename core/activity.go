package core

import "encoding/json"

// ActivityType discriminates the kinds of activities exchanged with the
// transport layer.
type ActivityType string

const (
	// ActivityMessage carries user-visible text.
	ActivityMessage ActivityType = "message"
	// ActivityEvent carries a named signal with an optional structured value.
	ActivityEvent ActivityType = "event"
	// ActivityEndOfConversation signals that the dialog stack completed and
	// the conversation has no active dialogs left.
	ActivityEndOfConversation ActivityType = "endOfConversation"
)

// Activity is the unit exchanged with the transport: inbound user utterances
// and signals, outbound engine responses. The engine reads the typed fields
// only; ChannelData is an opaque blob owned by the transport.
type Activity struct {
	Type        ActivityType    `json:"type" yaml:"type"`
	Text        string          `json:"text,omitempty" yaml:"text,omitempty"`
	Locale      string          `json:"locale,omitempty" yaml:"locale,omitempty"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Value       any             `json:"value,omitempty" yaml:"value,omitempty"`
	ChannelData json.RawMessage `json:"channelData,omitempty" yaml:"-"`
}

// NewMessageActivity creates an inbound or outbound message activity.
func NewMessageActivity(text string) Activity {
	return Activity{Type: ActivityMessage, Text: text}
}

// NewEventActivity creates a named event activity with an optional value.
func NewEventActivity(name string, value any) Activity {
	return Activity{Type: ActivityEvent, Name: name, Value: value}
}
