package core

import "fmt"

// Rule pairs a trigger with the steps to run when the rule wins selection
// for an event. A trigger combines an optional event name, an optional
// intent (matching recognizedIntent events carrying it), and an optional
// guard condition evaluated against memory. Rules are immutable dialog
// configuration; their registration order breaks selection ties.
type Rule struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Event     string `json:"event,omitempty" yaml:"event,omitempty"`
	Intent    string `json:"intent,omitempty" yaml:"intent,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Priority  int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Steps     []Step `json:"steps" yaml:"steps"`
}

// Specificity scores how narrowly the trigger is drawn: a rule naming a
// concrete intent or event outranks a catch-all at equal priority.
func (r Rule) Specificity() int {
	if r.Intent != "" || r.Event != "" {
		return 1
	}

	return 0
}

// Label returns the rule's name, or a trigger-derived fallback for logs.
func (r Rule) Label() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Intent != "":
		return "intent:" + r.Intent
	case r.Event != "":
		return "event:" + r.Event
	default:
		return "catch-all"
	}
}

// Validate checks that the rule has steps and a coherent trigger.
func (r Rule) Validate() error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("rule %s has no steps", r.Label())
	}

	if r.Intent != "" && r.Event != "" && r.Event != EventRecognizedIntent {
		return fmt.Errorf("rule %s: intent triggers match %s events, not %q", r.Label(), EventRecognizedIntent, r.Event)
	}

	return validateSteps("steps", r.Steps)
}
