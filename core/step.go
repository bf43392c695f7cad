package core

import "fmt"

// StepKind enumerates the executable step vocabulary. Steps are data: a
// dialog definition carries step lists, and the executor dispatches on Kind.
// Unknown kinds fault as configuration errors, keeping the vocabulary closed
// to the executor while the definitions stay serializable.
type StepKind string

const (
	// StepSendOutput resolves a template through the language generator and
	// queues the result as an outbound message activity.
	StepSendOutput StepKind = "sendOutput"
	// StepSetProperty writes a literal value or an evaluated expression to a
	// memory path.
	StepSetProperty StepKind = "setProperty"
	// StepDeleteProperty removes a memory path.
	StepDeleteProperty StepKind = "deleteProperty"
	// StepIf selects between the Then and Else lists on a condition.
	StepIf StepKind = "if"
	// StepSwitch compares a scrutinee against case literals and runs the
	// first matching case, or Default when none match.
	StepSwitch StepKind = "switch"
	// StepForeach runs its nested steps once per element of a source
	// sequence, binding value and index into memory each iteration.
	StepForeach StepKind = "foreach"
	// StepForeachPage runs its nested steps once per contiguous page of a
	// source sequence, binding the page slice into memory each iteration.
	StepForeachPage StepKind = "foreachPage"
	// StepBeginDialog pushes a child dialog instance and transfers control
	// to it; the parent cursor parks until the child ends.
	StepBeginDialog StepKind = "beginDialog"
	// StepReplaceDialog pops the current instance, discarding its state, and
	// pushes a fresh instance of the named dialog in its place.
	StepReplaceDialog StepKind = "replaceDialog"
	// StepEndDialog pops the current instance, optionally returning a result
	// value into the caller's scope.
	StepEndDialog StepKind = "endDialog"
	// StepRepeatDialog restarts the current dialog from its first step while
	// keeping the accumulated dialog scope.
	StepRepeatDialog StepKind = "repeatDialog"
	// StepEndTurn suspends the turn; the next inbound activity resumes at
	// the following step.
	StepEndTurn StepKind = "endTurn"
	// StepEmitEvent raises an event against the current dialog's rules,
	// propagating to ancestors when Bubble is set.
	StepEmitEvent StepKind = "emitEvent"
	// StepEditSteps rewrites the currently executing step list.
	StepEditSteps StepKind = "editSteps"
	// StepTextInput prompts, suspends the turn, and binds the next inbound
	// utterance to a property.
	StepTextInput StepKind = "textInput"
)

// ChangeType selects how StepEditSteps rewrites the current step list.
type ChangeType string

const (
	// ChangeReplaceSequence discards the rest of the current list and
	// substitutes Steps, starting over at position 0.
	ChangeReplaceSequence ChangeType = "replaceSequence"
	// ChangeInsertSteps splices Steps in front of the next pending step.
	ChangeInsertSteps ChangeType = "insertSteps"
	// ChangeAppendSteps adds Steps after the last pending step.
	ChangeAppendSteps ChangeType = "appendSteps"
)

// Step is the tagged variant over all step kinds: Kind selects which fields
// apply and everything else is ignored. A single flat struct keeps dialog
// definitions serializable for YAML configuration and persisted cursors
// without a custom codec per kind.
type Step struct {
	Kind StepKind `json:"kind" yaml:"kind"`

	// sendOutput
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// setProperty, deleteProperty, switch, textInput
	Property   string `json:"property,omitempty" yaml:"property,omitempty"`
	Value      any    `json:"value,omitempty" yaml:"value,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`

	// if
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Then      []Step `json:"then,omitempty" yaml:"then,omitempty"`
	Else      []Step `json:"else,omitempty" yaml:"else,omitempty"`

	// switch
	Cases   []SwitchCase `json:"cases,omitempty" yaml:"cases,omitempty"`
	Default []Step       `json:"default,omitempty" yaml:"default,omitempty"`

	// foreach, foreachPage
	Items         string `json:"items,omitempty" yaml:"items,omitempty"`
	ValueProperty string `json:"valueProperty,omitempty" yaml:"valueProperty,omitempty"`
	IndexProperty string `json:"indexProperty,omitempty" yaml:"indexProperty,omitempty"`
	PageProperty  string `json:"pageProperty,omitempty" yaml:"pageProperty,omitempty"`
	PageSize      int    `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`

	// beginDialog, replaceDialog
	Dialog         string         `json:"dialog,omitempty" yaml:"dialog,omitempty"`
	Options        map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	ResultProperty string         `json:"resultProperty,omitempty" yaml:"resultProperty,omitempty"`

	// emitEvent
	Event  string `json:"event,omitempty" yaml:"event,omitempty"`
	Bubble bool   `json:"bubble,omitempty" yaml:"bubble,omitempty"`

	// editSteps
	Change ChangeType `json:"change,omitempty" yaml:"change,omitempty"`
	Steps  []Step     `json:"steps,omitempty" yaml:"steps,omitempty"`

	// textInput
	Prompt       string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	AlwaysPrompt bool   `json:"alwaysPrompt,omitempty" yaml:"alwaysPrompt,omitempty"`
}

// SwitchCase pairs a literal with the steps to run when the scrutinee
// matches it. Matching compares canonical string forms, see CanonicalString.
type SwitchCase struct {
	Value string `json:"value" yaml:"value"`
	Steps []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Validate checks the kind-specific parameters of a single step. Nested step
// lists are validated recursively by ValidateSteps.
func (s Step) Validate() error {
	switch s.Kind {
	case StepSendOutput:
		if s.Output == "" {
			return fmt.Errorf("sendOutput requires output")
		}
	case StepSetProperty:
		if s.Property == "" {
			return fmt.Errorf("setProperty requires property")
		}

		if s.Value == nil && s.Expression == "" {
			return fmt.Errorf("setProperty %q requires value or expression", s.Property)
		}
	case StepDeleteProperty:
		if s.Property == "" {
			return fmt.Errorf("deleteProperty requires property")
		}
	case StepIf:
		if s.Condition == "" {
			return fmt.Errorf("if requires condition")
		}
	case StepSwitch:
		if s.Property == "" && s.Expression == "" {
			return fmt.Errorf("switch requires property or expression")
		}

		if len(s.Cases) == 0 && len(s.Default) == 0 {
			return fmt.Errorf("switch requires cases or default")
		}
	case StepForeach:
		if s.Items == "" {
			return fmt.Errorf("foreach requires items")
		}
	case StepForeachPage:
		if s.Items == "" {
			return fmt.Errorf("foreachPage requires items")
		}

		if s.PageSize <= 0 {
			return fmt.Errorf("foreachPage requires a positive pageSize")
		}
	case StepBeginDialog, StepReplaceDialog:
		if s.Dialog == "" {
			return fmt.Errorf("%s requires dialog", s.Kind)
		}
	case StepEndDialog, StepRepeatDialog, StepEndTurn:
		// no required parameters
	case StepEmitEvent:
		if s.Event == "" {
			return fmt.Errorf("emitEvent requires event")
		}
	case StepEditSteps:
		switch s.Change {
		case ChangeReplaceSequence, ChangeInsertSteps, ChangeAppendSteps:
		case "":
			return fmt.Errorf("editSteps requires change")
		default:
			return fmt.Errorf("editSteps has unknown change %q", s.Change)
		}
	case StepTextInput:
		if s.Prompt == "" {
			return fmt.Errorf("textInput requires prompt")
		}

		if s.Property == "" {
			return fmt.Errorf("textInput requires property")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}

	return nil
}

// ValidateSteps validates a step list recursively, reporting the path of the
// offending step, e.g. "steps[2].then[0]".
func ValidateSteps(steps []Step) error {
	return validateSteps("steps", steps)
}

func validateSteps(path string, steps []Step) error {
	for i, s := range steps {
		at := fmt.Sprintf("%s[%d]", path, i)

		if err := s.Validate(); err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}

		if err := validateNested(at, s); err != nil {
			return err
		}
	}

	return nil
}

func validateNested(at string, s Step) error {
	if err := validateSteps(at+".then", s.Then); err != nil {
		return err
	}

	if err := validateSteps(at+".else", s.Else); err != nil {
		return err
	}

	for i, c := range s.Cases {
		if err := validateSteps(fmt.Sprintf("%s.cases[%d]", at, i), c.Steps); err != nil {
			return err
		}
	}

	if err := validateSteps(at+".default", s.Default); err != nil {
		return err
	}

	return validateSteps(at+".steps", s.Steps)
}
