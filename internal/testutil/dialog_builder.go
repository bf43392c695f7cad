package testutil

import (
	"github.com/hupe1980/dialogmesh/core"
)

// DialogBuilder helps construct dialog definitions with fluent chaining for
// tests. Example:
//
//	d := NewDialogBuilder("greeting").
//		Step(TextInput("user.name", "Who are you?")).
//		Step(SendOutput("Hi {{.user.name}}!")).
//		Step(EndDialog()).
//		Build()
type DialogBuilder struct {
	id    string
	steps []core.Step
	rules []core.Rule
}

// NewDialogBuilder creates a new builder for a dialog with the given id.
// Use chainable methods (Step, Steps, Rule) then call Build.
func NewDialogBuilder(id string) *DialogBuilder {
	return &DialogBuilder{id: id}
}

// Step appends a single begin step (chainable).
func (b *DialogBuilder) Step(s core.Step) *DialogBuilder {
	b.steps = append(b.steps, s)
	return b
}

// Steps appends multiple begin steps (chainable).
func (b *DialogBuilder) Steps(steps ...core.Step) *DialogBuilder {
	b.steps = append(b.steps, steps...)
	return b
}

// Rule appends an event-triggered rule (chainable).
func (b *DialogBuilder) Rule(r core.Rule) *DialogBuilder {
	b.rules = append(b.rules, r)
	return b
}

// OnIntent appends a rule triggering on the named intent (chainable).
func (b *DialogBuilder) OnIntent(intent string, steps ...core.Step) *DialogBuilder {
	return b.Rule(core.Rule{Intent: intent, Steps: steps})
}

// OnEvent appends a rule triggering on the named event (chainable).
func (b *DialogBuilder) OnEvent(event string, steps ...core.Step) *DialogBuilder {
	return b.Rule(core.Rule{Event: event, Steps: steps})
}

// Build returns the assembled *core.Dialog.
func (b *DialogBuilder) Build() *core.Dialog {
	return &core.Dialog{ID: b.id, Steps: b.steps, Rules: b.rules}
}

// SendOutput returns a sendOutput step for the given template.
func SendOutput(output string) core.Step {
	return core.Step{Kind: core.StepSendOutput, Output: output}
}

// SetProperty returns a setProperty step writing a literal value.
func SetProperty(property string, value any) core.Step {
	return core.Step{Kind: core.StepSetProperty, Property: property, Value: value}
}

// TextInput returns a textInput step binding the next utterance to property.
func TextInput(property, prompt string) core.Step {
	return core.Step{Kind: core.StepTextInput, Property: property, Prompt: prompt}
}

// BeginDialog returns a beginDialog step pushing the named child.
func BeginDialog(dialog string) core.Step {
	return core.Step{Kind: core.StepBeginDialog, Dialog: dialog}
}

// EndDialog returns a plain endDialog step.
func EndDialog() core.Step {
	return core.Step{Kind: core.StepEndDialog}
}

// EndTurn returns an endTurn step.
func EndTurn() core.Step {
	return core.Step{Kind: core.StepEndTurn}
}
