package core

import (
	"strings"
	"testing"
)

func TestStep_Validate(t *testing.T) {
	valid := []Step{
		{Kind: StepSendOutput, Output: "Hello"},
		{Kind: StepSetProperty, Property: "user.name", Value: "Ada"},
		{Kind: StepSetProperty, Property: "dialog.x", Expression: "{{.turn.activity.text}}"},
		{Kind: StepDeleteProperty, Property: "turn.tmp"},
		{Kind: StepIf, Condition: "user.known", Then: []Step{{Kind: StepEndTurn}}},
		{Kind: StepSwitch, Property: "dialog.choice", Cases: []SwitchCase{{Value: "a"}}},
		{Kind: StepForeach, Items: "dialog.list"},
		{Kind: StepForeachPage, Items: "dialog.list", PageSize: 2},
		{Kind: StepBeginDialog, Dialog: "child"},
		{Kind: StepReplaceDialog, Dialog: "other"},
		{Kind: StepEndDialog},
		{Kind: StepRepeatDialog},
		{Kind: StepEndTurn},
		{Kind: StepEmitEvent, Event: "custom"},
		{Kind: StepEditSteps, Change: ChangeAppendSteps, Steps: []Step{{Kind: StepEndTurn}}},
		{Kind: StepTextInput, Prompt: "Name?", Property: "user.name"},
	}

	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("%s should be valid: %v", s.Kind, err)
		}
	}

	invalid := []Step{
		{Kind: "teleport"},
		{Kind: StepSendOutput},
		{Kind: StepSetProperty, Property: "user.name"},
		{Kind: StepSetProperty, Value: "x"},
		{Kind: StepDeleteProperty},
		{Kind: StepIf},
		{Kind: StepSwitch, Property: "dialog.choice"},
		{Kind: StepSwitch, Cases: []SwitchCase{{Value: "a"}}},
		{Kind: StepForeach},
		{Kind: StepForeachPage, Items: "dialog.list"},
		{Kind: StepForeachPage, Items: "dialog.list", PageSize: -1},
		{Kind: StepBeginDialog},
		{Kind: StepReplaceDialog},
		{Kind: StepEmitEvent},
		{Kind: StepEditSteps},
		{Kind: StepEditSteps, Change: "swap"},
		{Kind: StepTextInput, Prompt: "Name?"},
		{Kind: StepTextInput, Property: "user.name"},
	}

	for _, s := range invalid {
		if err := s.Validate(); err == nil {
			t.Errorf("%s/%s should be invalid", s.Kind, s.Change)
		}
	}
}

func TestValidateSteps_ReportsNestedPath(t *testing.T) {
	steps := []Step{
		{Kind: StepSendOutput, Output: "ok"},
		{
			Kind:      StepIf,
			Condition: "user.known",
			Then: []Step{
				{Kind: StepSendOutput}, // missing output
			},
		},
	}

	err := ValidateSteps(steps)
	if err == nil {
		t.Fatal("expected a validation error")
	}

	if !strings.Contains(err.Error(), "steps[1].then[0]") {
		t.Errorf("error should name the nested path, got %q", err.Error())
	}
}

func TestValidateSteps_DescendsSwitchCases(t *testing.T) {
	steps := []Step{
		{
			Kind:     StepSwitch,
			Property: "dialog.choice",
			Cases: []SwitchCase{
				{Value: "a", Steps: []Step{{Kind: StepEndTurn}}},
				{Value: "b", Steps: []Step{{Kind: StepForeach}}}, // missing items
			},
		},
	}

	err := ValidateSteps(steps)
	if err == nil {
		t.Fatal("expected a validation error")
	}

	if !strings.Contains(err.Error(), "cases[1]") {
		t.Errorf("error should name the case, got %q", err.Error())
	}
}
