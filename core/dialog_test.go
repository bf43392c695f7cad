package core

import "testing"

func greetingDialog() *Dialog {
	return &Dialog{
		ID: "greeting",
		Steps: []Step{
			{Kind: StepSendOutput, Output: "Hello!"},
			{Kind: StepEndDialog},
		},
	}
}

func TestRegistry_AddAndGet(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(greetingDialog()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := reg.Add(greetingDialog()); err == nil {
		t.Error("duplicate id should be rejected")
	}

	if _, ok := reg.Get("greeting"); !ok {
		t.Error("registered dialog should be resolvable")
	}

	if _, ok := reg.Get("nope"); ok {
		t.Error("unknown id should not resolve")
	}

	if err := reg.Add(&Dialog{ID: "empty"}); err == nil {
		t.Error("dialog without steps or rules should be rejected")
	}
}

func TestRegistry_Replace(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(greetingDialog()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	next := []*Dialog{
		{ID: "menu", Steps: []Step{{Kind: StepEndDialog}}},
		{ID: "order", Steps: []Step{{Kind: StepEndDialog}}},
	}

	if err := reg.Replace(next); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if _, ok := reg.Get("greeting"); ok {
		t.Error("replaced registry should drop the old set")
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "menu" || ids[1] != "order" {
		t.Errorf("unexpected ids after replace: %v", ids)
	}

	dup := []*Dialog{
		{ID: "menu", Steps: []Step{{Kind: StepEndDialog}}},
		{ID: "menu", Steps: []Step{{Kind: StepEndDialog}}},
	}

	if err := reg.Replace(dup); err == nil {
		t.Error("duplicate ids in a replace set should be rejected")
	}
}

func TestRegistry_ValidateCrossReferences(t *testing.T) {
	reg := NewRegistry()

	root := &Dialog{
		ID: "root",
		Rules: []Rule{
			{
				Intent: "order",
				Steps:  []Step{{Kind: StepBeginDialog, Dialog: "order"}},
			},
		},
	}

	if err := reg.Add(root); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := reg.Validate(); err == nil {
		t.Fatal("dangling begin-dialog target should fail validation")
	}

	order := &Dialog{ID: "order", Steps: []Step{{Kind: StepEndDialog}}}
	if err := reg.Add(order); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := reg.Validate(); err != nil {
		t.Errorf("resolved targets should validate: %v", err)
	}
}

func TestRule_SpecificityAndLabel(t *testing.T) {
	catchAll := Rule{Steps: []Step{{Kind: StepEndTurn}}}
	intent := Rule{Intent: "greet", Steps: []Step{{Kind: StepEndTurn}}}
	event := Rule{Event: EventUnknownIntent, Steps: []Step{{Kind: StepEndTurn}}}

	if catchAll.Specificity() != 0 {
		t.Error("catch-all should score 0")
	}

	if intent.Specificity() != 1 || event.Specificity() != 1 {
		t.Error("named triggers should score 1")
	}

	if catchAll.Label() != "catch-all" {
		t.Errorf("unexpected label %q", catchAll.Label())
	}

	if intent.Label() != "intent:greet" {
		t.Errorf("unexpected label %q", intent.Label())
	}
}

func TestRule_Validate(t *testing.T) {
	if err := (Rule{}).Validate(); err == nil {
		t.Error("rule without steps should be invalid")
	}

	mismatched := Rule{
		Intent: "greet",
		Event:  EventActivityReceived,
		Steps:  []Step{{Kind: StepEndTurn}},
	}

	if err := mismatched.Validate(); err == nil {
		t.Error("intent trigger on a non-recognition event should be invalid")
	}

	ok := Rule{
		Intent: "greet",
		Event:  EventRecognizedIntent,
		Steps:  []Step{{Kind: StepEndTurn}},
	}

	if err := ok.Validate(); err != nil {
		t.Errorf("intent trigger on recognizedIntent should be valid: %v", err)
	}
}
