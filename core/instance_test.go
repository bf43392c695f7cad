package core

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDialogStack_PushPopReplace(t *testing.T) {
	var stack DialogStack

	if stack.Top() != nil || stack.Pop() != nil {
		t.Fatal("empty stack should yield nil")
	}

	root := NewDialogInstance("root")
	child := NewDialogInstance("child")

	stack.Push(root)
	stack.Push(child)

	if stack.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", stack.Depth())
	}

	if stack.Top() != child {
		t.Error("top should be the last pushed instance")
	}

	repl := NewDialogInstance("replacement")
	if old := stack.ReplaceTop(repl); old != child {
		t.Error("ReplaceTop should return the replaced instance")
	}

	if stack.Depth() != 2 || stack.Top() != repl {
		t.Error("ReplaceTop should keep the depth and swap the top")
	}

	if got := stack.Pop(); got != repl {
		t.Error("Pop should return the top instance")
	}

	if stack.Top() != root {
		t.Error("root should be exposed after the pop")
	}
}

func TestDialogInstance_CursorFrames(t *testing.T) {
	inst := NewDialogInstance("menu")

	if inst.Active() {
		t.Error("fresh instance should be idle")
	}

	inst.PushFrame([]Step{{Kind: StepEndTurn}, {Kind: StepEndDialog}})
	inst.PushFrame([]Step{{Kind: StepSendOutput, Output: "hi"}})

	top := inst.TopFrame()
	if top == nil || len(top.Steps) != 1 {
		t.Fatal("top frame should be the inner list")
	}

	top.Pos++
	if !top.Exhausted() {
		t.Error("frame past its last step should be exhausted")
	}

	inst.PopFrame()

	if got := inst.TopFrame(); got == nil || len(got.Steps) != 2 {
		t.Fatal("outer frame should be restored after pop")
	}

	inst.ResetCursor()

	if inst.Active() || inst.Pending != nil || inst.This != nil {
		t.Error("ResetCursor should clear cursor, pending input and this scope")
	}
}

func TestLoopState_Pages(t *testing.T) {
	loop := &LoopState{
		Items:    []any{"a", "b", "c", "d", "e"},
		PageSize: 2,
	}

	if got := loop.Iterations(); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}

	if diff := cmp.Diff([]any{"a", "b"}, loop.Page()); diff != "" {
		t.Errorf("page 0 mismatch (-want +got):\n%s", diff)
	}

	if !loop.Advance() {
		t.Fatal("expected a second page")
	}

	if !loop.Advance() {
		t.Fatal("expected a third page")
	}

	if diff := cmp.Diff([]any{"e"}, loop.Page()); diff != "" {
		t.Errorf("final short page mismatch (-want +got):\n%s", diff)
	}

	if loop.Advance() {
		t.Error("loop should be exhausted after the final page")
	}
}

func TestLoopState_ElementIterations(t *testing.T) {
	loop := &LoopState{Items: []any{"x", "y"}}

	if got := loop.Iterations(); got != 2 {
		t.Fatalf("expected 2 iterations, got %d", got)
	}

	if loop.Advance() != true || loop.Advance() != false {
		t.Error("two-element loop should advance exactly once")
	}
}

// Suspended conversations survive a JSON round trip with their cursors,
// loop positions and pending input intact.
func TestConversationState_RoundTrip(t *testing.T) {
	inst := NewDialogInstance("order")
	inst.State = json.RawMessage(`{"items":["soup"]}`)
	inst.ResultProperty = "dialog.orderResult"
	inst.Pending = &PendingInput{Property: "dialog.name"}
	inst.Cursor = []CursorFrame{
		{Steps: []Step{{Kind: StepForeach, Items: "dialog.items"}}, Pos: 0},
		{
			Steps: []Step{{Kind: StepSendOutput, Output: "{{.dialog.foreach.value}}"}},
			Pos:   1,
			Loop: &LoopState{
				Items:         []any{"soup", "salad"},
				Index:         1,
				ValueProperty: "dialog.foreach.value",
				IndexProperty: "dialog.foreach.index",
			},
		},
	}

	state := &ConversationState{
		Stack:        DialogStack{inst},
		User:         json.RawMessage(`{"name":"Ada"}`),
		Conversation: json.RawMessage(`{"visits":2}`),
		TurnCount:    4,
	}

	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got ConversationState
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if diff := cmp.Diff(state, &got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConversationState_CloneIsIndependent(t *testing.T) {
	state := NewConversationState()
	state.Stack.Push(NewDialogInstance("root"))
	state.User = json.RawMessage(`{"name":"Ada"}`)

	clone, err := state.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if clone == state {
		t.Fatal("Clone should be a different pointer")
	}

	clone.Stack.Push(NewDialogInstance("child"))
	clone.User = json.RawMessage(`{"name":"Hopper"}`)

	if state.Stack.Depth() != 1 {
		t.Error("original stack should not see the clone's push")
	}

	if string(state.User) != `{"name":"Ada"}` {
		t.Error("original user scope should not see the clone's write")
	}
}
