package core

import "encoding/json"

// LoopState tracks an in-progress foreach or foreachPage loop. It lives on
// the cursor frame of the loop body so iteration survives suspension.
type LoopState struct {
	Items         []any  `json:"items"`
	Index         int    `json:"index"`
	PageSize      int    `json:"pageSize,omitempty"`
	ValueProperty string `json:"valueProperty,omitempty"`
	IndexProperty string `json:"indexProperty,omitempty"`
	PageProperty  string `json:"pageProperty,omitempty"`
}

// Iterations returns the total iteration count: one per element, or one per
// page of PageSize elements with the final page allowed to be short.
func (l *LoopState) Iterations() int {
	if l.PageSize > 0 {
		return (len(l.Items) + l.PageSize - 1) / l.PageSize
	}

	return len(l.Items)
}

// Advance moves to the next iteration, reporting whether one exists.
func (l *LoopState) Advance() bool {
	l.Index++
	return l.Index < l.Iterations()
}

// Page returns the Index-th contiguous page of Items.
func (l *LoopState) Page() []any {
	start := l.Index * l.PageSize

	end := start + l.PageSize
	if end > len(l.Items) {
		end = len(l.Items)
	}

	if start >= end {
		return nil
	}

	return l.Items[start:end]
}

// CursorFrame is one level of the hierarchical step cursor: a step list and
// the position of the next step to run. Frames carry their list by value so
// substituted lists persist and resume exactly like configured ones.
type CursorFrame struct {
	Steps []Step     `json:"steps"`
	Pos   int        `json:"pos"`
	Loop  *LoopState `json:"loop,omitempty"`
}

// Exhausted reports whether the frame has run past its last step.
func (f *CursorFrame) Exhausted() bool {
	return f.Pos >= len(f.Steps)
}

// PendingInput marks a suspended input step awaiting the next inbound
// activity.
type PendingInput struct {
	Property string `json:"property"`
}

// DialogInstance is one frame of the dialog stack: the definition it runs,
// its private dialog scope, its step-local this scope, and the hierarchical
// cursor. Created on push, destroyed on pop.
type DialogInstance struct {
	ID             string          `json:"id"`
	Dialog         string          `json:"dialog"`
	State          json.RawMessage `json:"state,omitempty"`
	This           json.RawMessage `json:"this,omitempty"`
	Cursor         []CursorFrame   `json:"cursor,omitempty"`
	Pending        *PendingInput   `json:"pending,omitempty"`
	ResultProperty string          `json:"resultProperty,omitempty"`
}

// NewDialogInstance creates a fresh instance of the named definition with
// empty state and no cursor.
func NewDialogInstance(dialogID string) *DialogInstance {
	return &DialogInstance{ID: NewID(), Dialog: dialogID}
}

// PushFrame enters a nested step list at position 0.
func (di *DialogInstance) PushFrame(steps []Step) {
	di.Cursor = append(di.Cursor, CursorFrame{Steps: steps})
}

// TopFrame returns the innermost cursor frame, or nil when the instance is
// idle.
func (di *DialogInstance) TopFrame() *CursorFrame {
	if len(di.Cursor) == 0 {
		return nil
	}

	return &di.Cursor[len(di.Cursor)-1]
}

// PopFrame leaves the innermost step list.
func (di *DialogInstance) PopFrame() {
	if len(di.Cursor) > 0 {
		di.Cursor = di.Cursor[:len(di.Cursor)-1]
	}
}

// Active reports whether the instance has a parked or running cursor.
func (di *DialogInstance) Active() bool {
	return len(di.Cursor) > 0
}

// ResetCursor drops the cursor, pending input, and this scope while keeping
// the accumulated dialog scope. Repeat-dialog re-enters through this.
func (di *DialogInstance) ResetCursor() {
	di.Cursor = nil
	di.Pending = nil
	di.This = nil
}

// DialogStack is the ordered set of active dialog instances for one
// conversation, last-in-first-out with replace-at-top. Index 0 is the root
// dialog; the last element receives inbound events first.
type DialogStack []*DialogInstance

// Top returns the active instance, or nil for an empty stack.
func (s DialogStack) Top() *DialogInstance {
	if len(s) == 0 {
		return nil
	}

	return s[len(s)-1]
}

// Push adds an instance on top.
func (s *DialogStack) Push(inst *DialogInstance) {
	*s = append(*s, inst)
}

// Pop removes and returns the top instance, or nil for an empty stack.
func (s *DialogStack) Pop() *DialogInstance {
	old := *s
	if len(old) == 0 {
		return nil
	}

	top := old[len(old)-1]
	*s = old[:len(old)-1]

	return top
}

// ReplaceTop swaps the top instance for inst, returning the replaced one.
func (s DialogStack) ReplaceTop(inst *DialogInstance) *DialogInstance {
	if len(s) == 0 {
		return nil
	}

	old := s[len(s)-1]
	s[len(s)-1] = inst

	return old
}

// Depth returns the number of active instances.
func (s DialogStack) Depth() int {
	return len(s)
}
