package engine

import (
	"fmt"
	"time"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/notify"
)

// turn carries the mutable state of one ProcessTurn call: the loaded
// conversation state, the memory resolver bound over it, and the suspension
// flag raised by endTurn and textInput.
type turn struct {
	engine *Engine
	tc     *core.TurnContext
	state  *core.ConversationState
	stack  *core.DialogStack
	mem    *core.Memory
	locale string

	// suspended is raised by steps that park the turn mid-sequence. The
	// execute loop checks it after every step.
	suspended bool
}

func newTurn(e *Engine, tc *core.TurnContext, state *core.ConversationState) *turn {
	t := &turn{
		engine: e,
		tc:     tc,
		state:  state,
		stack:  &state.Stack,
		locale: tc.Activity.Locale,
	}

	if t.locale == "" {
		t.locale = e.config.DefaultLocale
	}

	t.mem = core.NewMemory()
	t.mem.Bind(core.ScopeUser, &state.User)
	t.mem.Bind(core.ScopeConversation, &state.Conversation)
	t.mem.Bind(core.ScopeTurn, &tc.Turn)
	t.rebind()

	return t
}

// rebind points the dialog and this scopes at the active stack top. With an
// empty stack both scopes read as absent and reject writes.
func (t *turn) rebind() {
	top := t.stack.Top()
	if top == nil {
		t.mem.Bind(core.ScopeDialog, nil)
		t.mem.Bind(core.ScopeThis, nil)

		return
	}

	t.bindInstance(top)
}

// bindInstance points the dialog and this scopes at a specific instance.
// Event propagation binds each ancestor in turn so bubbled handlers and
// their guard conditions read their own dialog's state; rebind restores the
// active top afterwards.
func (t *turn) bindInstance(inst *core.DialogInstance) {
	t.mem.Bind(core.ScopeDialog, &inst.State)
	t.mem.Bind(core.ScopeThis, &inst.This)
}

// run drives the turn from the inbound activity to a clean boundary. The
// entry branch depends on where the previous turn parked the conversation:
// an empty stack starts the root dialog, a pending input consumes the
// activity as the awaited answer, an idle top has the activity classified
// and dispatched as an event, and a parked cursor simply resumes.
func (t *turn) run() (core.TurnOutcome, error) {
	if err := t.seedTurnScope(); err != nil {
		return "", err
	}

	top := t.stack.Top()

	switch {
	case top == nil:
		if err := t.pushRoot(); err != nil {
			return "", err
		}

		// A root without begin steps still gets the inbound activity
		// offered to its rules.
		if top = t.stack.Top(); top != nil && !top.Active() && top.Pending == nil {
			if err := t.dispatchInbound(); err != nil {
				return "", err
			}
		}
	case top.Pending != nil:
		if err := t.resumePendingInput(top); err != nil {
			return "", err
		}
	case !top.Active():
		if err := t.dispatchInbound(); err != nil {
			return "", err
		}
	}

	return t.execute()
}

// seedTurnScope publishes the inbound activity under turn.activity so
// templates and conditions can inspect it.
func (t *turn) seedTurnScope() error {
	if err := t.mem.Set("turn.activity", t.tc.Activity); err != nil {
		return fmt.Errorf("seed turn scope: %w", err)
	}

	return nil
}

// seedDialogEvent publishes the event being dispatched under
// turn.dialogEvent. Handlers read the triggering payload from there.
func (t *turn) seedDialogEvent(ev core.Event) error {
	payload := map[string]any{"name": ev.Name}
	if ev.Intent != "" {
		payload["intent"] = ev.Intent
	}

	if ev.Value != nil {
		payload["value"] = ev.Value
	}

	if err := t.mem.Set("turn.dialogEvent", payload); err != nil {
		return fmt.Errorf("seed dialog event: %w", err)
	}

	return nil
}

// pushRoot starts a fresh conversation by pushing the configured root
// dialog and entering it.
func (t *turn) pushRoot() error {
	def, err := t.engine.rootDialog()
	if err != nil {
		return err
	}

	inst := core.NewDialogInstance(def.ID)
	t.stack.Push(inst)
	t.rebind()

	t.notifyDialogStarted(def.ID)

	return t.beginInstance(inst, def)
}

// beginInstance enters a freshly pushed instance: the definition's begin
// steps when present, otherwise its rules get one shot at the beginDialog
// event. A definition with neither leaves the instance idle until the next
// inbound event.
func (t *turn) beginInstance(inst *core.DialogInstance, def *core.Dialog) error {
	if len(def.Steps) > 0 {
		inst.PushFrame(def.Steps)
		return nil
	}

	ev := core.Event{Name: core.EventBeginDialog}

	if err := t.seedDialogEvent(ev); err != nil {
		return err
	}

	rule, ok, err := selectRule(def.Rules, ev, t.mem, t.engine.evaluator)
	if err != nil {
		return err
	}

	if ok {
		t.notifyRuleSelected(def.ID, rule, ev)
		inst.PushFrame(rule.Steps)
	}

	return nil
}

// resumePendingInput binds the inbound activity to the property the parked
// textInput step is waiting on and advances the cursor past the step.
func (t *turn) resumePendingInput(top *core.DialogInstance) error {
	property := top.Pending.Property
	top.Pending = nil
	top.This = nil

	value := inputValue(t.tc.Activity)
	if err := t.mem.Set(property, value); err != nil {
		return core.NewConfigurationError(top.Dialog, "bind input to %s: %v", property, err)
	}

	if frame := top.TopFrame(); frame != nil {
		frame.Pos++
	}

	return nil
}

// inputValue extracts the answer carried by an activity: message text, or
// the event payload for non-message activities.
func inputValue(a core.Activity) any {
	if a.Text != "" {
		return a.Text
	}

	return core.CopyValue(a.Value)
}

// dispatchInbound classifies the inbound activity into an engine event and
// dispatches it against the stack.
func (t *turn) dispatchInbound() error {
	ev, err := t.inboundEvent()
	if err != nil {
		return err
	}

	return t.dispatch(ev)
}

// inboundEvent maps the activity onto the event offered to rule sets. Named
// event activities pass through as custom events. Messages run through the
// recognizer when one is configured: a confident classification raises
// recognizedIntent, anything else raises unknownIntent. Without a
// recognizer every activity raises activityReceived.
func (t *turn) inboundEvent() (core.Event, error) {
	a := t.tc.Activity

	if a.Type == core.ActivityEvent && a.Name != "" {
		return core.Event{Name: a.Name, Value: core.CopyValue(a.Value), Bubble: true}, nil
	}

	if t.engine.recognizer != nil && a.Type == core.ActivityMessage && a.Text != "" {
		start := time.Now()

		res, err := t.engine.recognizer.Recognize(t.tc.Context(), a.Text, t.locale)
		if err != nil {
			return core.Event{}, &core.TransportError{Op: "recognize", Err: err}
		}

		info := t.engine.recognizer.Info()
		t.engine.logger.Debug("Recognition completed",
			"provider", info.Provider,
			"intent", res.Intent,
			"score", res.Score,
			"duration", time.Since(start),
		)

		if res.Intent != "" && res.Score >= t.engine.config.IntentThreshold {
			recognized := map[string]any{"intent": res.Intent, "score": res.Score}
			if len(res.Entities) > 0 {
				recognized["entities"] = res.Entities
			}

			if err := t.mem.Set("turn.recognized", recognized); err != nil {
				return core.Event{}, fmt.Errorf("seed recognition result: %w", err)
			}

			return core.Event{Name: core.EventRecognizedIntent, Intent: res.Intent, Value: a.Text, Bubble: true}, nil
		}

		return core.Event{Name: core.EventUnknownIntent, Value: a.Text, Bubble: true}, nil
	}

	return core.Event{Name: core.EventActivityReceived, Value: inputValue(a), Bubble: true}, nil
}

// dispatch offers ev to the active dialog's rules first and, while
// unconsumed and marked for propagation, to each ancestor from the top of
// the stack toward the root. An event nobody consumes is logged and
// dropped; the turn still reaches a clean boundary.
func (t *turn) dispatch(ev core.Event) error {
	consumed, err := t.offerToTop(ev)
	if err != nil || consumed {
		return err
	}

	if ev.Bubble {
		consumed, err = t.bubble(ev, t.stack.Depth()-2)
		t.rebind()

		if err != nil || consumed {
			return err
		}
	}

	t.dropEvent(ev)

	return nil
}

// offerToTop runs rule selection on the active dialog and queues the
// winning rule's steps on its cursor.
func (t *turn) offerToTop(ev core.Event) (bool, error) {
	top := t.stack.Top()
	if top == nil {
		return false, nil
	}

	def, ok := t.engine.registry.Get(top.Dialog)
	if !ok {
		return false, core.NewConfigurationError(top.Dialog, "dialog not registered")
	}

	if err := t.seedDialogEvent(ev); err != nil {
		return false, err
	}

	rule, ok, err := selectRule(def.Rules, ev, t.mem, t.engine.evaluator)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	t.notifyRuleSelected(def.ID, rule, ev)
	top.PushFrame(rule.Steps)

	return true, nil
}

// dropEvent records an event that exhausted the stack without a consumer.
// Dropped events are deliberately non-fatal; the conversation keeps its
// state and the turn ends cleanly.
func (t *turn) dropEvent(ev core.Event) {
	t.engine.logger.Warn("Event not consumed",
		"event", ev.Name,
		"intent", ev.Intent,
		"conversation_key", t.tc.ConversationKey,
	)

	if err := t.engine.notifier.Emit(notify.EventDropped, t.tc.ConversationKey, &notify.EventDroppedData{
		Event:  ev.Name,
		Intent: ev.Intent,
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.EventDropped), "error", err)
	}
}

// execute drives the active cursor until the turn reaches a clean boundary:
// the stack emptied out (StackCompleted) or a step parked the conversation
// to wait for the next activity (Suspended).
func (t *turn) execute() (core.TurnOutcome, error) {
	for {
		top := t.stack.Top()
		if top == nil {
			return core.TurnStackCompleted, nil
		}

		if top.Pending != nil {
			return core.TurnSuspended, nil
		}

		if !top.Active() {
			// The dialog ran out of queued steps without ending itself;
			// it parks and waits for the next event.
			return core.TurnSuspended, nil
		}

		frame := top.TopFrame()
		if frame.Exhausted() {
			if frame.Loop != nil && frame.Loop.Advance() {
				frame.Pos = 0

				if err := t.bindLoop(top.Dialog, frame.Loop); err != nil {
					return "", err
				}

				continue
			}

			top.PopFrame()

			continue
		}

		env := &execEnv{inst: top, frames: &top.Cursor}
		if err := t.execStep(env, frame); err != nil {
			return "", err
		}

		if t.suspended {
			trimExhausted(top)
			return core.TurnSuspended, nil
		}
	}
}

// trimExhausted drops finished trailing frames before the turn parks. A
// suspension at the very end of a sequence leaves the dialog idle, so the
// next activity dispatches as an event instead of resuming a spent cursor.
// Frames whose loop still has iterations left stay put.
func trimExhausted(inst *core.DialogInstance) {
	for {
		frame := inst.TopFrame()
		if frame == nil || !frame.Exhausted() {
			return
		}

		if frame.Loop != nil && frame.Loop.Index+1 < frame.Loop.Iterations() {
			return
		}

		inst.PopFrame()
	}
}

// bindLoop publishes the current iteration's bindings into memory. Element
// loops bind the value and index; page loops bind the page slice and the
// page index.
func (t *turn) bindLoop(dialog string, loop *core.LoopState) error {
	if loop.PageSize > 0 {
		if err := t.mem.Set(loop.PageProperty, loop.Page()); err != nil {
			return core.NewConfigurationError(dialog, "bind loop page: %v", err)
		}
	} else {
		if err := t.mem.Set(loop.ValueProperty, loop.Items[loop.Index]); err != nil {
			return core.NewConfigurationError(dialog, "bind loop value: %v", err)
		}
	}

	if err := t.mem.Set(loop.IndexProperty, loop.Index); err != nil {
		return core.NewConfigurationError(dialog, "bind loop index: %v", err)
	}

	return nil
}

// stackIndex locates an instance on the stack, -1 when absent.
func (t *turn) stackIndex(inst *core.DialogInstance) int {
	for i, cand := range *t.stack {
		if cand == inst {
			return i
		}
	}

	return -1
}

func (t *turn) notifyDialogStarted(dialog string) {
	t.engine.logger.Debug("Dialog started", "dialog", dialog, "depth", t.stack.Depth())

	if err := t.engine.notifier.Emit(notify.DialogStarted, t.tc.ConversationKey, &notify.DialogStartedData{
		Dialog: dialog,
		Depth:  t.stack.Depth(),
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.DialogStarted), "error", err)
	}
}

func (t *turn) notifyDialogEnded(dialog string) {
	t.engine.logger.Debug("Dialog ended", "dialog", dialog, "depth", t.stack.Depth())

	if err := t.engine.notifier.Emit(notify.DialogEnded, t.tc.ConversationKey, &notify.DialogEndedData{
		Dialog: dialog,
		Depth:  t.stack.Depth(),
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.DialogEnded), "error", err)
	}
}

func (t *turn) notifyRuleSelected(dialog string, rule *core.Rule, ev core.Event) {
	t.engine.logger.Debug("Rule selected", "dialog", dialog, "rule", rule.Label(), "event", ev.Name)

	if err := t.engine.notifier.Emit(notify.RuleSelected, t.tc.ConversationKey, &notify.RuleSelectedData{
		Dialog: dialog,
		Rule:   rule.Label(),
		Event:  ev.Name,
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.RuleSelected), "error", err)
	}
}
