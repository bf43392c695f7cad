package engine

import (
	"github.com/hupe1980/dialogmesh/core"
)

// bubble propagates an unconsumed event toward the root of the stack,
// starting at fromIdx. Every hop sees its own copy of the event, so a
// handler that mutates the payload cannot leak the change into deeper
// hops. The first ancestor with a matching rule consumes the event and
// handles it in place.
//
// Callers must restore their own memory binding afterwards; bubble leaves
// the binding on the last instance it touched.
func (t *turn) bubble(ev core.Event, fromIdx int) (bool, error) {
	for idx := fromIdx; idx >= 0; idx-- {
		inst := (*t.stack)[idx]

		def, ok := t.engine.registry.Get(inst.Dialog)
		if !ok {
			return false, core.NewConfigurationError(inst.Dialog, "dialog not registered")
		}

		hop := ev.Copy()

		t.bindInstance(inst)

		if err := t.seedDialogEvent(hop); err != nil {
			return false, err
		}

		rule, found, err := selectRule(def.Rules, hop, t.mem, t.engine.evaluator)
		if err != nil {
			return false, err
		}

		if !found {
			continue
		}

		t.notifyRuleSelected(def.ID, rule, hop)

		if err := t.runRestricted(inst, rule.Steps); err != nil {
			return false, err
		}

		return true, nil
	}

	return false, nil
}

// runRestricted executes a bubbled handler's steps against the owning
// instance's scopes on a detached frame list. The handler runs to
// completion within the current turn without disturbing the instance's
// parked cursor. Steps that move the stack or suspend the turn are
// configuration errors here; a handler that needs them should live on the
// dialog that owns the conversation flow instead.
func (t *turn) runRestricted(inst *core.DialogInstance, steps []core.Step) error {
	frames := []core.CursorFrame{{Steps: steps}}
	env := &execEnv{inst: inst, frames: &frames, restricted: true}

	for len(frames) > 0 {
		frame := &frames[len(frames)-1]

		if frame.Exhausted() {
			if frame.Loop != nil && frame.Loop.Advance() {
				frame.Pos = 0

				if err := t.bindLoop(inst.Dialog, frame.Loop); err != nil {
					return err
				}

				continue
			}

			frames = frames[:len(frames)-1]

			continue
		}

		if err := t.execStep(env, frame); err != nil {
			return err
		}
	}

	return nil
}
