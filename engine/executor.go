package engine

import (
	"fmt"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/notify"
)

// execEnv identifies where steps execute: the owning instance and the frame
// list the cursor mutations land in. Normal execution points at the active
// instance's cursor; bubbled handlers run on a detached frame list with
// restricted set, where lifecycle and suspending steps are configuration
// errors.
type execEnv struct {
	inst       *core.DialogInstance
	frames     *[]core.CursorFrame
	restricted bool
}

// push queues a nested step sequence. It runs to completion before the
// current frame resumes.
func (env *execEnv) push(frame core.CursorFrame) {
	*env.frames = append(*env.frames, frame)
}

// execStep charges the step against the turn budget and executes it.
//
// Cursor discipline: every handler advances frame.Pos before it pushes
// frames or touches the stack, and never touches frame afterwards. Pushes
// may grow the frame slice and relocate it, which would turn the frame
// pointer stale.
func (t *turn) execStep(env *execEnv, frame *core.CursorFrame) error {
	if err := t.tc.Limiter().Increment(); err != nil {
		return core.NewConfigurationError(env.inst.Dialog, "%v", err)
	}

	step := frame.Steps[frame.Pos]

	t.engine.logger.Debug("Executing step", "kind", string(step.Kind), "dialog", env.inst.Dialog, "pos", frame.Pos)

	var err error

	switch step.Kind {
	case core.StepSendOutput:
		err = t.execSendOutput(env, frame, step)
	case core.StepSetProperty:
		err = t.execSetProperty(env, frame, step)
	case core.StepDeleteProperty:
		err = t.execDeleteProperty(env, frame, step)
	case core.StepIf:
		err = t.execIf(env, frame, step)
	case core.StepSwitch:
		err = t.execSwitch(env, frame, step)
	case core.StepForeach:
		err = t.execForeach(env, frame, step)
	case core.StepForeachPage:
		err = t.execForeachPage(env, frame, step)
	case core.StepBeginDialog:
		err = t.execBeginDialog(env, frame, step)
	case core.StepReplaceDialog:
		err = t.execReplaceDialog(env, frame, step)
	case core.StepEndDialog:
		err = t.execEndDialog(env, frame, step)
	case core.StepRepeatDialog:
		err = t.execRepeatDialog(env, frame, step)
	case core.StepEndTurn:
		err = t.execEndTurn(env, frame, step)
	case core.StepEmitEvent:
		err = t.execEmitEvent(env, frame, step)
	case core.StepEditSteps:
		err = t.execEditSteps(env, frame, step)
	case core.StepTextInput:
		err = t.execTextInput(env, frame, step)
	default:
		err = core.NewConfigurationError(env.inst.Dialog, "unknown step kind %q", step.Kind)
	}

	if err != nil {
		t.engine.logger.Error("Step failed", "kind", string(step.Kind), "dialog", env.inst.Dialog, "error", err)
	}

	return err
}

func (t *turn) execSendOutput(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	text, err := t.engine.generator.Resolve(step.Output, t.mem, t.locale)
	if err != nil {
		return err
	}

	t.tc.AddResponse(core.NewMessageActivity(text))

	if err := t.engine.notifier.Emit(notify.OutputSent, t.tc.ConversationKey, &notify.OutputSentData{
		Dialog: env.inst.Dialog,
		Text:   text,
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.OutputSent), "error", err)
	}

	return nil
}

func (t *turn) execSetProperty(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	value, err := t.stepValue(step)
	if err != nil {
		return err
	}

	if err := t.mem.Set(step.Property, value); err != nil {
		return core.NewConfigurationError(env.inst.Dialog, "set %s: %v", step.Property, err)
	}

	return nil
}

func (t *turn) execDeleteProperty(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	if err := t.mem.Delete(step.Property); err != nil {
		return core.NewConfigurationError(env.inst.Dialog, "delete %s: %v", step.Property, err)
	}

	return nil
}

func (t *turn) execIf(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	ok, err := t.engine.evaluator.EvaluateBool(step.Condition, t.mem)
	if err != nil {
		return err
	}

	branch := step.Then
	if !ok {
		branch = step.Else
	}

	if len(branch) > 0 {
		env.push(core.CursorFrame{Steps: branch})
	}

	return nil
}

func (t *turn) execSwitch(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	var scrutinee any

	if step.Expression != "" {
		v, err := t.engine.evaluator.Evaluate(step.Expression, t.mem)
		if err != nil {
			return err
		}

		scrutinee = v
	} else {
		scrutinee, _ = t.mem.Get(step.Property)
	}

	needle := core.CanonicalString(scrutinee)

	for _, c := range step.Cases {
		if c.Value == needle {
			if len(c.Steps) > 0 {
				env.push(core.CursorFrame{Steps: c.Steps})
			}

			return nil
		}
	}

	if len(step.Default) > 0 {
		env.push(core.CursorFrame{Steps: step.Default})
	}

	return nil
}

func (t *turn) execForeach(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	items, err := t.loopItems(step.Items)
	if err != nil {
		return err
	}

	if len(items) == 0 || len(step.Steps) == 0 {
		return nil
	}

	loop := &core.LoopState{
		Items:         items,
		ValueProperty: orDefault(step.ValueProperty, "dialog.foreach.value"),
		IndexProperty: orDefault(step.IndexProperty, "dialog.foreach.index"),
	}

	env.push(core.CursorFrame{Steps: step.Steps, Loop: loop})

	return t.bindLoop(env.inst.Dialog, loop)
}

func (t *turn) execForeachPage(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	if step.PageSize <= 0 {
		return core.NewConfigurationError(env.inst.Dialog, "foreachPage requires a positive pageSize")
	}

	items, err := t.loopItems(step.Items)
	if err != nil {
		return err
	}

	if len(items) == 0 || len(step.Steps) == 0 {
		return nil
	}

	loop := &core.LoopState{
		Items:         items,
		PageSize:      step.PageSize,
		PageProperty:  orDefault(step.PageProperty, "dialog.foreach.page"),
		IndexProperty: orDefault(step.IndexProperty, "dialog.foreach.index"),
	}

	env.push(core.CursorFrame{Steps: step.Steps, Loop: loop})

	return t.bindLoop(env.inst.Dialog, loop)
}

// loopItems resolves the loop source. An absent source yields an empty
// loop; a present non-sequence value is an evaluation error.
func (t *turn) loopItems(path string) ([]any, error) {
	v, ok := t.mem.Get(path)
	if !ok || v == nil {
		return nil, nil
	}

	items, ok := v.([]any)
	if !ok {
		return nil, core.NewEvaluationError(path, fmt.Errorf("foreach source is %T, not a sequence", v))
	}

	return items, nil
}

func (t *turn) execBeginDialog(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "beginDialog is not allowed in bubbled handlers")
	}

	// Advance first: the caller resumes after this step once the child
	// ends.
	frame.Pos++

	return t.startChild(step, false)
}

func (t *turn) execReplaceDialog(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "replaceDialog is not allowed in bubbled handlers")
	}

	return t.startChild(step, true)
}

// startChild pushes a fresh instance of the named dialog. With replace set
// the current instance is discarded first and the replacement inherits its
// result binding, so the eventual result still reaches the original caller.
func (t *turn) startChild(step core.Step, replace bool) error {
	def, ok := t.engine.registry.Get(step.Dialog)
	if !ok {
		return core.NewConfigurationError(step.Dialog, "dialog not registered")
	}

	inst := core.NewDialogInstance(def.ID)
	inst.ResultProperty = step.ResultProperty

	if replace && t.stack.Depth() > 0 {
		old := t.stack.ReplaceTop(inst)
		if inst.ResultProperty == "" {
			inst.ResultProperty = old.ResultProperty
		}

		t.notifyDialogEnded(old.Dialog)
	} else {
		t.stack.Push(inst)
	}

	t.rebind()

	if len(step.Options) > 0 {
		if err := t.mem.Set("dialog.options", core.CopyValue(step.Options)); err != nil {
			return core.NewConfigurationError(def.ID, "seed options: %v", err)
		}
	}

	t.notifyDialogStarted(def.ID)

	return t.beginInstance(inst, def)
}

func (t *turn) execEndDialog(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "endDialog is not allowed in bubbled handlers")
	}

	result, err := t.stepValue(step)
	if err != nil {
		return err
	}

	return t.endCurrent(result)
}

// endCurrent pops the active instance, rebinds memory to the caller, and
// delivers the result into the caller's scopes when a binding was declared.
func (t *turn) endCurrent(result any) error {
	ended := t.stack.Pop()
	if ended == nil {
		return nil
	}

	t.rebind()
	t.notifyDialogEnded(ended.Dialog)

	if ended.ResultProperty != "" && result != nil {
		if err := t.mem.Set(ended.ResultProperty, result); err != nil {
			return core.NewConfigurationError(ended.Dialog, "bind result to %s: %v", ended.ResultProperty, err)
		}
	}

	return nil
}

func (t *turn) execRepeatDialog(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "repeatDialog is not allowed in bubbled handlers")
	}

	def, ok := t.engine.registry.Get(env.inst.Dialog)
	if !ok {
		return core.NewConfigurationError(env.inst.Dialog, "dialog not registered")
	}

	// Restart keeps the dialog scope so the instance can count its own
	// restarts; only the cursor and input state reset.
	env.inst.ResetCursor()
	t.rebind()

	return t.beginInstance(env.inst, def)
}

func (t *turn) execEndTurn(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "endTurn is not allowed in bubbled handlers")
	}

	frame.Pos++
	t.suspended = true

	return nil
}

func (t *turn) execEmitEvent(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	frame.Pos++

	value, err := t.stepValue(step)
	if err != nil {
		return err
	}

	ev := core.Event{Name: step.Event, Value: value, Bubble: step.Bubble}

	def, ok := t.engine.registry.Get(env.inst.Dialog)
	if !ok {
		return core.NewConfigurationError(env.inst.Dialog, "dialog not registered")
	}

	if err := t.seedDialogEvent(ev); err != nil {
		return err
	}

	rule, found, err := selectRule(def.Rules, ev, t.mem, t.engine.evaluator)
	if err != nil {
		return err
	}

	if found {
		// The emitter handles its own event: the handler runs as a nested
		// frame before the current sequence resumes.
		t.notifyRuleSelected(def.ID, rule, ev)
		env.push(core.CursorFrame{Steps: rule.Steps})

		return nil
	}

	if ev.Bubble {
		idx := t.stackIndex(env.inst)

		consumed, err := t.bubble(ev, idx-1)
		t.bindInstance(env.inst)

		if err != nil {
			return err
		}

		if consumed {
			return nil
		}
	}

	t.dropEvent(ev)

	return nil
}

func (t *turn) execEditSteps(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	edit := make([]core.Step, len(step.Steps))
	copy(edit, step.Steps)

	switch step.Change {
	case core.ChangeReplaceSequence:
		// The new sequence supersedes everything in the frame, including
		// any loop driving it.
		frame.Steps = edit
		frame.Pos = 0
		frame.Loop = nil
	case core.ChangeInsertSteps:
		frame.Pos++

		rest := make([]core.Step, 0, len(frame.Steps)+len(edit))
		rest = append(rest, frame.Steps[:frame.Pos]...)
		rest = append(rest, edit...)
		rest = append(rest, frame.Steps[frame.Pos:]...)
		frame.Steps = rest
	case core.ChangeAppendSteps:
		frame.Pos++

		// Frames may still alias the definition's step slice; never append
		// in place.
		rest := make([]core.Step, 0, len(frame.Steps)+len(edit))
		rest = append(rest, frame.Steps...)
		rest = append(rest, edit...)
		frame.Steps = rest
	default:
		return core.NewConfigurationError(env.inst.Dialog, "unknown editSteps change %q", step.Change)
	}

	return nil
}

func (t *turn) execTextInput(env *execEnv, frame *core.CursorFrame, step core.Step) error {
	if env.restricted {
		return core.NewConfigurationError(env.inst.Dialog, "textInput is not allowed in bubbled handlers")
	}

	if !step.AlwaysPrompt {
		if _, ok := t.mem.Get(step.Property); ok {
			frame.Pos++
			return nil
		}
	}

	prompt, err := t.engine.generator.Resolve(step.Prompt, t.mem, t.locale)
	if err != nil {
		return err
	}

	t.tc.AddResponse(core.NewMessageActivity(prompt))

	// Count prompt attempts in the input's private scope so retry rules
	// can inspect them.
	attempts := float64(0)
	if v, ok := t.mem.Get("this.turnCount"); ok {
		if f, isFloat := v.(float64); isFloat {
			attempts = f
		}
	}

	if err := t.mem.Set("this.turnCount", attempts+1); err != nil {
		return core.NewConfigurationError(env.inst.Dialog, "track input attempts: %v", err)
	}

	// The cursor stays on this step; resuming binds the answer and then
	// advances past it.
	env.inst.Pending = &core.PendingInput{Property: step.Property}
	t.suspended = true

	if err := t.engine.notifier.Emit(notify.InputRequested, t.tc.ConversationKey, &notify.InputRequestedData{
		Dialog:   env.inst.Dialog,
		Property: step.Property,
	}); err != nil {
		t.engine.logger.Warn("Notification failed", "type", string(notify.InputRequested), "error", err)
	}

	return nil
}

// stepValue resolves a step's payload: the expression when present,
// otherwise a copy of the literal value.
func (t *turn) stepValue(step core.Step) (any, error) {
	if step.Expression != "" {
		return t.engine.evaluator.Evaluate(step.Expression, t.mem)
	}

	if step.Value == nil {
		return nil, nil
	}

	return core.CopyValue(step.Value), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
