package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/expr"
)

func selectorMemory(t *testing.T) *core.Memory {
	t.Helper()

	var user, dialog, turn json.RawMessage

	m := core.NewMemory()
	m.Bind(core.ScopeUser, &user)
	m.Bind(core.ScopeDialog, &dialog)
	m.Bind(core.ScopeTurn, &turn)

	return m
}

func endTurnSteps() []core.Step {
	return []core.Step{{Kind: core.StepEndTurn}}
}

func TestSelectRule_PriorityDominates(t *testing.T) {
	rules := []core.Rule{
		{Name: "low", Event: "ping", Priority: 1, Steps: endTurnSteps()},
		{Name: "high", Event: "ping", Priority: 5, Steps: endTurnSteps()},
	}

	rule, ok, err := selectRule(rules, core.Event{Name: "ping"}, selectorMemory(t), expr.NewTemplateEvaluator())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "high", rule.Name)
}

func TestSelectRule_PriorityBeatsSpecificity(t *testing.T) {
	rules := []core.Rule{
		{Name: "named", Event: "ping", Priority: 0, Steps: endTurnSteps()},
		{Name: "catch-all", Priority: 10, Steps: endTurnSteps()},
	}

	rule, ok, err := selectRule(rules, core.Event{Name: "ping"}, selectorMemory(t), expr.NewTemplateEvaluator())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "catch-all", rule.Name)
}

func TestSelectRule_SpecificityBreaksPriorityTie(t *testing.T) {
	rules := []core.Rule{
		{Name: "catch-all", Steps: endTurnSteps()},
		{Name: "named", Event: "ping", Steps: endTurnSteps()},
	}

	rule, ok, err := selectRule(rules, core.Event{Name: "ping"}, selectorMemory(t), expr.NewTemplateEvaluator())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "named", rule.Name)
}

func TestSelectRule_RegistrationOrderBreaksFinalTie(t *testing.T) {
	rules := []core.Rule{
		{Name: "first", Event: "ping", Steps: endTurnSteps()},
		{Name: "second", Event: "ping", Steps: endTurnSteps()},
	}

	mem := selectorMemory(t)
	evaluator := expr.NewTemplateEvaluator()

	// Selection must be deterministic across repeated runs.
	for i := 0; i < 10; i++ {
		rule, ok, err := selectRule(rules, core.Event{Name: "ping"}, mem, evaluator)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "first", rule.Name)
	}
}

func TestSelectRule_IntentRules(t *testing.T) {
	rules := []core.Rule{
		{Name: "greet", Intent: "greet", Steps: endTurnSteps()},
	}

	mem := selectorMemory(t)
	evaluator := expr.NewTemplateEvaluator()

	rule, ok, err := selectRule(rules, core.Event{Name: core.EventRecognizedIntent, Intent: "greet"}, mem, evaluator)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "greet", rule.Name)

	_, ok, err = selectRule(rules, core.Event{Name: core.EventRecognizedIntent, Intent: "bye"}, mem, evaluator)
	require.NoError(t, err)
	assert.False(t, ok)

	// An intent rule never fires on a plain event that happens to share
	// the intent's name.
	_, ok, err = selectRule(rules, core.Event{Name: "greet"}, mem, evaluator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectRule_ConditionFilters(t *testing.T) {
	rules := []core.Rule{
		{Name: "vip", Event: "ping", Priority: 5, Condition: "{{.user.vip}}", Steps: endTurnSteps()},
		{Name: "fallback", Event: "ping", Steps: endTurnSteps()},
	}

	mem := selectorMemory(t)
	evaluator := expr.NewTemplateEvaluator()

	rule, ok, err := selectRule(rules, core.Event{Name: "ping"}, mem, evaluator)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fallback", rule.Name)

	require.NoError(t, mem.Set("user.vip", true))

	rule, ok, err = selectRule(rules, core.Event{Name: "ping"}, mem, evaluator)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "vip", rule.Name)
}

func TestSelectRule_ConditionError(t *testing.T) {
	rules := []core.Rule{
		{Name: "broken", Event: "ping", Condition: "{{.user.vip", Steps: endTurnSteps()},
	}

	_, _, err := selectRule(rules, core.Event{Name: "ping"}, selectorMemory(t), expr.NewTemplateEvaluator())
	assert.Error(t, err)
}

func TestSelectRule_NoMatch(t *testing.T) {
	rules := []core.Rule{
		{Name: "other", Event: "pong", Steps: endTurnSteps()},
	}

	_, ok, err := selectRule(rules, core.Event{Name: "ping"}, selectorMemory(t), expr.NewTemplateEvaluator())
	require.NoError(t, err)
	assert.False(t, ok)
}
