package engine

import (
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/expr"
)

// selectRule picks the winning rule for an event. Candidates must match the
// event's name and intent and pass their guard condition, evaluated against
// the memory binding of the dialog being offered the event. Among
// candidates the winner has the highest priority, then the highest trigger
// specificity; remaining ties go to the earliest declared rule, which the
// scan keeps naturally by only replacing the winner on a strict
// improvement.
func selectRule(rules []core.Rule, ev core.Event, mem *core.Memory, evaluator expr.Evaluator) (*core.Rule, bool, error) {
	var (
		winner *core.Rule
		found  bool
	)

	for i := range rules {
		rule := &rules[i]

		if !triggerMatches(rule, ev) {
			continue
		}

		if rule.Condition != "" {
			ok, err := evaluator.EvaluateBool(rule.Condition, mem)
			if err != nil {
				return nil, false, err
			}

			if !ok {
				continue
			}
		}

		if !found || beats(rule, winner) {
			winner = rule
			found = true
		}
	}

	return winner, found, nil
}

// triggerMatches reports whether the rule's trigger fires for ev. Intent
// rules only fire on recognizedIntent with the matching intent; named event
// rules fire on their event; rules with neither are catch-alls.
func triggerMatches(rule *core.Rule, ev core.Event) bool {
	if rule.Intent != "" {
		return ev.Name == core.EventRecognizedIntent && ev.Intent == rule.Intent
	}

	if rule.Event != "" {
		return rule.Event == ev.Name
	}

	return true
}

// beats reports whether a strictly outranks b.
func beats(a, b *core.Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}

	return a.Specificity() > b.Specificity()
}
