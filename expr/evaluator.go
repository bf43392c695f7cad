package expr

import (
	"strconv"
	"strings"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/util"
)

// Evaluator resolves expression strings from dialog definitions against the
// turn's memory.
//
// Implementations MUST:
//   - Resolve absent property paths to nil instead of failing
//   - Return *core.EvaluationError for expressions that cannot be evaluated
type Evaluator interface {
	// Evaluate resolves an expression to a value.
	Evaluate(expression string, mem *core.Memory) (any, error)
	// EvaluateBool resolves a condition and reduces it to a truth value.
	EvaluateBool(condition string, mem *core.Memory) (bool, error)
}

// TemplateEvaluator evaluates expressions written in Go's text/template
// syntax. Plain property paths (no template markers) resolve directly
// through memory; everything else renders against the memory snapshot and
// the rendered string is coerced back into a scalar.
type TemplateEvaluator struct{}

// NewTemplateEvaluator creates the default evaluator.
func NewTemplateEvaluator() *TemplateEvaluator {
	return &TemplateEvaluator{}
}

var _ Evaluator = (*TemplateEvaluator)(nil)

// Evaluate implements Evaluator.
func (e *TemplateEvaluator) Evaluate(expression string, mem *core.Memory) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}

	if !strings.Contains(expression, "{{") {
		v, _ := mem.Get(expression)
		return v, nil
	}

	out, err := util.RenderTemplate(expression, mem.Snapshot())
	if err != nil {
		return nil, core.NewEvaluationError(expression, err)
	}

	return coerce(out), nil
}

// EvaluateBool implements Evaluator.
func (e *TemplateEvaluator) EvaluateBool(condition string, mem *core.Memory) (bool, error) {
	v, err := e.Evaluate(condition, mem)
	if err != nil {
		return false, err
	}

	return Truthy(v), nil
}

// coerce maps a rendered template string back to a scalar: booleans and
// numbers regain their type, absent values become nil.
func coerce(out string) any {
	out = strings.TrimSpace(out)

	switch out {
	case "", "<no value>":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	if f, err := strconv.ParseFloat(out, 64); err == nil {
		return f
	}

	return out
}

// Truthy reports whether a value counts as true in conditions: false for
// nil, false, zero numbers, empty strings and empty containers, true for
// everything else. The strings "false" and "<no value>" also count as false
// so rendered templates behave like their typed counterparts.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		return s != "" && s != "false" && s != "<no value>"
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
