package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Scope names understood by the memory resolver. Each scope has its own
// lifetime: user and conversation persist across turns, dialog lives and
// dies with its DialogInstance, turn is discarded when the turn ends, and
// this is private to the active input step.
const (
	ScopeUser         = "user"
	ScopeConversation = "conversation"
	ScopeDialog       = "dialog"
	ScopeTurn         = "turn"
	ScopeThis         = "this"
)

// Memory resolves dotted property paths against named scope documents. The
// first path segment selects the scope; the remainder addresses into the
// scope's JSON document, objects by key and arrays by integer index. Reads
// of missing segments yield absence rather than errors; writes create
// intermediate containers on demand.
//
// Scopes are bound to external document slots so mutations flow back to
// their owners: the conversation snapshot, the active DialogInstance, the
// TurnContext. Memory is not safe for concurrent use; a turn is a single
// logical sequence of steps.
type Memory struct {
	docs map[string]*json.RawMessage
}

// NewMemory creates a resolver with no scopes bound.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*json.RawMessage)}
}

// Bind attaches a scope name to a document slot. Rebinding replaces the
// previous slot; the engine rebinds dialog and this whenever the active
// stack frame changes.
func (m *Memory) Bind(scope string, doc *json.RawMessage) {
	m.docs[scope] = doc
}

// Get resolves path to a value. The boolean reports presence: an unbound
// scope, an empty document, or a missing segment yields (nil, false).
func (m *Memory) Get(path string) (any, bool) {
	scope, rest := splitPath(path)

	doc, ok := m.docs[scope]
	if !ok || doc == nil || len(*doc) == 0 {
		return nil, false
	}

	if rest == "" {
		var v any
		if err := json.Unmarshal(*doc, &v); err != nil {
			return nil, false
		}

		return v, true
	}

	res := gjson.GetBytes(*doc, rest)
	if !res.Exists() {
		return nil, false
	}

	return res.Value(), true
}

// GetString resolves path and renders the value in its canonical string
// form. Absent paths yield the empty string.
func (m *Memory) GetString(path string) string {
	v, ok := m.Get(path)
	if !ok {
		return ""
	}

	return CanonicalString(v)
}

// Set writes value at path, creating intermediate containers as needed. An
// empty remainder replaces the whole scope document.
func (m *Memory) Set(path string, value any) error {
	scope, rest := splitPath(path)

	doc, ok := m.docs[scope]
	if !ok {
		return fmt.Errorf("unknown memory scope %q", scope)
	}

	if doc == nil {
		return fmt.Errorf("memory scope %q is not active", scope)
	}

	if rest == "" {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s scope: %w", scope, err)
		}

		*doc = raw

		return nil
	}

	base := *doc
	if len(base) == 0 {
		base = json.RawMessage(`{}`)
	}

	out, err := sjson.SetBytes(base, rest, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	*doc = out

	return nil
}

// Delete removes the value at path. Deleting a missing path is a no-op; an
// empty remainder resets the whole scope document.
func (m *Memory) Delete(path string) error {
	scope, rest := splitPath(path)

	doc, ok := m.docs[scope]
	if !ok {
		return fmt.Errorf("unknown memory scope %q", scope)
	}

	if doc == nil {
		return fmt.Errorf("memory scope %q is not active", scope)
	}

	if rest == "" {
		*doc = json.RawMessage(`{}`)
		return nil
	}

	if len(*doc) == 0 {
		return nil
	}

	out, err := sjson.DeleteBytes(*doc, rest)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	*doc = out

	return nil
}

// Snapshot materializes every bound scope into plain Go values keyed by
// scope name. Template evaluation renders against this shape. Empty and
// inactive scopes appear as empty objects so a template can reference any
// property chain and see absence instead of a nil dereference.
func (m *Memory) Snapshot() map[string]any {
	snap := make(map[string]any, len(m.docs))

	for scope, doc := range m.docs {
		if doc == nil || len(*doc) == 0 {
			snap[scope] = map[string]any{}
			continue
		}

		var v any
		if err := json.Unmarshal(*doc, &v); err != nil {
			snap[scope] = map[string]any{}
			continue
		}

		snap[scope] = v
	}

	return snap
}

func splitPath(path string) (scope, rest string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}

	return path, ""
}

// CanonicalString renders a memory value in its canonical comparison form:
// strings as-is, numbers without a trailing fraction when integral, booleans
// as true/false, nil as the empty string, containers as compact JSON. Switch
// matching compares these forms, so the JSON number 22 matches the case
// literal "22".
func CanonicalString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(raw)
	}
}
