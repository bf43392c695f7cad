package core

import (
	"fmt"
	"sync"
)

// Dialog is a named, reusable unit of conversational behavior: an optional
// begin sequence (Steps) run when an instance starts, plus Rules matched
// against events while the instance is active. Definitions are immutable
// once registered; per-conversation execution state lives in DialogInstance.
type Dialog struct {
	ID    string `json:"id" yaml:"id"`
	Steps []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
	Rules []Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Validate checks the definition in isolation. Cross-dialog references are
// checked by Registry.Validate.
func (d *Dialog) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("dialog requires an id")
	}

	if len(d.Steps) == 0 && len(d.Rules) == 0 {
		return fmt.Errorf("dialog %q has neither steps nor rules", d.ID)
	}

	if err := validateSteps("steps", d.Steps); err != nil {
		return fmt.Errorf("dialog %q: %w", d.ID, err)
	}

	for i, r := range d.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("dialog %q rules[%d]: %w", d.ID, i, err)
		}
	}

	return nil
}

// Registry holds dialog definitions keyed by id. It is safe for concurrent
// use: turns read definitions while a configuration loader may swap in a
// fresh set on hot reload.
type Registry struct {
	mu      sync.RWMutex
	dialogs map[string]*Dialog
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dialogs: make(map[string]*Dialog)}
}

// Add validates and registers a definition. Duplicate ids are rejected.
func (r *Registry) Add(d *Dialog) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dialogs[d.ID]; exists {
		return fmt.Errorf("dialog %q already registered", d.ID)
	}

	r.dialogs[d.ID] = d
	r.order = append(r.order, d.ID)

	return nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (*Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dialogs[id]

	return d, ok
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)

	return ids
}

// Replace validates the given definitions and atomically swaps the registry
// contents. Hot reload goes through this; in-flight turns keep the pointers
// they already resolved.
func (r *Registry) Replace(dialogs []*Dialog) error {
	next := make(map[string]*Dialog, len(dialogs))
	order := make([]string, 0, len(dialogs))

	for _, d := range dialogs {
		if err := d.Validate(); err != nil {
			return err
		}

		if _, exists := next[d.ID]; exists {
			return fmt.Errorf("dialog %q defined twice", d.ID)
		}

		next[d.ID] = d
		order = append(order, d.ID)
	}

	r.mu.Lock()
	r.dialogs = next
	r.order = order
	r.mu.Unlock()

	return nil
}

// Validate cross-checks beginDialog and replaceDialog targets against the
// registered ids.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		for _, target := range dialogTargets(r.dialogs[id]) {
			if _, ok := r.dialogs[target]; !ok {
				return NewConfigurationError(id, "references unknown dialog %q", target)
			}
		}
	}

	return nil
}

func dialogTargets(d *Dialog) []string {
	targets := appendTargets(nil, d.Steps)
	for _, r := range d.Rules {
		targets = appendTargets(targets, r.Steps)
	}

	return targets
}

func appendTargets(targets []string, steps []Step) []string {
	for _, s := range steps {
		if (s.Kind == StepBeginDialog || s.Kind == StepReplaceDialog) && s.Dialog != "" {
			targets = append(targets, s.Dialog)
		}

		targets = appendTargets(targets, s.Then)
		targets = appendTargets(targets, s.Else)
		targets = appendTargets(targets, s.Default)
		targets = appendTargets(targets, s.Steps)

		for _, c := range s.Cases {
			targets = appendTargets(targets, c.Steps)
		}
	}

	return targets
}
