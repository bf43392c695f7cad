package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/dialogmesh/core"
)

// Parse decodes and validates a single dialog definition.
func Parse(data []byte) (*core.Dialog, error) {
	var d core.Dialog
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dialog: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// ParseFile reads and parses one definition file.
func ParseFile(path string) (*core.Dialog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

// LoadDir parses every dialog file in dir, one definition per file, in
// lexical filename order. Filename order is also registration order, which
// breaks rule-selection ties and picks the default root dialog.
func LoadDir(dir string) ([]*core.Dialog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dialog dir: %w", err)
	}

	var dialogs []*core.Dialog

	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isDialogFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		d, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("dialog %q defined in both %s and %s", d.ID, prev, path)
		}

		seen[d.ID] = path
		dialogs = append(dialogs, d)
	}

	if len(dialogs) == 0 {
		return nil, fmt.Errorf("no dialog files in %s", dir)
	}

	return dialogs, nil
}

// LoadDirInto loads dir and atomically replaces the registry contents,
// cross-validating dialog references before anything is swapped.
func LoadDirInto(dir string, registry *core.Registry) error {
	dialogs, err := LoadDir(dir)
	if err != nil {
		return err
	}

	if err := validateSet(dialogs); err != nil {
		return err
	}

	return registry.Replace(dialogs)
}

// validateSet cross-checks begin and replace targets within the set before
// it touches any live registry.
func validateSet(dialogs []*core.Dialog) error {
	tmp := core.NewRegistry()

	for _, d := range dialogs {
		if err := tmp.Add(d); err != nil {
			return err
		}
	}

	return tmp.Validate()
}

func isDialogFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
