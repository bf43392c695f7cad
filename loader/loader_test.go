package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dialogmesh/core"
)

const greetingYAML = `id: greeting
steps:
  - kind: sendOutput
    output: "Hello!"
  - kind: endDialog
`

func writeDialog(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse(t *testing.T) {
	d, err := Parse([]byte(greetingYAML))
	require.NoError(t, err)

	assert.Equal(t, "greeting", d.ID)
	require.Len(t, d.Steps, 2)
	assert.Equal(t, core.StepSendOutput, d.Steps[0].Kind)
	assert.Equal(t, "Hello!", d.Steps[0].Output)
	assert.Equal(t, core.StepEndDialog, d.Steps[1].Kind)
}

func TestParse_Rules(t *testing.T) {
	d, err := Parse([]byte(`id: support
rules:
  - intent: escalate
    priority: 5
    steps:
      - kind: sendOutput
        output: "Connecting you to a human."
  - event: activityReceived
    condition: "{{.user.vip}}"
    steps:
      - kind: beginDialog
        dialog: support
`))
	require.NoError(t, err)

	require.Len(t, d.Rules, 2)
	assert.Equal(t, "escalate", d.Rules[0].Intent)
	assert.Equal(t, 5, d.Rules[0].Priority)
	assert.Equal(t, core.EventActivityReceived, d.Rules[1].Event)
	assert.Equal(t, "{{.user.vip}}", d.Rules[1].Condition)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("id: [broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse dialog")
}

func TestParse_FailsValidation(t *testing.T) {
	_, err := Parse([]byte("id: empty\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither steps nor rules")
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "02_farewell.yaml", "id: farewell\nsteps:\n  - kind: sendOutput\n    output: Bye\n")
	writeDialog(t, dir, "01_greeting.yml", greetingYAML)
	writeDialog(t, dir, "notes.txt", "not a dialog")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o750))

	dialogs, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, dialogs, 2)
	assert.Equal(t, "greeting", dialogs[0].ID, "lexical filename order decides registration order")
	assert.Equal(t, "farewell", dialogs[1].ID)
}

func TestLoadDir_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "a.yaml", greetingYAML)
	writeDialog(t, dir, "b.yaml", greetingYAML)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dialog "greeting" defined in both`)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialog files")
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nowhere"))
	require.Error(t, err)
}

func TestLoadDirInto(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "greeting.yaml", greetingYAML)

	registry := core.NewRegistry()
	require.NoError(t, LoadDirInto(dir, registry))

	d, ok := registry.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "greeting", d.ID)
}

func TestLoadDirInto_UnknownTarget(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "broken.yaml", `id: broken
steps:
  - kind: beginDialog
    dialog: missing
`)

	registry := core.NewRegistry()
	require.NoError(t, registry.Add(&core.Dialog{
		ID:    "keep",
		Steps: []core.Step{{Kind: core.StepEndDialog}},
	}))

	err := LoadDirInto(dir, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dialog "missing"`)

	_, ok := registry.Get("keep")
	assert.True(t, ok, "a failed load must not disturb the live registry")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "greeting.yaml", greetingYAML)

	registry := core.NewRegistry()
	w := NewWatcher(dir, registry, func(o *WatcherOptions) {
		o.Debounce = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, ok := registry.Get("greeting")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "initial load")

	writeDialog(t, dir, "farewell.yaml", "id: farewell\nsteps:\n  - kind: sendOutput\n    output: Bye\n")

	assert.Eventually(t, func() bool {
		_, ok := registry.Get("farewell")
		return ok
	}, 5*time.Second, 10*time.Millisecond, "added file picked up")

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcher_KeepsPreviousSetOnBadReload(t *testing.T) {
	dir := t.TempDir()
	writeDialog(t, dir, "greeting.yaml", greetingYAML)

	registry := core.NewRegistry()
	w := NewWatcher(dir, registry, func(o *WatcherOptions) {
		o.Debounce = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, ok := registry.Get("greeting")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "initial load")

	writeDialog(t, dir, "broken.yaml", "id: [broken")

	// Give a reload attempt time to happen, then verify the previous set
	// is still being served.
	time.Sleep(300 * time.Millisecond)

	_, ok := registry.Get("greeting")
	assert.True(t, ok, "failed reload must keep the previous dialogs")

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	err := NewWatcher(filepath.Join(t.TempDir(), "nowhere"), core.NewRegistry()).Run(context.Background())
	require.Error(t, err)
}
