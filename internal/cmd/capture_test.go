package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/tmux"
)

// fakeRenderer writes a canned frame per capture name instead of driving tmux.
type fakeRenderer struct {
	mu       sync.Mutex
	opts     tmux.Options
	rendered []string
	frames   map[string]string
	fail     map[string]bool
}

func (r *fakeRenderer) Render(_ context.Context, req capture.RenderRequest) error {
	name, _ := req.App.Metadata()["capture"].(string)
	r.mu.Lock()
	r.rendered = append(r.rendered, name)
	r.mu.Unlock()

	if r.fail[name] {
		return errors.New("application exited before the pane was ready")
	}
	frame, ok := r.frames[name]
	if !ok {
		frame = healthyFrame()
	}
	return os.WriteFile(req.Output, []byte(frame), 0o644)
}

func useFakeRenderer(t *testing.T, fr *fakeRenderer) {
	t.Helper()
	orig := newRenderer
	newRenderer = func(opts tmux.Options) (capture.Renderer, error) {
		fr.opts = opts
		return fr, nil
	}
	t.Cleanup(func() { newRenderer = orig })
}

const demoScenario = `name: demo
app: demo
settle_delay: 1ms
captures:
  - name: main
    command: ./demo
    interactions: ["press:down", "wait:0"]
  - name: help
    command: ./demo
    context: help_screen
    interactions: ["press:f1"]
`

func TestCaptureScenario(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "", "")
	fr := &fakeRenderer{}
	useFakeRenderer(t, fr)
	path := env.write(t, "flows/demo.yaml", demoScenario)

	stdout, _, err := executeCommand(t, "capture", path)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "help"}, fr.rendered)
	assert.Equal(t, 80, fr.opts.Width)
	assert.Equal(t, 24, fr.opts.Height)
	assert.Contains(t, stdout, "Capturing 2 screen(s):")
	assert.Contains(t, stdout, "[2/2] help")
	assert.Contains(t, stdout, "✓ Captured 2 screen(s)")
	assert.Contains(t, stdout, "Success rate: 100%")
	assert.Contains(t, stdout, "Cache: 2 entries, 0 hit(s), hit rate 0%")
	assert.Contains(t, stdout, "Run log: ")

	frames, err := filepath.Glob(env.path("screenshots", "apps", "demo", "help_screen", "help_screen_*.svg"))
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	stdout, _, err = executeCommand(t, "history", "--stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "capture=2")

	logs, err := filepath.Glob(filepath.Join(env.home, "logs", "run-*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Scenario demo: 2 capture(s)")
	assert.Contains(t, string(data), "Status: SUCCESS (2/2 passed)")
}

func TestCaptureFailures(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "", "")
	fr := &fakeRenderer{
		frames: map[string]string{"main": `<svg xmlns="http://www.w3.org/2000/svg"></svg>`},
		fail:   map[string]bool{"help": true},
	}
	useFakeRenderer(t, fr)
	path := env.write(t, "flows/demo.yaml", demoScenario)

	stdout, stderr, err := executeCommand(t, "capture", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 capture(s) failed")
	assert.Contains(t, stdout, "[CRITICAL]")
	assert.Contains(t, stdout, "✗ Captured 0 screen(s), 2 failed")
	assert.Contains(t, stderr, "application exited before the pane was ready")
}

func TestCaptureOnlyAndFormat(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "", "")
	fr := &fakeRenderer{}
	useFakeRenderer(t, fr)
	fc := &fakeConverter{}
	useFakeConverter(t, fc)
	path := env.write(t, "flows/demo.yaml", demoScenario)

	_, _, err := executeCommand(t, "capture", "--only", "main", "--format", "both", "--no-checks", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, fr.rendered)
	require.Len(t, fc.calls, 1)

	pngs, err := filepath.Glob(env.path("screenshots", "apps", "demo", "main", "main_*.png"))
	require.NoError(t, err)
	assert.Len(t, pngs, 1)

	_, _, err = executeCommand(t, "capture", "--only", "missing", path)
	assert.ErrorContains(t, err, "unknown capture(s): missing")

	_, _, err = executeCommand(t, "capture", "--format", "gif", path)
	assert.ErrorContains(t, err, `invalid format "gif"`)
}

func TestCaptureStrictValidation(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "", "")
	useFakeRenderer(t, &fakeRenderer{})
	path := env.write(t, "flows/demo.yaml", demoScenario)

	// The default quality minimums reject the small test frame.
	_, _, err := executeCommand(t, "capture", "--strict", "--only", "main", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 capture(s) failed")
}

func TestCaptureInvalidScenarioRunsNothing(t *testing.T) {
	env := newTestEnv(t)
	fr := &fakeRenderer{}
	useFakeRenderer(t, fr)
	path := env.write(t, "flows/bad.md", "## Capture: main\n\n- command: ./demo\n- interaction: enter\n")

	stdout, _, err := executeCommand(t, "capture", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing was captured")
	assert.Contains(t, stdout, "Invalid interactions in main")
	assert.Empty(t, fr.rendered)
}
