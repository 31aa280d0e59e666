package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) { l.add("DEBUG", format, args...) }
func (l *recordingLogger) Infof(format string, args ...interface{})  { l.add("INFO", format, args...) }
func (l *recordingLogger) Warnf(format string, args ...interface{})  { l.add("WARN", format, args...) }
func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.add("ERROR", format, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type fakeRenderer struct {
	calls    int
	commands []interaction.Command
	content  string
	err      error
	skip     bool
}

func (r *fakeRenderer) Render(_ context.Context, req RenderRequest) error {
	r.calls++
	r.commands = req.Commands
	if r.err != nil {
		return r.err
	}
	if r.skip {
		return nil
	}
	content := r.content
	if content == "" {
		content = `<svg xmlns="http://www.w3.org/2000/svg"><text>ok</text></svg>`
	}
	return os.WriteFile(req.Output, []byte(content), 0o644)
}

type orderHook struct {
	BasePlugin
	name   string
	events *[]string
}

func (h orderHook) PreCapture(context.Context, string, AppContext) (map[string]any, error) {
	*h.events = append(*h.events, h.name+":pre")
	return map[string]any{h.name: true}, nil
}

func (h orderHook) PostCapture(_ context.Context, _ *Result, md map[string]any) error {
	*h.events = append(*h.events, fmt.Sprintf("%s:post:%d", h.name, len(md)))
	return nil
}

func (h orderHook) OnSuccess(context.Context, *Result) error {
	*h.events = append(*h.events, h.name+":success")
	return nil
}

func (h orderHook) OnFailure(_ context.Context, err error, _ string) error {
	*h.events = append(*h.events, h.name+":failure")
	return nil
}

type panicHook struct{ BasePlugin }

func (panicHook) OnSuccess(context.Context, *Result) error { panic("boom") }

type errorHook struct{ BasePlugin }

func (errorHook) PostCapture(context.Context, *Result, map[string]any) error {
	return errors.New("hook exploded")
}

func fixedApp(t *testing.T) *BasicAppContext {
	t.Helper()
	app := NewBasicAppContext("demo", Command{Path: "/usr/bin/demo", Args: []string{"--flag"}}, map[string]any{"theme": "dark"})
	at := time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC)
	app.now = func() time.Time { return at }
	return app
}

func TestCaptureSuccessAndCacheHit(t *testing.T) {
	base := t.TempDir()
	renderer := &fakeRenderer{}
	var events []string
	capturer, err := New(renderer, Options{BaseDir: base}, orderHook{name: "a", events: &events}, orderHook{name: "b", events: &events})
	require.NoError(t, err)

	for _, dir := range []string{"apps", "contexts", "cache"} {
		assert.DirExists(t, filepath.Join(base, dir))
	}

	app := fixedApp(t)
	result := capturer.Capture(context.Background(), app, "main menu", FormatSVG, []string{"press:tab", "wait:0", "type:hi"})
	require.True(t, result.Success, result.ErrorMessage)
	assert.False(t, result.CacheHit)
	assert.Equal(t, result.ArtifactPath, result.SVGPath)
	assert.Equal(t, filepath.Join(base, "apps", "demo", "main_menu"), filepath.Dir(result.ArtifactPath))
	assert.True(t, strings.HasPrefix(filepath.Base(result.ArtifactPath), "main_menu_"))
	assert.Greater(t, result.FileSize, int64(0))
	require.Len(t, renderer.commands, 3)
	assert.Equal(t, interaction.KindType, renderer.commands[2].Kind)

	assert.Equal(t, []string{"a:pre", "b:pre", "a:post:2", "b:post:2", "a:success", "b:success"}, events)

	again := capturer.Capture(context.Background(), app, "main menu", FormatSVG, nil)
	require.True(t, again.Success)
	assert.True(t, again.CacheHit)
	assert.Equal(t, result.ArtifactPath, again.ArtifactPath)
	assert.Equal(t, 1, renderer.calls, "cached capture does not render")

	stats := capturer.Cache().Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.TotalAccesses)
}

func TestCaptureInvalidInteractions(t *testing.T) {
	renderer := &fakeRenderer{}
	var events []string
	capturer, err := New(renderer, Options{BaseDir: t.TempDir()}, orderHook{name: "a", events: &events})
	require.NoError(t, err)

	result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatSVG, []string{"f2", "click:#ok", "wait:-1"})
	assert.False(t, result.Success)
	assert.Empty(t, result.ArtifactPath)
	assert.Contains(t, result.ErrorMessage, "Interaction Format Errors")
	assert.Contains(t, result.ErrorMessage, "Error at position 1")
	assert.Contains(t, result.ErrorMessage, "Error at position 3")
	assert.Equal(t, 0, renderer.calls)
	assert.Equal(t, []string{"a:pre", "a:failure"}, events)
}

func TestCaptureRendererFailures(t *testing.T) {
	t.Run("render error", func(t *testing.T) {
		capturer, err := New(&fakeRenderer{err: errors.New("tmux exited")}, Options{BaseDir: t.TempDir()})
		require.NoError(t, err)

		result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatSVG, nil)
		assert.False(t, result.Success)
		assert.Equal(t, "screenshot capture failed: tmux exited", result.ErrorMessage)
	})

	t.Run("no file written", func(t *testing.T) {
		capturer, err := New(&fakeRenderer{skip: true}, Options{BaseDir: t.TempDir()})
		require.NoError(t, err)

		result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatSVG, nil)
		assert.False(t, result.Success)
		assert.Equal(t, "screenshot file was not created", result.ErrorMessage)
	})

	t.Run("png without converter", func(t *testing.T) {
		capturer, err := New(&fakeRenderer{}, Options{BaseDir: t.TempDir()})
		require.NoError(t, err)

		result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatPNG, nil)
		assert.False(t, result.Success)
		assert.Equal(t, ErrNoConverter.Error(), result.ErrorMessage)
	})
}

type copyConverter struct{}

func (copyConverter) Convert(_ context.Context, svgPath, pngPath string) error {
	data := append([]byte{}, pngMagic...)
	return os.WriteFile(pngPath, data, 0o644)
}

func TestCaptureBothFormats(t *testing.T) {
	capturer, err := New(&fakeRenderer{}, Options{BaseDir: t.TempDir(), Converter: copyConverter{}})
	require.NoError(t, err)

	result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatBoth, nil)
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, result.SVGPath, result.ArtifactPath)
	assert.True(t, IsPNG(result.PNGPath))
	assert.Equal(t, int64(8), result.PNGSize)
	assert.Equal(t, FormatSVG, result.ArtifactFormat())
}

func TestCacheHitKeepsRequestedFormat(t *testing.T) {
	renderer := &fakeRenderer{}
	capturer, err := New(renderer, Options{BaseDir: t.TempDir(), Converter: copyConverter{}})
	require.NoError(t, err)
	app := fixedApp(t)

	png := capturer.Capture(context.Background(), app, "ctx", FormatPNG, nil)
	require.True(t, png.Success, png.ErrorMessage)
	assert.Equal(t, FormatPNG, png.ArtifactFormat())

	svg := capturer.Capture(context.Background(), app, "ctx", FormatSVG, nil)
	require.True(t, svg.Success, svg.ErrorMessage)
	assert.False(t, svg.CacheHit, "a png entry does not serve an svg capture")
	assert.Equal(t, FormatSVG, svg.ArtifactFormat())
	assert.Equal(t, 2, renderer.calls)

	again := capturer.Capture(context.Background(), app, "ctx", FormatPNG, nil)
	require.True(t, again.CacheHit)
	assert.Equal(t, png.ArtifactPath, again.ArtifactPath)
	assert.Equal(t, png.ArtifactPath, again.PNGPath)
	assert.Equal(t, FormatPNG, again.Format)
}

func TestHooksRecoverPanicsAndErrors(t *testing.T) {
	log := &recordingLogger{}
	var events []string
	capturer, err := New(&fakeRenderer{}, Options{BaseDir: t.TempDir(), Logger: log},
		panicHook{}, errorHook{}, orderHook{name: "last", events: &events})
	require.NoError(t, err)

	result := capturer.Capture(context.Background(), fixedApp(t), "ctx", FormatSVG, nil)
	require.True(t, result.Success)

	assert.Contains(t, events, "last:success", "later hooks still run")
	assert.True(t, log.contains("Success hook panicked: boom"))
	assert.True(t, log.contains("Post-capture hook failed: hook exploded"))
}

func TestNewRequiresRenderer(t *testing.T) {
	_, err := New(nil, Options{BaseDir: t.TempDir()})
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	cmds := []interaction.Command{
		{Kind: interaction.KindPress, Target: "a"},
		{Kind: interaction.KindPress, Target: "b"},
	}

	var seen []string
	err := Replay(context.Background(), cmds, time.Millisecond, func(_ context.Context, c interaction.Command) error {
		seen = append(seen, c.Target)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)

	err = Replay(context.Background(), cmds, 0, func(_ context.Context, c interaction.Command) error {
		return errors.New("no such key")
	})
	assert.EqualError(t, err, "interaction 0 (press:a): no such key")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Replay(ctx, cmds, 0, func(context.Context, interaction.Command) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "main_menu", sanitize("main menu"))
	assert.Equal(t, "a_b", sanitize("a/b"))
	assert.Equal(t, "unnamed", sanitize(".."))
}
