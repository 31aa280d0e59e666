package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationPlugin(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		wantValid bool
		wantScore float64
		wantErrs  int
		content   bool
	}{
		{name: "healthy", size: 4096, wantValid: true, wantScore: 1.0, wantErrs: 0, content: true},
		{name: "below minimum", size: 800, wantValid: false, wantScore: 0.5, wantErrs: 1, content: true},
		{name: "empty", size: 100, wantValid: false, wantScore: 0.5, wantErrs: 2, content: false},
		{name: "above maximum", size: DefaultPluginMaxSize + 1, wantValid: false, wantScore: 0.5, wantErrs: 1, content: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &Result{Success: true, ArtifactPath: "x.svg", FileSize: tt.size}
			require.NoError(t, NewValidationPlugin().PostCapture(context.Background(), result, nil))

			assert.Equal(t, tt.wantValid, result.Metadata["file_size_valid"])
			assert.Equal(t, tt.content, result.Metadata["content_detected"])
			assert.Equal(t, tt.wantScore, result.Metadata["quality_score"])
			assert.Len(t, result.Metadata["validation_errors"], tt.wantErrs)
		})
	}

	t.Run("failed capture untouched", func(t *testing.T) {
		result := &Result{Success: false}
		require.NoError(t, NewValidationPlugin().PostCapture(context.Background(), result, nil))
		assert.Nil(t, result.Metadata)
	})
}

func TestLoggingPlugin(t *testing.T) {
	log := &recordingLogger{}
	plugin := NewLoggingPlugin(log)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	plugin.now = func() time.Time { return start }

	md, err := plugin.PreCapture(context.Background(), "menu", fixedApp(t))
	require.NoError(t, err)
	assert.True(t, log.contains("Starting capture: app=demo, context=menu"))

	plugin.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	require.NoError(t, plugin.PostCapture(context.Background(), &Result{Success: true, ArtifactPath: "a.svg", FileSize: 10}, md))
	assert.True(t, log.contains("Capture succeeded: path=a.svg, size=10, duration=1.50s, cached=false"))

	require.NoError(t, plugin.PostCapture(context.Background(), &Result{ErrorMessage: "nope"}, md))
	assert.True(t, log.contains("ERROR Capture failed: error=nope"))

	require.NoError(t, plugin.OnFailure(context.Background(), errors.New("bad"), "menu"))
	assert.True(t, log.contains("Capture failure in context 'menu'"))
}

func TestMetricsPlugin(t *testing.T) {
	plugin := NewMetricsPlugin()
	ctx := context.Background()

	md, _ := plugin.PreCapture(ctx, "a", nil)
	require.NoError(t, plugin.PostCapture(ctx, &Result{Success: true, FileSize: 100}, md))

	md, _ = plugin.PreCapture(ctx, "b", nil)
	require.NoError(t, plugin.PostCapture(ctx, &Result{Success: true, FileSize: 300, CacheHit: true}, md))

	plugin.PreCapture(ctx, "c", nil)
	require.NoError(t, plugin.OnFailure(ctx, errors.New("x"), "c"))

	m := plugin.Metrics()
	assert.Equal(t, 3, m.TotalCaptures)
	assert.Equal(t, 2, m.SuccessfulCaptures)
	assert.Equal(t, 1, m.FailedCaptures)
	assert.Equal(t, 1, m.CacheHits)
	assert.InDelta(t, 2.0/3.0, m.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, m.CacheHitRate, 1e-9)
	assert.InDelta(t, 200.0, m.AverageFileSize, 1e-9)
	assert.GreaterOrEqual(t, m.AverageDuration, time.Duration(0))
	assert.Equal(t, 3, m.ToMap()["total_captures"])
}

func TestMetricsPluginEmpty(t *testing.T) {
	m := NewMetricsPlugin().Metrics()
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Equal(t, 0.0, m.AverageFileSize)
}

func TestContentKeyStable(t *testing.T) {
	app := fixedApp(t)
	k1 := ContentKey(app, "menu", FormatSVG)
	k2 := ContentKey(app, "menu", FormatSVG)
	assert.Len(t, k1, 16)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, ContentKey(app, "settings", FormatSVG))
	assert.NotEqual(t, k1, ContentKey(app, "menu", FormatPNG))
}

func TestBasicAppContext(t *testing.T) {
	app := fixedApp(t)
	assert.Equal(t, "demo", app.ContextName())
	assert.Contains(t, app.ID(), "demo_")
	assert.Equal(t, "dark", app.Metadata()["theme"])
	assert.Equal(t, "/usr/bin/demo --flag", app.Metadata()["command"])

	cmd, ok := app.Instance().(Command)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/demo", cmd.Path)

	unnamed := NewBasicAppContext("", Command{Path: "/opt/tools/top"}, nil)
	assert.Equal(t, "top", unnamed.ContextName())
}

func TestIsPNGAndFromFile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(png, append(append([]byte{}, pngMagic...), 0, 1, 2), 0o644))
	fake := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(fake, []byte("not a png at all"), 0o644))

	assert.True(t, IsPNG(png))
	assert.False(t, IsPNG(fake))
	assert.False(t, IsPNG(filepath.Join(dir, "missing.png")))

	r, err := FromFile(png, "menu")
	require.NoError(t, err)
	assert.True(t, r.HasArtifact())
	assert.Equal(t, FormatPNG, r.Format)
	assert.Equal(t, int64(11), r.FileSize)
	assert.Equal(t, png, r.PNGPath)

	_, err = FromFile(dir, "menu")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
