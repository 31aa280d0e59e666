package quality

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSizeScore(t *testing.T) {
	tests := []struct {
		size int64
		want float64
	}{
		{0, 0.0},
		{1999, 0.0},
		{2000, 0.0},
		{6000, 0.5},
		{10000, 1.0},
		{500000, 1.0},
		{1250000, 0.5},
		{2000000, 0.0},
		{5000000, 0.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SizeScore(tt.size), 1e-9, "size %d", tt.size)
	}
}

func TestStructureScore(t *testing.T) {
	t.Run("complete svg", func(t *testing.T) {
		path := write(t, "a.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1 1"><rect/></svg>`))
		assert.Equal(t, 1.0, StructureScore(path, capture.FormatSVG))
	})

	t.Run("bare root", func(t *testing.T) {
		path := write(t, "a.svg", []byte(`<svg/>`))
		assert.Equal(t, 0.25, StructureScore(path, capture.FormatSVG))
	})

	t.Run("malformed", func(t *testing.T) {
		path := write(t, "a.svg", []byte(`<svg><g></svg>`))
		assert.Equal(t, 0.0, StructureScore(path, capture.FormatSVG))
	})

	t.Run("png signature", func(t *testing.T) {
		good := write(t, "a.png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0})
		bad := write(t, "b.png", []byte("GIF89a......"))
		assert.Equal(t, 1.0, StructureScore(good, capture.FormatPNG))
		assert.Equal(t, 0.0, StructureScore(bad, capture.FormatPNG))
	})

	t.Run("other non-empty", func(t *testing.T) {
		path := write(t, "a.txt", []byte("x"))
		assert.Equal(t, 1.0, StructureScore(path, capture.Format("txt")))
	})
}

func TestComplexityScore(t *testing.T) {
	// 4 elements, 3 tags, 10 text chars.
	path := write(t, "a.svg", []byte(`<svg><rect/><text>hello</text><text>world</text></svg>`))
	want := 0.5*0.04 + 0.3*0.3 + 0.2*0.02
	assert.InDelta(t, want, ComplexityScore(path), 1e-9)

	raster := write(t, "a.png", make([]byte, 25000))
	assert.InDelta(t, 0.5, ComplexityScore(raster), 1e-9)

	broken := write(t, "b.svg", []byte(`<svg>`))
	assert.Equal(t, 0.5, ComplexityScore(broken))
}

func TestCompletenessScore(t *testing.T) {
	padding := strings.Repeat(" ", 2500)
	path := write(t, "a.svg", []byte(`<svg><style>.a{}</style><rect/><text>hi</text>`+padding+`</svg>`))
	info, err := os.Stat(path)
	require.NoError(t, err)

	want := 0.7*1.0 + 0.3*float64(info.Size())/20000
	assert.InDelta(t, want, CompletenessScore(path), 1e-9)

	small := write(t, "a.png", make([]byte, 500))
	assert.Equal(t, 0.3, CompletenessScore(small))
	mid := write(t, "b.png", make([]byte, 5000))
	assert.InDelta(t, 0.5, CompletenessScore(mid), 1e-9)
	big := write(t, "c.png", make([]byte, 10001))
	assert.Equal(t, 1.0, CompletenessScore(big))
}

func TestScoreOverallIsWeightedSum(t *testing.T) {
	path := write(t, "frame.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1 1"><rect/><text>x</text></svg>`))
	m := ScoreFile(path)

	want := 0.2*m.FileSize + 0.3*m.Complexity + 0.3*m.Structure + 0.2*m.Completeness
	assert.InDelta(t, want, m.Overall, 1e-12)
	assert.Equal(t, 1.0, m.Structure)

	for name, v := range m.ToMap() {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestScoreMissingArtifact(t *testing.T) {
	assert.Equal(t, Metrics{}, Score(capture.Result{Success: false}))
	assert.Equal(t, Metrics{}, Score(capture.Result{Success: true, ArtifactPath: filepath.Join(t.TempDir(), "gone.svg")}))
	assert.Equal(t, Metrics{}, ScoreFile(filepath.Join(t.TempDir(), "gone.svg")))
}
