package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := ForceColor
	ForceColor = &enabled
	t.Cleanup(func() { ForceColor = prev })
}

func TestWarningDisplay(t *testing.T) {
	tests := []struct {
		name    string
		warning Warning
		want    string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "Baselines missing"},
			want:    "⚠️  Warning: Baselines missing\n",
		},
		{
			name:    "message and single file",
			warning: Warning{Title: "T", Message: "details", Files: []string{"a.svg"}},
			want:    "⚠️  Warning: T\n    details\n    Affected file:\n      1. a.svg\n",
		},
		{
			name:    "files and suggestion",
			warning: Warning{Title: "T", Files: []string{"a.svg", "b.svg"}, Suggestion: "do it"},
			want:    "⚠️  Warning: T\n    Affected files:\n      1. a.svg\n      2. b.svg\n    Suggestion:\n    do it\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withColor(t, false)
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWarningDisplayColor(t *testing.T) {
	withColor(t, true)
	var buf bytes.Buffer
	Warning{Title: "T"}.Display(&buf)
	assert.Equal(t, "\x1b[33m⚠️  Warning: T\n\x1b[0m", buf.String())
}

func TestBuffersAreNotTerminals(t *testing.T) {
	assert.False(t, colorEnabled(&bytes.Buffer{}))
}

func TestWarnUnpairedArtifacts(t *testing.T) {
	_, ok := WarnUnpairedArtifacts(nil, nil)
	assert.False(t, ok)

	w, ok := WarnUnpairedArtifacts([]string{"old.svg"}, []string{"new.svg", "other.svg"})
	assert.True(t, ok)
	assert.Equal(t, []string{"missing: old.svg", "new: new.svg", "new: other.svg"}, w.Files)
	assert.Contains(t, w.Message, "1 baseline frame(s)")
	assert.Contains(t, w.Message, "2 capture(s)")
}

func TestWarnInvalidInteractions(t *testing.T) {
	seq := interaction.ValidateSequence([]string{"f2", "press:enter", "wait:-1"})
	w := WarnInvalidInteractions("settings", seq)

	assert.Equal(t, "Invalid interactions in settings", w.Title)
	assert.Equal(t, "2 of 3 interaction(s) rejected", w.Message)
	assert.Len(t, w.Files, 2)
	assert.Contains(t, w.Files[0], "#1 'f2'")
	assert.Contains(t, w.Files[1], "#3 'wait:-1'")
}

func TestWarnFiles(t *testing.T) {
	w := WarnFiles("Skipped", []string{"x"})
	assert.Equal(t, Warning{Title: "Skipped", Files: []string{"x"}}, w)
}
