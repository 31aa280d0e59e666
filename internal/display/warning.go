package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow on terminals.
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected file:\n")
		} else {
			b.WriteString("    Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	text := b.String()
	if p := paletteFor(out); p.enabled {
		text = ansiYellow + text + ansiReset
	}
	fmt.Fprint(out, text)
}

// WarnFiles creates a warning listing affected files.
func WarnFiles(title string, files []string) Warning {
	return Warning{
		Title: title,
		Files: files,
	}
}

// WarnUnpairedArtifacts reports frames that exist on only one side of a
// directory comparison. It returns false when there is nothing to report.
func WarnUnpairedArtifacts(missing, added []string) (Warning, bool) {
	if len(missing) == 0 && len(added) == 0 {
		return Warning{}, false
	}

	var files []string
	for _, m := range missing {
		files = append(files, "missing: "+m)
	}
	for _, a := range added {
		files = append(files, "new: "+a)
	}
	return Warning{
		Title:      "Unmatched artifacts",
		Message:    fmt.Sprintf("%d baseline frame(s) have no current capture, %d capture(s) have no baseline", len(missing), len(added)),
		Files:      files,
		Suggestion: "Promote new captures with 'snapshots promote' or remove stale baselines",
	}, true
}

// WarnInvalidInteractions summarizes a failed sequence validation for one
// capture. The full report comes from interaction.FormatErrors.
func WarnInvalidInteractions(captureName string, seq interaction.SequenceResult) Warning {
	var bad []string
	for _, e := range seq.Errors {
		bad = append(bad, fmt.Sprintf("#%d '%s': %s", e.Index+1, e.Raw, e.Message))
	}
	return Warning{
		Title:      fmt.Sprintf("Invalid interactions in %s", captureName),
		Message:    fmt.Sprintf("%d of %d interaction(s) rejected", len(seq.Errors), len(seq.Errors)+len(seq.Validated)),
		Files:      bad,
		Suggestion: "Use 'kind:target' format, e.g. press:enter, click:#button, wait:0.5",
	}
}
