package display

import (
	"fmt"
	"io"
)

// ProgressIndicator prints one line per step of a multi-item operation:
//
//	Capturing 3 screen(s):
//	  [1/3] main
//	  [2/3] settings
//	✓ Captured 3 screen(s)
type ProgressIndicator struct {
	writer  io.Writer
	total   int
	current int
	verb    string
	done    string
	colors  palette
}

// NewProgressIndicator creates an indicator. verb is the present
// participle for the header ("Capturing"), done the past tense for the
// footer ("Captured").
func NewProgressIndicator(w io.Writer, total int, verb, done string) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		total:  total,
		verb:   verb,
		done:   done,
		colors: paletteFor(w),
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start(noun string) {
	fmt.Fprintf(p.writer, "%s %d %s:\n", p.verb, p.total, noun)
}

// Step displays "[N/Total] name" for the next item.
func (p *ProgressIndicator) Step(name string) {
	p.current++
	fmt.Fprintln(p.writer, p.colors.cyan(fmt.Sprintf("  [%d/%d] %s", p.current, p.total, name)))
}

// Complete displays the footer. failed > 0 switches the mark to a red cross.
func (p *ProgressIndicator) Complete(noun string, failed int) {
	if failed > 0 {
		fmt.Fprintf(p.writer, "%s %s %d %s, %d failed\n", p.colors.red("✗"), p.done, p.total-failed, noun, failed)
		return
	}
	fmt.Fprintf(p.writer, "%s %s %d %s\n", p.colors.green("✓"), p.done, p.total, noun)
}

// DisplaySingle shows a one-line message for single-item operations.
func DisplaySingle(w io.Writer, verb, name string) {
	fmt.Fprintf(w, "%s %s...\n", verb, name)
}
