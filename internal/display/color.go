package display

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
)

// ForceColor overrides terminal detection. Tests set it to get stable
// escape codes; the CLI sets it to false for --no-color.
var ForceColor *bool

// colorEnabled reports whether w is a terminal that should get ANSI codes.
// NO_COLOR disables color everywhere.
func colorEnabled(w io.Writer) bool {
	if ForceColor != nil {
		return *ForceColor
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// palette wraps text in ANSI codes when enabled.
type palette struct {
	enabled bool
}

func paletteFor(w io.Writer) palette {
	return palette{enabled: colorEnabled(w)}
}

func (p palette) wrap(code, s string) string {
	if !p.enabled || s == "" {
		return s
	}
	return code + s + ansiReset
}

func (p palette) red(s string) string    { return p.wrap(ansiRed, s) }
func (p palette) green(s string) string  { return p.wrap(ansiGreen, s) }
func (p palette) yellow(s string) string { return p.wrap(ansiYellow, s) }
func (p palette) blue(s string) string   { return p.wrap(ansiBlue, s) }
func (p palette) cyan(s string) string   { return p.wrap(ansiCyan, s) }
func (p palette) bold(s string) string   { return p.wrap(ansiBold, s) }

// score colors a 0..1 score green at or above pass and red below it.
func (p palette) score(v, pass float64, text string) string {
	if v >= pass {
		return p.green(text)
	}
	return p.red(text)
}
