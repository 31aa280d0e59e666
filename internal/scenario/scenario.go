// Package scenario loads capture scenarios: named lists of captures, each
// with the command to launch, the context it records and the interactions to
// replay first. Scenarios are written in YAML or Markdown.
package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

// Format represents the format of a scenario file
type Format int

const (
	FormatUnknown Format = iota
	FormatMarkdown
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// DetectFormat picks the format from the file extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Name        string
	App         string
	SettleDelay time.Duration
	Captures    []Capture
	FilePath    string
}

// Capture is one frame to record. Interactions hold the validated
// "kind:target" strings in replay order.
type Capture struct {
	Name         string
	Command      string
	Args         []string
	Dir          string
	Env          []string
	Context      string
	Format       capture.Format
	Interactions []string
}

// AppContext builds the application context a renderer launches.
func (c Capture) AppContext(app string) *capture.BasicAppContext {
	return capture.NewBasicAppContext(app, capture.Command{
		Path: c.Command,
		Args: c.Args,
		Dir:  c.Dir,
		Env:  c.Env,
	}, map[string]any{"capture": c.Name})
}

// Select returns the captures with the given names, in scenario order. No
// names selects every capture.
func (s *Scenario) Select(names ...string) ([]Capture, error) {
	if len(names) == 0 {
		return s.Captures, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Capture
	for _, c := range s.Captures {
		if wanted[c.Name] {
			out = append(out, c)
			delete(wanted, c.Name)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, n := range names {
			if wanted[n] {
				missing = append(missing, n)
			}
		}
		return nil, fmt.Errorf("unknown capture(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Parser reads a scenario from r.
type Parser interface {
	Parse(r io.Reader) (*Scenario, error)
}

// NewParser creates a parser for the given format.
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile detects the format from the extension, parses the file and
// records its absolute path.
func ParseFile(path string) (*Scenario, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml)", path)
	}
	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	s, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.FilePath = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// rawCapture is the loosely typed form both parsers produce. Interactions
// stay untyped so validation can report non-string entries.
type rawCapture struct {
	Name         string   `yaml:"name"`
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	Dir          string   `yaml:"dir"`
	Env          []string `yaml:"env"`
	Context      string   `yaml:"context"`
	Format       string   `yaml:"format"`
	Interactions []any    `yaml:"interactions"`
}

// header holds scenario-level settings.
type header struct {
	Name        string `yaml:"name"`
	App         string `yaml:"app"`
	SettleDelay string `yaml:"settle_delay"`
}

// build validates every capture and collects every problem before failing.
func build(h header, raws []rawCapture) (*Scenario, error) {
	s := &Scenario{Name: h.Name, App: h.App}
	verr := &Error{}

	if h.SettleDelay != "" {
		d, err := time.ParseDuration(h.SettleDelay)
		if err != nil || d < 0 {
			verr.add("", "settle_delay", fmt.Sprintf("invalid duration %q", h.SettleDelay))
		}
		s.SettleDelay = d
	}
	if len(raws) == 0 {
		verr.add("", "captures", "scenario defines no captures")
	}

	seen := make(map[string]bool, len(raws))
	for i, raw := range raws {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
			verr.add(name, "name", "capture name is required")
		} else if seen[name] {
			verr.add(name, "name", "duplicate capture name")
		}
		seen[name] = true

		if strings.TrimSpace(raw.Command) == "" {
			verr.add(name, "command", "command is required")
		}

		format, err := capture.ParseFormat(raw.Format)
		if err != nil {
			verr.add(name, "format", err.Error())
		}

		seq := interaction.ValidateValues(raw.Interactions)
		if !seq.IsValid {
			verr.addSequence(name, seq)
		}

		ctxName := strings.TrimSpace(raw.Context)
		if ctxName == "" {
			ctxName = name
		}
		s.Captures = append(s.Captures, Capture{
			Name:         name,
			Command:      strings.TrimSpace(raw.Command),
			Args:         raw.Args,
			Dir:          raw.Dir,
			Env:          raw.Env,
			Context:      ctxName,
			Format:       format,
			Interactions: seq.Validated,
		})
	}

	if verr.HasProblems() {
		return nil, verr
	}
	return s, nil
}
