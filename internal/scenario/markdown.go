package scenario

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MarkdownParser reads scenarios written as Markdown. Optional YAML
// frontmatter carries scenario settings; each "## Capture: <name>" section
// describes one capture through "- key: value" bullets and a fenced code
// block tagged "interactions" holding one command per line.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

var captureHeading = regexp.MustCompile(`^Capture:\s*(.+)$`)

func (p *MarkdownParser) Parse(r io.Reader) (*Scenario, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var h header
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &h); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))
	raws, title, err := extractCaptures(doc, content)
	if err != nil {
		return nil, err
	}
	if h.Name == "" {
		h.Name = title
	}
	return build(h, raws)
}

// extractCaptures walks the top-level blocks. A level-1 heading names the
// scenario; level-2 headings open and close capture sections.
func extractCaptures(doc ast.Node, source []byte) ([]rawCapture, string, error) {
	var (
		raws    []rawCapture
		current *rawCapture
		title   string
	)
	flush := func() {
		if current != nil {
			raws = append(raws, *current)
			current = nil
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(inlineText(node, source))
			switch {
			case node.Level == 1 && title == "":
				title = strings.TrimSpace(strings.TrimPrefix(heading, "Scenario:"))
			case node.Level == 2:
				flush()
				if m := captureHeading.FindStringSubmatch(heading); m != nil {
					current = &rawCapture{Name: strings.TrimSpace(m[1])}
				}
			}

		case *ast.List:
			if current == nil {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				key, value, ok := strings.Cut(inlineText(item, source), ":")
				if !ok {
					continue
				}
				if err := setField(current, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
					return nil, "", fmt.Errorf("capture %s: %w", current.Name, err)
				}
			}

		case *ast.FencedCodeBlock:
			if current == nil || string(node.Language(source)) != "interactions" {
				continue
			}
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				line := strings.TrimSpace(string(seg.Value(source)))
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				current.Interactions = append(current.Interactions, line)
			}
		}
	}
	flush()
	return raws, title, nil
}

func setField(c *rawCapture, key, value string) error {
	switch key {
	case "command":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return nil
		}
		c.Command = fields[0]
		c.Args = append(c.Args, fields[1:]...)
	case "args":
		c.Args = append(c.Args, strings.Fields(value)...)
	case "dir":
		c.Dir = value
	case "env":
		c.Env = append(c.Env, value)
	case "context":
		c.Context = value
	case "format":
		c.Format = value
	case "interaction":
		c.Interactions = append(c.Interactions, value)
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

// inlineText concatenates the text beneath n, joining soft line breaks with
// a space.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractFrontmatter splits a leading "---" delimited YAML block from the body.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}
	return content, nil
}
