package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated project: SNAPSHOTS_HOME points at root/.snapshots
// so history and logs never touch the working tree.
type testEnv struct {
	root string
	home string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, ".snapshots")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("SNAPSHOTS_HOME", home)
	return testEnv{root: root, home: home}
}

// writeConfig writes .snapshots/config.yaml with every directory under the
// test root. validation is appended inside the validation section, extra
// at the top level.
func (e testEnv) writeConfig(t *testing.T, validation, extra string) {
	t.Helper()
	cfg := fmt.Sprintf("validation:\n  baseline_dir: %s\n  platform_dir: %s\n%scapture:\n  base_dir: %s\n%s",
		e.path("baselines"), e.path("platform_refs"), validation, e.path("screenshots"), extra)
	require.NoError(t, os.WriteFile(filepath.Join(e.home, "config.yaml"), []byte(cfg), 0o644))
}

// lenientQuality disables the quality minimums.
const lenientQuality = `  quality:
    file_size_min: 0
    content_complexity_min: 0
    structure_min: 0
    completeness_min: 0
    overall_min: 0
`

func (e testEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

func (e testEnv) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := e.path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// healthyFrame is a rendered terminal frame that passes detection with no
// issues.
func healthyFrame() string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600" width="800" height="600">`)
	b.WriteString(`<style>.r{fill:#fff}</style><g>`)
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<rect x="0" y="%d" width="800" height="20"/>`, i*20)
		fmt.Fprintf(&b, `<text x="4" y="%d">row %02d of the rendered terminal screen..</text>`, i*20+14, i)
	}
	b.WriteString(`</g>`)
	doc := b.String()
	filler := 3000 - len(doc) - len("<!---->") - len("</svg>")
	return doc + "<!--" + strings.Repeat("x", filler) + "-->" + "</svg>"
}

// otherFrame differs from healthyFrame in structure and size.
func otherFrame() string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600">`)
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, `<circle cx="%d" cy="10" r="3"/><path d="M0 %d h10"/>`, i, i)
	}
	b.WriteString(`</svg>`)
	return b.String()
}
