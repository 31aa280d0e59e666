package fileutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("<svg/>"), 0644))
	}
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	sort.Strings(out)
	return out
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir,
		"main.svg",
		"menu.PNG",
		"notes.txt",
		"menu_baseline_1.svg",
		"apps/demo/main/main_20240101_000000.svg",
		"apps/demo/main/deep/frame.svg",
		".hidden/secret.svg",
		"cache/cached.svg",
	)

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{"flat", ScanOptions{}, []string{"main.svg", "menu.PNG", "menu_baseline_1.svg", "notes.txt"}},
		{"extensions are case-insensitive", ScanOptions{Extensions: []string{"png"}}, []string{"menu.PNG"}},
		{"pattern ignores extension", ScanOptions{Pattern: `_baseline_\d+$`}, []string{"menu_baseline_1.svg"}},
		{
			"recursive skips hidden and excluded",
			ScanOptions{Recursive: true, Extensions: []string{".svg"}, ExcludeDirs: []string{"cache"}},
			[]string{"frame.svg", "main.svg", "main_20240101_000000.svg", "menu_baseline_1.svg"},
		},
		{
			"max depth",
			ScanOptions{Recursive: true, Extensions: []string{".svg"}, ExcludeDirs: []string{"cache"}, MaxDepth: 3},
			[]string{"main.svg", "menu_baseline_1.svg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(dir, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, baseNames(result.Files))
			assert.Empty(t, result.Errors)
			for _, f := range result.Files {
				assert.True(t, filepath.IsAbs(f))
			}
		})
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	_, err := ScanDirectory(filepath.Join(t.TempDir(), "missing"), ScanOptions{})
	assert.ErrorContains(t, err, "failed to access directory")

	file := filepath.Join(t.TempDir(), "f.svg")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = ScanDirectory(file, ScanOptions{})
	assert.ErrorContains(t, err, "not a directory")

	_, err = ScanDirectory(t.TempDir(), ScanOptions{Pattern: "("})
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestFindArtifacts(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, "a.svg", "b.png", "c.txt", "cache/x.svg", "logs/y.svg", "sub/d.svg")

	files, err := FindArtifacts(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.svg", "b.png", "d.svg"}, baseNames(files))

	files, err = FindArtifacts(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.svg", "b.png"}, baseNames(files))
}

func TestExpandArtifactArgs(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, "shots/a.svg", "shots/b.svg", "single.dat")

	single := filepath.Join(dir, "single.dat")
	files, err := ExpandArtifactArgs([]string{single, filepath.Join(dir, "shots"), single}, false)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, single, files[0], "plain files keep their position")
	assert.Equal(t, []string{"a.svg", "b.svg", "single.dat"}, baseNames(files))

	_, err = ExpandArtifactArgs([]string{filepath.Join(dir, "nope.svg")}, false)
	assert.ErrorContains(t, err, "cannot read")
}

func TestPairArtifacts(t *testing.T) {
	root := t.TempDir()
	baseline := filepath.Join(root, "baseline")
	current := filepath.Join(root, "current")
	makeTree(t, baseline, "main.svg", "menu/open.svg", "removed.svg")
	makeTree(t, current, "main.svg", "menu/open.svg", "added.png")

	result, err := PairArtifacts(baseline, current, true)
	require.NoError(t, err)

	require.Len(t, result.Pairs, 2)
	assert.Equal(t, "main.svg", result.Pairs[0].Name)
	assert.Equal(t, "menu/open.svg", result.Pairs[1].Name)
	assert.Equal(t, filepath.Join(current, "menu", "open.svg"), result.Pairs[1].Current)
	assert.Equal(t, []string{"removed.svg"}, result.MissingInCurrent)
	assert.Equal(t, []string{"added.png"}, result.NewInCurrent)

	flat, err := PairArtifacts(baseline, current, false)
	require.NoError(t, err)
	assert.Len(t, flat.Pairs, 1)

	_, err = PairArtifacts(filepath.Join(root, "missing"), current, false)
	assert.ErrorContains(t, err, "baseline:")
}
