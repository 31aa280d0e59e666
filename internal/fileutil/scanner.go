package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ArtifactExtensions are the frame formats the tool reads.
var ArtifactExtensions = []string{".svg", ".png"}

// ScenarioExtensions are the scenario file formats.
var ScenarioExtensions = []string{".yaml", ".yml", ".md", ".markdown"}

// artifactExcludes are directories under a capture tree that never hold
// comparable frames.
var artifactExcludes = []string{"cache", "logs"}

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Pattern is a regex matched against the filename without extension
	Pattern string
	// Extensions filters by extension, case-insensitive (e.g. ".svg")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs lists directory names to skip. Hidden directories are always skipped.
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files holds absolute paths of matched files, sorted
	Files []string
	// Errors holds non-fatal errors; the walk continues past them
	Errors []error
}

// ScanDirectory scans a directory for files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var patternRegex *regexp.Regexp
	if opts.Pattern != "" {
		patternRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || strings.HasPrefix(d.Name(), ".") || !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				relPath, _ := filepath.Rel(dir, path)
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		filename := d.Name()
		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(filename))] {
			return nil
		}
		if patternRegex != nil && !patternRegex.MatchString(strings.TrimSuffix(filename, filepath.Ext(filename))) {
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// FindArtifacts lists the SVG and PNG frames under dir. Cache and log
// directories are skipped.
func FindArtifacts(dir string, recursive bool) ([]string, error) {
	result, err := ScanDirectory(dir, ScanOptions{
		Extensions:  ArtifactExtensions,
		Recursive:   recursive,
		ExcludeDirs: artifactExcludes,
	})
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// ExpandArtifactArgs turns command-line arguments into a flat list of
// artifact files. Directories are scanned for frames; plain files are kept
// as given, whatever their extension. Order follows the arguments and
// duplicates are dropped.
func ExpandArtifactArgs(args []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		files, err := FindArtifacts(arg, recursive)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

// Pair is one artifact present under both a baseline and a current tree.
type Pair struct {
	Name     string // path relative to both roots
	Baseline string
	Current  string
}

// PairResult is the outcome of matching two artifact trees by relative path.
type PairResult struct {
	Pairs []Pair
	// MissingInCurrent lists baseline artifacts with no current counterpart.
	MissingInCurrent []string
	// NewInCurrent lists current artifacts with no baseline.
	NewInCurrent []string
}

// PairArtifacts matches frames in baselineDir and currentDir by their path
// relative to each root.
func PairArtifacts(baselineDir, currentDir string, recursive bool) (*PairResult, error) {
	baseline, err := relativeArtifacts(baselineDir, recursive)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	current, err := relativeArtifacts(currentDir, recursive)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}

	result := &PairResult{}
	for _, name := range sortedKeys(baseline) {
		if cur, ok := current[name]; ok {
			result.Pairs = append(result.Pairs, Pair{Name: name, Baseline: baseline[name], Current: cur})
		} else {
			result.MissingInCurrent = append(result.MissingInCurrent, name)
		}
	}
	for _, name := range sortedKeys(current) {
		if _, ok := baseline[name]; !ok {
			result.NewInCurrent = append(result.NewInCurrent, name)
		}
	}
	return result, nil
}

func relativeArtifacts(dir string, recursive bool) (map[string]string, error) {
	files, err := FindArtifacts(dir, recursive)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, err
		}
		out[filepath.ToSlash(rel)] = f
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
