package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project state directory.
const HomeDirName = ".snapshots"

// Home returns the snapshots state directory.
// Priority order:
//  1. SNAPSHOTS_HOME environment variable (if set)
//  2. the nearest ancestor of the working directory holding .snapshots
//  3. .snapshots in the working directory (created)
func Home() (string, error) {
	if home := os.Getenv("SNAPSHOTS_HOME"); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if root, ok := findProjectRoot(cwd); ok {
		return filepath.Join(root, HomeDirName), nil
	}

	home := filepath.Join(cwd, HomeDirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create snapshots home directory: %w", err)
	}
	return home, nil
}

// findProjectRoot walks up from dir looking for an existing .snapshots directory.
func findProjectRoot(dir string) (string, bool) {
	current := dir
	for {
		info, err := os.Stat(filepath.Join(current, HomeDirName))
		if err == nil && info.IsDir() {
			return current, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// DefaultConfigPath returns $HOME_DIR/config.yaml for the resolved home.
func DefaultConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// ResolvePath anchors a relative state path such as ".snapshots/history.db"
// at the project root that owns home.
func ResolvePath(home, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(home), path)
}
