// Package tmux renders terminal applications into vector frames. Each render
// runs the application inside a private tmux server, replays the scripted
// interactions as key presses and writes the captured pane as SVG.
package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs tmux subcommands against one server.
type Executor interface {
	RunContext(ctx context.Context, args ...string) (string, error)
}

// Runner executes tmux commands against a specific server socket.
type Runner struct {
	tmuxPath   string
	socketPath string
	configPath string
}

// NewRunner creates a Runner bound to the given tmux binary and socket path.
func NewRunner(tmuxPath, socketPath string) *Runner {
	return &Runner{
		tmuxPath:   tmuxPath,
		socketPath: socketPath,
	}
}

// SetConfigPath makes every invocation load the given config file.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// SocketPath returns the socket path used by this runner.
func (r *Runner) SocketPath() string {
	return r.socketPath
}

// Args returns the full argument list for a tmux subcommand.
func (r *Runner) Args(args ...string) []string {
	var full []string
	if r.configPath != "" {
		full = append(full, "-f", r.configPath)
	}
	full = append(full, "-S", r.socketPath)
	return append(full, args...)
}

// RunContext executes a tmux command and returns its stdout. Failures are
// reported as *Error carrying the command's stderr.
func (r *Runner) RunContext(ctx context.Context, args ...string) (string, error) {
	full := r.Args(args...)
	cmd := exec.CommandContext(ctx, r.tmuxPath, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		op := ""
		if len(args) > 0 {
			op = args[0]
		}
		return "", &Error{
			Op:     op,
			Args:   full,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Error represents a tmux command failure.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tmux %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Version runs "tmux -V" and returns the version string, e.g. "3.4".
func Version(ctx context.Context, tmuxPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tmuxPath, "-V")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux -V failed: %v (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimPrefix(strings.TrimSpace(stdout.String()), "tmux "), nil
}
