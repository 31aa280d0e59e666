package tmux

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/interaction"
	"github.com/leoric-crown/textual-snapshots/internal/svgdoc"
)

const (
	DefaultWidth          = 80
	DefaultHeight         = 24
	DefaultTimeout        = 30 * time.Second
	DefaultStartupTimeout = 5 * time.Second
)

// ErrUnsupported is returned for interactions a terminal pane cannot express.
var ErrUnsupported = errors.New("interaction not supported in a terminal pane")

// Options configures a Renderer.
type Options struct {
	TmuxPath       string
	Width          int
	Height         int
	Timeout        time.Duration
	StartupTimeout time.Duration
	Frame          svgdoc.FrameOptions
	Logger         capture.Logger
}

// Renderer implements capture.Renderer on top of tmux.
type Renderer struct {
	opts    Options
	tempDir string

	newExecutor func(socketPath, configPath string) Executor
}

var _ capture.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer. An empty TmuxPath is resolved from PATH.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.TmuxPath == "" {
		path, err := exec.LookPath("tmux")
		if err != nil {
			return nil, fmt.Errorf("tmux not found in PATH: %w", err)
		}
		opts.TmuxPath = path
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultStartupTimeout
	}

	tmuxPath := opts.TmuxPath
	return &Renderer{
		opts:    opts,
		tempDir: os.TempDir(),
		newExecutor: func(socketPath, configPath string) Executor {
			r := NewRunner(tmuxPath, socketPath)
			r.SetConfigPath(configPath)
			return r
		},
	}, nil
}

// Render launches the application described by req.App, replays the
// interactions and writes the final pane contents to req.Output.
func (r *Renderer) Render(ctx context.Context, req capture.RenderRequest) error {
	command, err := commandOf(req.App)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	socket, err := socketPath(r.tempDir, req.App.ID())
	if err != nil {
		return err
	}
	configPath := socket + ".conf"
	if err := writeConfig(configPath); err != nil {
		return err
	}
	defer os.Remove(configPath)

	ex := r.newExecutor(socket, configPath)
	defer func() {
		if _, err := ex.RunContext(context.Background(), "kill-server"); err != nil {
			r.debugf("tmux kill-server: %v", err)
		}
		os.Remove(socket)
	}()

	if _, err := ex.RunContext(ctx, sessionArgs(command, r.opts.Width, r.opts.Height)...); err != nil {
		return fmt.Errorf("start tmux session: %w", err)
	}
	pane, err := waitForPane(ctx, ex, r.opts.StartupTimeout)
	if err != nil {
		return err
	}
	r.debugf("tmux session for %s ready on pane %s", req.App.ID(), pane)

	step := func(ctx context.Context, cmd interaction.Command) error {
		return r.apply(ctx, ex, pane, cmd)
	}
	if err := capture.Replay(ctx, req.Commands, req.SettleDelay, step); err != nil {
		return err
	}

	if state, err := paneStatus(ctx, ex, pane); err == nil && state.dead {
		r.warnf("application %s exited with status %d before capture", command.Path, state.exitStatus)
	}

	out, err := ex.RunContext(ctx, "capture-pane", "-p", "-t", pane)
	if err != nil {
		return fmt.Errorf("capture pane: %w", err)
	}
	return r.writeFrame(req, splitRows(out))
}

func (r *Renderer) apply(ctx context.Context, ex Executor, pane string, cmd interaction.Command) error {
	switch cmd.Kind {
	case interaction.KindPress:
		key, err := KeyName(cmd.Target)
		if err != nil {
			return err
		}
		_, err = ex.RunContext(ctx, "send-keys", "-t", pane, key)
		return err
	case interaction.KindType:
		_, err := ex.RunContext(ctx, "send-keys", "-t", pane, "-l", cmd.Target)
		return err
	case interaction.KindWait:
		return wait(ctx, time.Duration(cmd.Duration*float64(time.Second)))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, cmd.Kind)
	}
}

func (r *Renderer) writeFrame(req capture.RenderRequest, rows []string) error {
	opts := r.opts.Frame
	opts.Columns = r.opts.Width
	opts.Rows = r.opts.Height
	if opts.Title == "" {
		opts.Title = req.App.ContextName()
	}

	f, err := os.Create(req.Output)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := svgdoc.WriteFrame(f, rows, opts); err != nil {
		f.Close()
		return fmt.Errorf("write frame: %w", err)
	}
	return f.Close()
}

func (r *Renderer) debugf(format string, args ...interface{}) {
	if r.opts.Logger != nil {
		r.opts.Logger.Debugf(format, args...)
	}
}

func (r *Renderer) warnf(format string, args ...interface{}) {
	if r.opts.Logger != nil {
		r.opts.Logger.Warnf(format, args...)
	}
}

func commandOf(app capture.AppContext) (capture.Command, error) {
	if app == nil {
		return capture.Command{}, errors.New("no application to render")
	}
	switch inst := app.Instance().(type) {
	case capture.Command:
		return inst, nil
	case *capture.Command:
		if inst != nil {
			return *inst, nil
		}
	}
	return capture.Command{}, fmt.Errorf("app %s: cannot launch instance of type %T", app.ID(), app.Instance())
}

// sessionArgs builds the new-session invocation. Environment is passed with
// -e so it reaches the application process itself.
func sessionArgs(c capture.Command, width, height int) []string {
	args := []string{
		"new-session", "-d",
		"-x", strconv.Itoa(width),
		"-y", strconv.Itoa(height),
	}
	if c.Dir != "" {
		args = append(args, "-c", c.Dir)
	}
	for _, e := range c.Env {
		args = append(args, "-e", e)
	}
	args = append(args, "--", c.Path)
	return append(args, c.Args...)
}

func writeConfig(path string) error {
	config := "set-option -g remain-on-exit on\nset-option -g status off\n"
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}
	return nil
}

// socketPath returns an unused socket path in dir.
func socketPath(dir, name string) (string, error) {
	b := make([]byte, 4)
	for i := 0; i < 10; i++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate socket name: %w", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("snapshots-%s-%s.sock", sanitizeName(name), hex.EncodeToString(b)))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", errors.New("could not generate unique socket path after 10 attempts")
}

// sanitizeName keeps socket names filesystem-safe and short; Unix sockets
// are limited to roughly 104 bytes.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

func waitForPane(ctx context.Context, ex Executor, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		out, err := ex.RunContext(ctx, "list-panes", "-F", "#{pane_id}")
		if err == nil {
			pane, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
			if pane != "" {
				return pane, nil
			}
			err = errors.New("no panes")
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("tmux session not ready after %v: %w", timeout, err)
		}
		if err := wait(ctx, 10*time.Millisecond); err != nil {
			return "", err
		}
	}
}

type paneState struct {
	dead       bool
	exitStatus int
}

func paneStatus(ctx context.Context, ex Executor, pane string) (paneState, error) {
	out, err := ex.RunContext(ctx, "list-panes", "-t", pane, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return paneState{}, err
	}
	dead, status, _ := strings.Cut(strings.TrimSpace(out), " ")
	state := paneState{dead: dead == "1"}
	if state.dead {
		state.exitStatus, _ = strconv.Atoi(status)
	}
	return state, nil
}

// splitRows turns capture-pane output into rows, dropping the trailing
// newline tmux appends.
func splitRows(out string) []string {
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
