package capture

import (
	"context"
	"fmt"
	"sync"
)

// Logger is the logging surface the capture package needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Hook observes the capture lifecycle. PreCapture may return metadata that is
// handed to PostCapture. PostCapture may annotate the result.
type Hook interface {
	PreCapture(ctx context.Context, contextName string, app AppContext) (map[string]any, error)
	PostCapture(ctx context.Context, result *Result, metadata map[string]any) error
	OnSuccess(ctx context.Context, result *Result) error
	OnFailure(ctx context.Context, err error, contextName string) error
}

// BasePlugin implements Hook with no-ops. Embed it and override what you need.
type BasePlugin struct{}

func (BasePlugin) PreCapture(context.Context, string, AppContext) (map[string]any, error) {
	return map[string]any{}, nil
}

func (BasePlugin) PostCapture(context.Context, *Result, map[string]any) error { return nil }

func (BasePlugin) OnSuccess(context.Context, *Result) error { return nil }

func (BasePlugin) OnFailure(context.Context, error, string) error { return nil }

// Hooks runs registered hooks in registration order. A hook that returns an
// error or panics is logged and skipped; it never fails the capture.
type Hooks struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger Logger
}

// NewHooks creates an invoker. logger may be nil.
func NewHooks(logger Logger, hooks ...Hook) *Hooks {
	return &Hooks{hooks: hooks, logger: logger}
}

// Register appends a hook.
func (h *Hooks) Register(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Len returns the number of registered hooks.
func (h *Hooks) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks)
}

func (h *Hooks) snapshot() []Hook {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Hook, len(h.hooks))
	copy(out, h.hooks)
	return out
}

// PreCapture runs every pre-capture hook and merges the returned metadata.
// Later hooks win on key collisions.
func (h *Hooks) PreCapture(ctx context.Context, contextName string, app AppContext) map[string]any {
	merged := make(map[string]any)
	for _, hook := range h.snapshot() {
		h.guard("Pre-capture", func() error {
			md, err := hook.PreCapture(ctx, contextName, app)
			for k, v := range md {
				merged[k] = v
			}
			return err
		})
	}
	return merged
}

// PostCapture runs every post-capture hook.
func (h *Hooks) PostCapture(ctx context.Context, result *Result, metadata map[string]any) {
	for _, hook := range h.snapshot() {
		h.guard("Post-capture", func() error {
			return hook.PostCapture(ctx, result, metadata)
		})
	}
}

// OnSuccess runs every success hook.
func (h *Hooks) OnSuccess(ctx context.Context, result *Result) {
	for _, hook := range h.snapshot() {
		h.guard("Success", func() error {
			return hook.OnSuccess(ctx, result)
		})
	}
}

// OnFailure runs every failure hook.
func (h *Hooks) OnFailure(ctx context.Context, err error, contextName string) {
	for _, hook := range h.snapshot() {
		h.guard("Failure", func() error {
			return hook.OnFailure(ctx, err, contextName)
		})
	}
}

func (h *Hooks) guard(stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			h.warnf("%s hook panicked: %v", stage, r)
		}
	}()
	if err := fn(); err != nil {
		h.warnf("%s hook failed: %v", stage, err)
	}
}

func (h *Hooks) warnf(format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Warnf(format, args...)
}

// hookError is returned by plugins that refuse to run, for example when
// handed a nil result.
func hookError(name, reason string) error {
	return fmt.Errorf("%s: %s", name, reason)
}
