package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/interaction"
)

// DefaultSettleDelay is the pause after each interaction.
const DefaultSettleDelay = 100 * time.Millisecond

// RenderRequest is everything a renderer needs to produce one frame.
type RenderRequest struct {
	App         AppContext
	Commands    []interaction.Command
	Output      string
	SettleDelay time.Duration
}

// Renderer drives the application and writes a vector frame to Output.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
}

// Converter rasterises a vector frame.
type Converter interface {
	Convert(ctx context.Context, svgPath, pngPath string) error
}

// Replay runs commands strictly in order, waiting settle after each one.
// It stops at the first step error or when ctx is done.
func Replay(ctx context.Context, commands []interaction.Command, settle time.Duration, step func(context.Context, interaction.Command) error) error {
	for i, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx, cmd); err != nil {
			return fmt.Errorf("interaction %d (%s): %w", i, cmd, err)
		}
		if err := sleep(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
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

// Options configures a Capturer.
type Options struct {
	BaseDir     string
	CacheTTL    time.Duration
	SettleDelay time.Duration
	Converter   Converter
	Logger      Logger
}

// Capturer produces frames through a Renderer, caching results by content
// key and notifying hooks along the way.
type Capturer struct {
	baseDir   string
	renderer  Renderer
	converter Converter
	cache     *Cache
	hooks     *Hooks
	settle    time.Duration
	logger    Logger
	now       func() time.Time
}

// ErrNoConverter is returned when PNG output is requested without a Converter.
var ErrNoConverter = errors.New("png output requires a converter")

// New creates a Capturer and its directory layout under opts.BaseDir
// (default "screenshots").
func New(renderer Renderer, opts Options, hooks ...Hook) (*Capturer, error) {
	if renderer == nil {
		return nil, errors.New("capture: renderer is required")
	}
	if opts.BaseDir == "" {
		opts.BaseDir = "screenshots"
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	for _, dir := range []string{"apps", "contexts", "cache"} {
		if err := os.MkdirAll(filepath.Join(opts.BaseDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &Capturer{
		baseDir:   opts.BaseDir,
		renderer:  renderer,
		converter: opts.Converter,
		cache:     NewCache(opts.CacheTTL),
		hooks:     NewHooks(opts.Logger, hooks...),
		settle:    opts.SettleDelay,
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

// Cache exposes the capture cache.
func (c *Capturer) Cache() *Cache { return c.cache }

// Register adds a lifecycle hook.
func (c *Capturer) Register(hook Hook) { c.hooks.Register(hook) }

// Layout returns the directory frames for app and contextName are written to.
func (c *Capturer) Layout(app AppContext, contextName string) string {
	return filepath.Join(c.baseDir, "apps", sanitize(app.ContextName()), sanitize(contextName))
}

// Capture renders app after replaying raw interactions. Invalid interactions
// fail the capture with the formatted error report before anything runs.
// The returned Result is never nil-valued; failures set Success=false.
func (c *Capturer) Capture(ctx context.Context, app AppContext, contextName string, format Format, raw []string) Result {
	if contextName == "" {
		contextName = "capture"
	}
	if format == "" {
		format = FormatSVG
	}

	hookMetadata := c.hooks.PreCapture(ctx, contextName, app)

	key := ContentKey(app, contextName, format)
	if entry, ok := c.cache.Get(key); ok {
		result := c.cachedResult(entry, app, contextName, format)
		c.hooks.PostCapture(ctx, &result, hookMetadata)
		c.hooks.OnSuccess(ctx, &result)
		return result
	}

	seq := interaction.ValidateSequence(raw)
	if !seq.IsValid {
		return c.fail(ctx, app, contextName, errors.New(interaction.FormatErrors(seq)))
	}
	commands, err := interaction.DecodeAll(seq.Validated)
	if err != nil {
		return c.fail(ctx, app, contextName, err)
	}

	dir := c.Layout(app, contextName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return c.fail(ctx, app, contextName, fmt.Errorf("screenshot capture failed: %w", err))
	}

	stamp := c.now().UTC().Format("20060102_150405")
	svgPath := filepath.Join(dir, fmt.Sprintf("%s_%s.svg", sanitize(contextName), stamp))

	req := RenderRequest{App: app, Commands: commands, Output: svgPath, SettleDelay: c.settle}
	if err := c.renderer.Render(ctx, req); err != nil {
		return c.fail(ctx, app, contextName, fmt.Errorf("screenshot capture failed: %w", err))
	}

	info, err := os.Stat(svgPath)
	if err != nil {
		return c.fail(ctx, app, contextName, errors.New("screenshot file was not created"))
	}

	result := Result{
		Success:      true,
		ArtifactPath: svgPath,
		SVGPath:      svgPath,
		SVGSize:      info.Size(),
		FileSize:     info.Size(),
		Format:       format,
		Context:      contextName,
		App:          app,
		Timestamp:    c.now().UTC(),
	}

	if format == FormatPNG || format == FormatBoth {
		if err := c.convert(ctx, &result); err != nil {
			return c.fail(ctx, app, contextName, err)
		}
	}

	c.cache.Put(key, result.ArtifactPath)

	c.hooks.PostCapture(ctx, &result, hookMetadata)
	c.hooks.OnSuccess(ctx, &result)
	return result
}

func (c *Capturer) convert(ctx context.Context, result *Result) error {
	if c.converter == nil {
		return ErrNoConverter
	}

	pngPath := strings.TrimSuffix(result.SVGPath, filepath.Ext(result.SVGPath)) + ".png"
	start := c.now()
	if err := c.converter.Convert(ctx, result.SVGPath, pngPath); err != nil {
		return fmt.Errorf("png conversion failed: %w", err)
	}
	result.ConversionTime = c.now().Sub(start)

	info, err := os.Stat(pngPath)
	if err != nil {
		return fmt.Errorf("conversion completed but output file not found: %s", pngPath)
	}
	result.PNGPath = pngPath
	result.PNGSize = info.Size()

	if result.Format == FormatPNG {
		result.ArtifactPath = pngPath
		result.FileSize = info.Size()
	}
	return nil
}

func (c *Capturer) cachedResult(entry Entry, app AppContext, contextName string, format Format) Result {
	var size int64
	if info, err := os.Stat(entry.ArtifactPath); err == nil {
		size = info.Size()
	}

	result := Result{
		Success:      true,
		ArtifactPath: entry.ArtifactPath,
		FileSize:     size,
		Format:       format,
		Context:      contextName,
		App:          app,
		CacheHit:     true,
		Timestamp:    c.now().UTC(),
	}
	switch format {
	case FormatPNG:
		result.PNGPath, result.PNGSize = entry.ArtifactPath, size
	case FormatBoth:
		result.SVGPath, result.SVGSize = entry.ArtifactPath, size
		pngPath := strings.TrimSuffix(entry.ArtifactPath, filepath.Ext(entry.ArtifactPath)) + ".png"
		if info, err := os.Stat(pngPath); err == nil {
			result.PNGPath, result.PNGSize = pngPath, info.Size()
		}
	default:
		result.SVGPath, result.SVGSize = entry.ArtifactPath, size
	}
	return result
}

func (c *Capturer) fail(ctx context.Context, app AppContext, contextName string, err error) Result {
	if c.logger != nil {
		c.logger.Debugf("capture %s failed: %v", contextName, err)
	}
	c.hooks.OnFailure(ctx, err, contextName)
	return Failed(contextName, app, err.Error())
}

// sanitize makes a name safe for use as a path component.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "unnamed"
	}
	return out
}
