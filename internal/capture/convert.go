package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandConverter rasterises frames with an external tool that accepts
// "-o <png> <svg>", such as rsvg-convert.
type CommandConverter struct {
	Path string
	Args []string
}

// NewCommandConverter locates tool on PATH.
func NewCommandConverter(tool string, extraArgs ...string) (*CommandConverter, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", tool, err)
	}
	return &CommandConverter{Path: path, Args: extraArgs}, nil
}

// Convert runs the tool and returns its stderr on failure.
func (c *CommandConverter) Convert(ctx context.Context, svgPath, pngPath string) error {
	args := append(append([]string{}, c.Args...), "-o", pngPath, svgPath)
	cmd := exec.CommandContext(ctx, c.Path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", c.Path, err)
		}
		return fmt.Errorf("%s: %w: %s", c.Path, err, msg)
	}
	return nil
}
