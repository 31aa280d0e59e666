// Package capture orchestrates frame captures of terminal applications:
// application contexts, a content-keyed cache, lifecycle hooks and the
// result type consumed by the detection and validation engines.
package capture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is the artifact encoding produced by a capture.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatBoth Format = "both"
)

// ParseFormat accepts svg, png or both (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSVG, "":
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	case FormatBoth:
		return FormatBoth, nil
	}
	return "", fmt.Errorf("invalid format %q (must be svg, png or both)", s)
}

// FormatOf derives the format of a single artifact from its extension.
// Anything that is not .svg or .png is reported with its bare extension.
func FormatOf(path string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "svg":
		return FormatSVG
	case "png":
		return FormatPNG
	}
	return Format(ext)
}

// Result describes one capture attempt. ArtifactPath is the primary artifact
// and is empty when the capture failed.
type Result struct {
	Success      bool
	ArtifactPath string
	SVGPath      string
	PNGPath      string
	Format       Format
	FileSize     int64
	SVGSize      int64
	PNGSize      int64

	Context      string
	App          AppContext
	ErrorMessage string
	CacheHit     bool

	// Metadata is filled by hooks (for example the validation plugin).
	Metadata map[string]any

	Timestamp      time.Time
	ConversionTime time.Duration
}

// HasArtifact reports whether the result points at an artifact on disk.
func (r Result) HasArtifact() bool {
	return r.Success && r.ArtifactPath != ""
}

// ArtifactFormat is the format of the primary artifact. Results recorded as
// FormatBoth resolve to the primary artifact's own extension.
func (r Result) ArtifactFormat() Format {
	if r.Format == "" || r.Format == FormatBoth {
		return FormatOf(r.ArtifactPath)
	}
	return r.Format
}

// SetMetadata records a key on the result, allocating the map on first use.
func (r *Result) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// FromFile builds a successful Result for an artifact already on disk, as
// produced by an earlier capture or supplied on the command line.
func FromFile(path, contextName string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("artifact %s is a directory", path)
	}

	r := Result{
		Success:      true,
		ArtifactPath: path,
		Format:       FormatOf(path),
		FileSize:     info.Size(),
		Context:      contextName,
		Timestamp:    info.ModTime().UTC(),
	}
	switch r.Format {
	case FormatSVG:
		r.SVGPath, r.SVGSize = path, info.Size()
	case FormatPNG:
		r.PNGPath, r.PNGSize = path, info.Size()
	}
	return r, nil
}

// Failed builds an unsuccessful Result.
func Failed(contextName string, app AppContext, message string) Result {
	return Result{
		Success:      false,
		Context:      contextName,
		App:          app,
		ErrorMessage: message,
		Timestamp:    time.Now().UTC(),
	}
}

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG reports whether the file starts with the PNG signature.
func IsPNG(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(pngMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, pngMagic)
}
