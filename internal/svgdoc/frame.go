package svgdoc

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// FrameOptions controls how terminal rows are laid out in a vector frame.
type FrameOptions struct {
	Title      string
	Columns    int
	Rows       int
	CellWidth  float64
	LineHeight float64
	FontSize   float64
	Background string
	Foreground string
}

// DefaultFrameOptions returns options for an 80x24 terminal.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{
		Columns:    80,
		Rows:       24,
		CellWidth:  9.0,
		LineHeight: 18.0,
		FontSize:   14.0,
		Background: "#1e1e1e",
		Foreground: "#d4d4d4",
	}
}

const framePadding = 10.0

// WriteFrame writes rows of terminal text as a standalone SVG document with a
// namespace, viewBox, explicit dimensions, a style block, a background rect
// and one <text> element per non-blank row.
func WriteFrame(w io.Writer, rows []string, opts FrameOptions) error {
	def := DefaultFrameOptions()
	if opts.Columns <= 0 {
		opts.Columns = def.Columns
	}
	if opts.Rows <= 0 {
		opts.Rows = def.Rows
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = def.CellWidth
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = def.LineHeight
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}
	if opts.Foreground == "" {
		opts.Foreground = def.Foreground
	}

	width := float64(opts.Columns)*opts.CellWidth + 2*framePadding
	height := float64(opts.Rows)*opts.LineHeight + 2*framePadding

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(bw, "<svg xmlns=%q viewBox=\"0 0 %g %g\" width=\"%g\" height=\"%g\">\n",
		Namespace, width, height, width, height)
	if opts.Title != "" {
		bw.WriteString("  <title>")
		if err := xml.EscapeText(bw, []byte(opts.Title)); err != nil {
			return err
		}
		bw.WriteString("</title>\n")
	}
	fmt.Fprintf(bw, "  <style>\n    .terminal-row { font-family: monospace; font-size: %gpx; fill: %s; white-space: pre; }\n  </style>\n",
		opts.FontSize, opts.Foreground)
	fmt.Fprintf(bw, "  <rect class=\"terminal-background\" x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n",
		width, height, opts.Background)

	bw.WriteString("  <g class=\"terminal-body\">\n")
	for i, row := range rows {
		if i >= opts.Rows {
			break
		}
		row = strings.TrimRight(row, " ")
		if row == "" {
			continue
		}
		y := framePadding + float64(i+1)*opts.LineHeight - opts.LineHeight/4
		fmt.Fprintf(bw, "    <text class=\"terminal-row\" x=\"%g\" y=\"%g\" xml:space=\"preserve\">", framePadding, y)
		if err := xml.EscapeText(bw, []byte(row)); err != nil {
			return err
		}
		bw.WriteString("</text>\n")
	}
	bw.WriteString("  </g>\n</svg>\n")

	return bw.Flush()
}
