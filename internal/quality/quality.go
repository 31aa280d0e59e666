// Package quality scores captured artifacts with deterministic heuristics:
// file size, content complexity, document structure and completeness.
package quality

import (
	"errors"
	"math"
	"os"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/svgdoc"
)

// Metric weights for the overall score.
const (
	WeightSize         = 0.2
	WeightComplexity   = 0.3
	WeightStructure    = 0.3
	WeightCompleteness = 0.2
)

// neutral is returned by an analyzer that hit an unexpected error.
const neutral = 0.5

// Size breakpoints in bytes.
const (
	minExpectedSize = 2000
	optimalMinSize  = 10000
	optimalMaxSize  = 500000
	maxExpectedSize = 2000000
)

// Metrics holds the four analyzer scores and their weighted combination.
type Metrics struct {
	FileSize     float64 `json:"file_size_score"`
	Complexity   float64 `json:"content_complexity_score"`
	Structure    float64 `json:"structure_score"`
	Completeness float64 `json:"completeness_score"`
	Overall      float64 `json:"overall_score"`
}

// ToMap returns the scores under their reporting keys.
func (m Metrics) ToMap() map[string]float64 {
	return map[string]float64{
		"file_size_score":          m.FileSize,
		"content_complexity_score": m.Complexity,
		"structure_score":          m.Structure,
		"completeness_score":       m.Completeness,
		"overall_score":            m.Overall,
	}
}

// Combine fills Overall from the four component scores.
func (m Metrics) Combine() Metrics {
	m.Overall = WeightSize*m.FileSize +
		WeightComplexity*m.Complexity +
		WeightStructure*m.Structure +
		WeightCompleteness*m.Completeness
	return m
}

// Score assesses a capture result. Results without an artifact path, or
// whose artifact no longer exists, score zero across the board.
func Score(result capture.Result) Metrics {
	if result.ArtifactPath == "" {
		return Metrics{}
	}
	info, err := os.Stat(result.ArtifactPath)
	if err != nil {
		return Metrics{}
	}

	size := result.FileSize
	if size == 0 {
		size = info.Size()
	}

	path := result.ArtifactPath
	return Metrics{
		FileSize:     SizeScore(size),
		Complexity:   ComplexityScore(path),
		Structure:    StructureScore(path, result.ArtifactFormat()),
		Completeness: CompletenessScore(path),
	}.Combine()
}

// ScoreFile assesses an artifact on disk.
func ScoreFile(path string) Metrics {
	result, err := capture.FromFile(path, "")
	if err != nil {
		return Metrics{}
	}
	return Score(result)
}

// SizeScore maps a byte count onto [0,1]: zero below 2 KB, rising linearly
// to 1 at 10 KB, flat through 500 KB, then decaying linearly to zero at 2 MB.
func SizeScore(size int64) float64 {
	switch {
	case size < minExpectedSize:
		return 0.0
	case size < optimalMinSize:
		return float64(size-minExpectedSize) / float64(optimalMinSize-minExpectedSize)
	case size <= optimalMaxSize:
		return 1.0
	default:
		decay := float64(size-optimalMaxSize) / float64(maxExpectedSize-optimalMaxSize)
		return math.Max(0.0, 1.0-decay)
	}
}

// ComplexityScore rewards element count, tag diversity and text volume for
// vector frames; other formats are judged by size against 50 KB.
func ComplexityScore(path string) float64 {
	if capture.FormatOf(path) != capture.FormatSVG {
		info, err := os.Stat(path)
		if err != nil {
			return neutral
		}
		return math.Min(1.0, float64(info.Size())/50000)
	}

	doc, err := svgdoc.ParseFile(path)
	if err != nil {
		return neutral
	}
	return DocumentComplexity(doc)
}

// DocumentComplexity blends element count (against 100), tag diversity
// (against 10) and text volume (against 500 characters).
func DocumentComplexity(doc *svgdoc.Document) float64 {
	elements := math.Min(1.0, float64(doc.ElementCount())/100)
	diversity := math.Min(1.0, float64(len(doc.TagCounts()))/10)
	text := math.Min(1.0, float64(doc.TextLength())/500)
	return 0.5*elements + 0.3*diversity + 0.2*text
}

// StructureScore checks format validity. Vector frames score the fraction
// of four checks passed: svg root, viewBox, content beyond the root and a
// namespace or style declaration. Malformed documents score zero. Other
// formats score 1 when the file is non-empty, and PNG files must also carry
// the PNG signature.
func StructureScore(path string, format capture.Format) float64 {
	if format == capture.FormatSVG {
		return svgStructure(path)
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 0.0
	}
	if format == capture.FormatPNG && !capture.IsPNG(path) {
		return 0.0
	}
	return 1.0
}

func svgStructure(path string) float64 {
	doc, err := svgdoc.ParseFile(path)
	if err != nil {
		var syn *svgdoc.SyntaxError
		if errors.As(err, &syn) || errors.Is(err, svgdoc.ErrEncoding) {
			return 0.0
		}
		return neutral
	}

	checks := []bool{
		doc.IsSVGRoot(),
		doc.HasViewBox(),
		doc.ElementCount() > 1,
		doc.HasNamespace() || doc.HasStyles(),
	}
	return fraction(checks)
}

// CompletenessScore estimates whether the artifact holds a finished frame.
// Vector frames blend four indicators (text, shapes, size over 2 KB, styling)
// with a size factor against 20 KB. Other formats use a size ladder.
func CompletenessScore(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return neutral
	}
	size := info.Size()

	if capture.FormatOf(path) != capture.FormatSVG {
		switch {
		case size < 1000:
			return 0.3
		case size > 10000:
			return 1.0
		default:
			return float64(size) / 10000
		}
	}

	doc, err := svgdoc.ParseFile(path)
	if err != nil {
		return neutral
	}

	indicators := []bool{
		len(doc.TextElements()) > 0,
		doc.HasTag("rect", "circle", "path"),
		size > minExpectedSize,
		doc.HasStyles(),
	}
	sizeFactor := math.Min(1.0, float64(size)/20000)
	return 0.7*fraction(indicators) + 0.3*sizeFactor
}

func fraction(checks []bool) float64 {
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return float64(passed) / float64(len(checks))
}
