package detection

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/svgdoc"
)

// Thresholds configures the detector. Sizes are in bytes.
type Thresholds struct {
	CriticalMin int64 `yaml:"critical_min"`
	WarningMin  int64 `yaml:"warning_min"`
	OptimalMin  int64 `yaml:"optimal_min"`
	OptimalMax  int64 `yaml:"optimal_max"`
	CriticalMax int64 `yaml:"critical_max"`

	// MinTextChars and ComplexityMin are accepted and range-checked so
	// existing config files load, but no stage reports against them.
	MinTextChars    int     `yaml:"min_text_chars"`
	MinElements     int     `yaml:"min_elements"`
	MinElementTypes int     `yaml:"min_element_types"`
	TextDensityMin  float64 `yaml:"text_density_min"`
	ComplexityMin   float64 `yaml:"complexity_min"`
}

// DefaultThresholds returns the stock detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalMin: 1000,
		WarningMin:  2000,
		OptimalMin:  5000,
		OptimalMax:  1000000,
		CriticalMax: 5000000,

		MinTextChars:    5,
		MinElements:     3,
		MinElementTypes: 2,
		TextDensityMin:  0.1,
		ComplexityMin:   0.2,
	}
}

// Validate checks that the size ladder is ordered and ratios are in range.
func (t Thresholds) Validate() error {
	if t.CriticalMin < 0 || t.CriticalMin > t.WarningMin {
		return fmt.Errorf("critical_min (%d) must be between 0 and warning_min (%d)", t.CriticalMin, t.WarningMin)
	}
	if t.WarningMin > t.OptimalMin || t.OptimalMin > t.OptimalMax {
		return fmt.Errorf("size thresholds must satisfy warning_min <= optimal_min <= optimal_max")
	}
	if t.OptimalMax > t.CriticalMax {
		return fmt.Errorf("optimal_max (%d) must not exceed critical_max (%d)", t.OptimalMax, t.CriticalMax)
	}
	if t.MinTextChars < 0 || t.MinElements < 0 || t.MinElementTypes < 0 {
		return errors.New("content minimums must not be negative")
	}
	if t.TextDensityMin < 0 || t.TextDensityMin > 1 || t.ComplexityMin < 0 || t.ComplexityMin > 1 {
		return errors.New("text_density_min and complexity_min must be between 0 and 1")
	}
	return nil
}

// Stage names recorded in Result metadata.
const (
	StageFileSize        = "file_size_analysis"
	StageStructure       = "svg_structure_analysis"
	StageContentPatterns = "content_pattern_analysis"
	StagePlatform        = "platform_issue_detection"
)

// dominanceRatio is the share of all elements one tag must exceed to be
// reported as a probable rendering loop.
const dominanceRatio = 0.8

var errorIndicators = []string{"error", "fail", "crash", "timeout", "exception"}

// Detector runs the detection pipeline. It holds configuration only, so one
// Detector may be shared across goroutines.
type Detector struct {
	thresholds         Thresholds
	structuralAnalysis bool
	now                func() time.Time
}

// NewDetector creates a detector with structural analysis enabled.
func NewDetector(t Thresholds) *Detector {
	return &Detector{thresholds: t, structuralAnalysis: true, now: time.Now}
}

// WithStructuralAnalysis toggles the document-level stages.
func (d *Detector) WithStructuralAnalysis(enabled bool) *Detector {
	d.structuralAnalysis = enabled
	return d
}

// Thresholds returns the detector configuration.
func (d *Detector) Thresholds() Thresholds { return d.thresholds }

// artifact carries what the stages share for one run. The document is parsed
// once; parseErr is set when parsing failed.
type artifact struct {
	result   capture.Result
	size     int64
	doc      *svgdoc.Document
	parseErr error
}

type stage struct {
	name string
	run  func(*artifact) []Issue
}

// Detect analyses one capture result.
func (d *Detector) Detect(result capture.Result) Result {
	if !result.HasArtifact() {
		return Result{
			Issues: []Issue{{
				Category:    CategoryCaptureFailure,
				Description: "Screenshot capture failed - cannot analyze",
				Severity:    SeverityCritical,
				Confidence:  1.0,
				Suggestions: []string{"Retry capture", "Check app state", "Verify terminal access"},
			}},
			Confidence: 1.0,
			Metadata:   map[string]any{"analysis_type": "failed_capture"},
			Timestamp:  d.now().UTC(),
		}
	}

	a := &artifact{result: result, size: result.FileSize}
	if a.size == 0 {
		if info, err := os.Stat(result.ArtifactPath); err == nil {
			a.size = info.Size()
		}
	}
	vector := result.ArtifactFormat() == capture.FormatSVG

	stages := []stage{{StageFileSize, d.analyzeFileSize}}
	if d.structuralAnalysis && vector {
		a.doc, a.parseErr = svgdoc.ParseFile(result.ArtifactPath)
		stages = append(stages,
			stage{StageStructure, d.analyzeStructure},
			stage{StageContentPatterns, d.analyzeContentPatterns},
		)
	}
	stages = append(stages, stage{StagePlatform, d.detectPlatformIssues})

	var issues []Issue
	methods := make([]string, 0, len(stages))
	for _, s := range stages {
		issues = append(issues, runStage(s, a)...)
		methods = append(methods, s.name)
	}

	format := string(result.ArtifactFormat())
	if format == "" {
		format = "unknown"
	}

	out := Result{
		Issues:     issues,
		Confidence: Confidence(issues),
		Metadata: map[string]any{
			"analysis_methods":      methods,
			"total_issues_detected": len(issues),
			"file_size_bytes":       a.size,
			"format":                format,
		},
		Timestamp: d.now().UTC(),
	}
	out.Metadata["critical_issues"] = len(out.BySeverity(SeverityCritical))
	out.Metadata["warning_issues"] = len(out.BySeverity(SeverityWarning))
	out.Metadata["info_issues"] = len(out.BySeverity(SeverityInfo))
	return out
}

// runStage isolates a stage so a panic becomes a low-confidence issue.
func runStage(s stage, a *artifact) (issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []Issue{analysisError(s.name, fmt.Errorf("%v", r))}
		}
	}()
	return s.run(a)
}

func analysisError(stageName string, err error) Issue {
	return Issue{
		Category:    CategoryAnalysisError,
		Description: fmt.Sprintf("Analysis stage %s failed: %v", stageName, err),
		Severity:    SeverityInfo,
		Confidence:  0.3,
		Suggestions: []string{"Retry analysis", "Check file integrity"},
		Metadata:    map[string]any{"stage": stageName, "analysis_error": err.Error()},
	}
}

func (d *Detector) analyzeFileSize(a *artifact) []Issue {
	size := a.size
	t := d.thresholds

	switch {
	case size < t.CriticalMin:
		return []Issue{{
			Category:    CategoryEmptyScreen,
			Description: fmt.Sprintf("Screenshot file too small (%d bytes) - likely empty screen", size),
			Severity:    SeverityCritical,
			Confidence:  0.9,
			Suggestions: []string{
				"Check if app UI is properly rendered",
				"Increase capture delay",
				"Verify terminal content before capture",
			},
			Metadata: map[string]any{"file_size": size, "threshold": t.CriticalMin},
		}}
	case size < t.WarningMin:
		return []Issue{{
			Category:    CategoryEmptyScreen,
			Description: fmt.Sprintf("Screenshot file small (%d bytes) - possible content issue", size),
			Severity:    SeverityWarning,
			Confidence:  0.7,
			Suggestions: []string{
				"Verify app content is fully loaded",
				"Check for UI rendering delays",
			},
			Metadata: map[string]any{"file_size": size, "threshold": t.WarningMin},
		}}
	case size > t.CriticalMax:
		return []Issue{{
			Category:    CategoryCaptureQuality,
			Description: fmt.Sprintf("Screenshot file very large (%d bytes) - possible capture issue", size),
			Severity:    SeverityCritical,
			Confidence:  0.8,
			Suggestions: []string{
				"Check for infinite content or loops",
				"Verify terminal size settings",
				"Consider format optimization",
			},
			Metadata: map[string]any{"file_size": size, "threshold": t.CriticalMax},
		}}
	case size > t.OptimalMax:
		return []Issue{{
			Category:    CategoryCaptureQuality,
			Description: fmt.Sprintf("Screenshot file large (%d bytes) - consider optimization", size),
			Severity:    SeverityInfo,
			Confidence:  0.6,
			Suggestions: []string{
				"Consider PNG format for complex visuals",
				"Check for unnecessary content",
			},
			Metadata: map[string]any{"file_size": size, "threshold": t.OptimalMax},
		}}
	}
	return nil
}

func (d *Detector) analyzeStructure(a *artifact) []Issue {
	if a.parseErr != nil {
		return []Issue{parseFailure(a.parseErr)}
	}

	doc := a.doc
	t := d.thresholds
	var issues []Issue

	texts := doc.TextElements()
	visible := doc.VisibleTextCount()
	if visible == 0 {
		issues = append(issues, Issue{
			Category:    CategoryEmptyScreen,
			Description: "No visible text found in SVG - possible empty screen",
			Severity:    SeverityWarning,
			Confidence:  0.8,
			Suggestions: []string{
				"Check if app displays text content",
				"Verify UI state before capture",
				"Consider if text-free UI is expected",
			},
			Metadata: map[string]any{"text_elements_found": len(texts), "visible_text_count": visible},
		})
	}

	total := doc.ElementCount()
	if total < t.MinElements {
		issues = append(issues, Issue{
			Category:    CategoryEmptyScreen,
			Description: fmt.Sprintf("Few SVG elements (%d) - possible incomplete render", total),
			Severity:    SeverityWarning,
			Confidence:  0.7,
			Suggestions: []string{
				"Wait for UI rendering to complete",
				"Check for loading states",
				"Verify app initialization",
			},
			Metadata: map[string]any{"total_elements": total, "min_expected": t.MinElements},
		})
	}

	tags := sortedTags(doc.TagCounts())
	if len(tags) < t.MinElementTypes {
		issues = append(issues, Issue{
			Category:    CategoryLayoutIssues,
			Description: fmt.Sprintf("Low element diversity (%d types) - possible layout issue", len(tags)),
			Severity:    SeverityInfo,
			Confidence:  0.6,
			Suggestions: []string{
				"Verify UI complexity is as expected",
				"Check for proper component rendering",
			},
			Metadata: map[string]any{"unique_types": len(tags), "element_types": tags},
		})
	}

	if !doc.HasViewBox() {
		issues = append(issues, Issue{
			Category:    CategoryRenderingFailures,
			Description: "SVG missing viewBox - may cause rendering inconsistencies",
			Severity:    SeverityWarning,
			Confidence:  0.7,
			Suggestions: []string{
				"Check SVG generation process",
				"Verify terminal capture settings",
			},
			Metadata: map[string]any{"missing_attribute": "viewBox"},
		})
	}

	if w, h := doc.HasDimensions(); !w || !h {
		issues = append(issues, Issue{
			Category:    CategoryRenderingFailures,
			Description: "SVG missing width/height attributes - may affect display",
			Severity:    SeverityInfo,
			Confidence:  0.6,
			Suggestions: []string{
				"Verify SVG generation includes dimensions",
				"Check if viewBox provides sufficient sizing",
			},
			Metadata: map[string]any{"has_width": w, "has_height": h},
		})
	}

	return issues
}

func parseFailure(err error) Issue {
	if errors.Is(err, svgdoc.ErrEncoding) {
		return Issue{
			Category:    CategoryRenderingFailures,
			Description: "SVG file encoding issue - possible corruption",
			Severity:    SeverityCritical,
			Confidence:  0.9,
			Suggestions: []string{
				"Retry capture with clean terminal state",
				"Check for special characters in output",
			},
		}
	}
	return Issue{
		Category:    CategoryRenderingFailures,
		Description: fmt.Sprintf("SVG parsing error - corrupted file structure: %v", err),
		Severity:    SeverityCritical,
		Confidence:  0.9,
		Suggestions: []string{
			"Retry screenshot capture",
			"Check terminal output for errors",
			"Verify app rendering completion",
		},
		Metadata: map[string]any{"parse_error": err.Error()},
	}
}

func (d *Detector) analyzeContentPatterns(a *artifact) []Issue {
	if a.parseErr != nil {
		return []Issue{{
			Category:    CategoryAnalysisError,
			Description: fmt.Sprintf("Content pattern analysis failed: %v", a.parseErr),
			Severity:    SeverityInfo,
			Confidence:  0.3,
			Suggestions: []string{"File may be valid despite analysis error"},
			Metadata:    map[string]any{"analysis_error": a.parseErr.Error()},
		}}
	}

	doc := a.doc
	t := d.thresholds
	var issues []Issue

	textChars := doc.TextLength()
	if textChars > 0 {
		fileSize := a.size
		if info, err := os.Stat(a.result.ArtifactPath); err == nil {
			fileSize = info.Size()
		}
		density := float64(textChars) / float64(max(fileSize, 1))

		if density < t.TextDensityMin {
			issues = append(issues, Issue{
				Category:    CategoryLayoutIssues,
				Description: fmt.Sprintf("Low text density (%.3f) - possible truncated content", density),
				Severity:    SeverityInfo,
				Confidence:  0.5,
				Suggestions: []string{
					"Verify all expected text is rendered",
					"Check for text wrapping issues",
				},
				Metadata: map[string]any{"text_density": density, "total_text_chars": textChars},
			})
		}
	}

	counts := doc.TagCounts()
	total := 0
	for _, n := range counts {
		total += n
	}
	for _, tag := range sortedTags(counts) {
		n := counts[tag]
		if tag == svgdoc.RootTag || float64(n) <= float64(total)*dominanceRatio {
			continue
		}
		issues = append(issues, Issue{
			Category:    CategoryRenderingFailures,
			Description: fmt.Sprintf("Excessive %s elements (%d) - possible rendering loop", tag, n),
			Severity:    SeverityWarning,
			Confidence:  0.7,
			Suggestions: []string{
				"Check for infinite loops in app rendering",
				"Verify app termination conditions",
			},
			Metadata: map[string]any{"dominant_element": tag, "element_count": n, "total_elements": total},
		})
	}

	return issues
}

func (d *Detector) detectPlatformIssues(a *artifact) []Issue {
	var issues []Issue

	size := a.size
	if size > 0 && size%1024 == 0 {
		issues = append(issues, Issue{
			Category:    CategoryCaptureQuality,
			Description: fmt.Sprintf("File size (%d) exactly divisible by 1024 - possible platform truncation", size),
			Severity:    SeverityInfo,
			Confidence:  0.4,
			Suggestions: []string{
				"Verify complete capture on current platform",
				"Compare with captures on other platforms",
			},
			Metadata: map[string]any{"file_size": size, "modulo_1024": size % 1024},
		})
	}

	label := strings.ToLower(a.result.Context)
	for _, indicator := range errorIndicators {
		if !strings.Contains(label, indicator) {
			continue
		}
		issues = append(issues, Issue{
			Category:    CategoryCaptureQuality,
			Description: fmt.Sprintf("Context name '%s' suggests error state - verify capture validity", a.result.Context),
			Severity:    SeverityWarning,
			Confidence:  0.6,
			Suggestions: []string{
				"Verify app is in expected state",
				"Check if error context is intentional for testing",
			},
			Metadata: map[string]any{"context": a.result.Context, "error_indicator": indicator},
		})
		break
	}

	return issues
}

func sortedTags(counts map[string]int) []string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
