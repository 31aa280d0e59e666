// Package validation checks a captured artifact against external references:
// human-approved baselines, per-platform reference renders and absolute
// quality thresholds. The three stages are aggregated into one Verdict.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/quality"
	"github.com/leoric-crown/textual-snapshots/internal/similarity"
)

// Verdict types.
const (
	TypeHumanBaseline       = "human_baseline"
	TypePlatformConsistency = "platform_consistency"
	TypeQualityAssessment   = "quality_assessment"
	TypeMultiPoint          = "multi_point_external"
	TypeExternalReference   = "external_reference"
)

const (
	// DefaultSimilarityThreshold is the minimum best-baseline similarity.
	DefaultSimilarityThreshold = 0.7

	// DefaultBaselineDir and DefaultPlatformDir are used when a Suite leaves them empty.
	DefaultBaselineDir = "baselines"
	DefaultPlatformDir = "platform_refs"

	maxPlatformVariance    = 0.3
	minPlatformSimilarity  = 0.6
	noBaselineConfidence   = 0.3
	fewPlatformsConfidence = 0.4
)

// Thresholds are the minimum quality scores an artifact must reach.
type Thresholds struct {
	FileSizeMin     float64 `yaml:"file_size_min"`
	ComplexityMin   float64 `yaml:"content_complexity_min"`
	StructureMin    float64 `yaml:"structure_min"`
	CompletenessMin float64 `yaml:"completeness_min"`
	OverallMin      float64 `yaml:"overall_min"`
}

// DefaultThresholds returns the stock quality thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FileSizeMin:     0.3,
		ComplexityMin:   0.4,
		StructureMin:    0.5,
		CompletenessMin: 0.6,
		OverallMin:      0.5,
	}
}

// Validate checks every threshold lies in [0,1].
func (t Thresholds) Validate() error {
	for name, v := range t.toMap() {
		if v < 0 || v > 1 {
			return fmt.Errorf("quality threshold %s must be between 0 and 1, got %.2f", name, v)
		}
	}
	return nil
}

func (t Thresholds) toMap() map[string]float64 {
	return map[string]float64{
		"file_size_min":          t.FileSizeMin,
		"content_complexity_min": t.ComplexityMin,
		"structure_min":          t.StructureMin,
		"completeness_min":       t.CompletenessMin,
		"overall_min":            t.OverallMin,
	}
}

// Verdict is the outcome of one validation stage or of the aggregate.
type Verdict struct {
	IsValid    bool           `json:"is_valid"`
	Confidence float64        `json:"confidence"`
	Type       string         `json:"validation_type"`
	Issues     []string       `json:"issues"`
	Metrics    map[string]any `json:"metrics"`
	Timestamp  time.Time      `json:"timestamp"`
}

func newVerdict(typ string, valid bool, confidence float64, issues []string, metrics map[string]any) Verdict {
	if issues == nil {
		issues = []string{}
	}
	if metrics == nil {
		metrics = map[string]any{}
	}
	return Verdict{
		IsValid:    valid,
		Confidence: confidence,
		Type:       typ,
		Issues:     issues,
		Metrics:    metrics,
		Timestamp:  time.Now(),
	}
}

// Suite runs external validation. The zero value is usable and reads
// references from DefaultBaselineDir and DefaultPlatformDir.
type Suite struct {
	BaselineDir         string
	PlatformDir         string
	Thresholds          *Thresholds
	SimilarityThreshold float64

	engine *similarity.Engine
}

// NewSuite creates a suite with default thresholds.
func NewSuite(baselineDir, platformDir string) *Suite {
	t := DefaultThresholds()
	return &Suite{
		BaselineDir:         baselineDir,
		PlatformDir:         platformDir,
		Thresholds:          &t,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// WithEngine sets the similarity engine used for reference comparisons.
func (s *Suite) WithEngine(e *similarity.Engine) *Suite {
	s.engine = e
	return s
}

func (s *Suite) similarityEngine() *similarity.Engine {
	if s.engine == nil {
		return similarity.Default()
	}
	return s.engine
}

func (s *Suite) thresholds() Thresholds {
	if s.Thresholds == nil {
		return DefaultThresholds()
	}
	return *s.Thresholds
}

func (s *Suite) similarityThreshold() float64 {
	if s.SimilarityThreshold <= 0 {
		return DefaultSimilarityThreshold
	}
	return s.SimilarityThreshold
}

func orDefault(dir, def string) string {
	if dir == "" {
		return def
	}
	return dir
}

type stageVerdict struct {
	name    string
	verdict Verdict
}

// Validate runs the baseline, platform and quality stages and aggregates
// them: confidence is the mean of the stage confidences and the artifact is
// valid only when every stage is.
func (s *Suite) Validate(result capture.Result) Verdict {
	if !result.Success || result.ArtifactPath == "" {
		return newVerdict(TypeExternalReference, false, 0,
			[]string{"Screenshot capture failed - cannot validate"}, nil)
	}

	baseline, err := s.CompareWithBaselines(result)
	if err != nil {
		return systemError(err)
	}
	platform, err := s.ValidatePlatformConsistency(result)
	if err != nil {
		return systemError(err)
	}

	stages := []stageVerdict{
		{TypeHumanBaseline, baseline},
		{TypePlatformConsistency, platform},
		{TypeQualityAssessment, s.AssessQuality(result)},
	}

	var (
		issues     []string
		total      float64
		valid      = true
		breakdown  = make(map[string]float64, len(stages))
		individual = make(map[string]bool, len(stages))
		metrics    = make(map[string]any)
	)
	for _, st := range stages {
		issues = append(issues, st.verdict.Issues...)
		total += st.verdict.Confidence
		valid = valid && st.verdict.IsValid
		breakdown[st.name] = st.verdict.Confidence
		individual[st.name] = st.verdict.IsValid
		for k, v := range st.verdict.Metrics {
			metrics[k] = v
		}
	}
	metrics["validation_breakdown"] = breakdown
	metrics["individual_results"] = individual

	return newVerdict(TypeMultiPoint, valid, total/float64(len(stages)), issues, metrics)
}

func systemError(err error) Verdict {
	return newVerdict(TypeExternalReference, false, 0,
		[]string{fmt.Sprintf("Validation system error: %v", err)},
		map[string]any{"error_type": fmt.Sprintf("%T", rootCause(err))})
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// CompareWithBaselines scores the artifact against every
// "<context>_baseline_*" file. The best match decides validity. Without any
// baseline there is nothing to contradict, so the stage passes with low
// confidence.
func (s *Suite) CompareWithBaselines(result capture.Result) (Verdict, error) {
	if result.ArtifactPath == "" {
		return newVerdict(TypeHumanBaseline, false, 0, []string{"Artifact path is empty"}, nil), nil
	}

	refs, err := references(orDefault(s.BaselineDir, DefaultBaselineDir), result.Context+"_baseline_")
	if err != nil {
		return Verdict{}, err
	}
	if len(refs) == 0 {
		return newVerdict(TypeHumanBaseline, true, noBaselineConfidence,
			[]string{"No human baseline found for comparison"},
			map[string]any{"baseline_files_found": 0}), nil
	}

	engine := s.similarityEngine()
	metrics := make(map[string]any, len(refs)+4)
	var sum, best float64
	for _, ref := range refs {
		sim := engine.FileSimilarity(result.ArtifactPath, ref)
		metrics["similarity_to_"+filepath.Base(ref)] = sim
		sum += sim
		best = math.Max(best, sim)
	}
	avg := sum / float64(len(refs))
	threshold := s.similarityThreshold()

	var issues []string
	valid := best >= threshold
	if !valid {
		issues = append(issues, fmt.Sprintf("Low similarity to baselines: max=%.2f, avg=%.2f, threshold=%v",
			best, avg, threshold))
	}

	metrics["baseline_files_found"] = len(refs)
	metrics["average_similarity"] = avg
	metrics["max_similarity"] = best
	metrics["similarity_threshold"] = threshold

	return newVerdict(TypeHumanBaseline, valid, best, issues, metrics), nil
}

// ValidatePlatformConsistency scores the artifact against every
// "<context>_platform_*" reference and checks the spread of those scores.
// At least two references are needed to say anything about consistency.
func (s *Suite) ValidatePlatformConsistency(result capture.Result) (Verdict, error) {
	if result.ArtifactPath == "" {
		return newVerdict(TypePlatformConsistency, false, 0, []string{"Artifact path is empty"}, nil), nil
	}

	refs, err := references(orDefault(s.PlatformDir, DefaultPlatformDir), result.Context+"_platform_")
	if err != nil {
		return Verdict{}, err
	}
	if len(refs) < 2 {
		return newVerdict(TypePlatformConsistency, true, fewPlatformsConfidence,
			[]string{"Insufficient platform references for consistency check"},
			map[string]any{"platform_references": len(refs)}), nil
	}

	engine := s.similarityEngine()
	metrics := make(map[string]any, len(refs)+4)
	sims := make([]float64, 0, len(refs))
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := PlatformFromFilename(filepath.Base(ref))
		sim := engine.FileSimilarity(result.ArtifactPath, ref)
		names = append(names, name)
		sims = append(sims, sim)
		metrics["similarity_to_"+name] = sim
	}

	pc := AnalyzeConsistency(sims)
	var issues []string
	valid := pc.Variance < maxPlatformVariance && pc.MinSimilarity > minPlatformSimilarity
	if !valid {
		issues = append(issues, fmt.Sprintf("Platform inconsistency detected: variance=%.2f, min_similarity=%.2f",
			pc.Variance, pc.MinSimilarity))
	}

	metrics["platform_count"] = len(refs)
	metrics["consistency_variance"] = pc.Variance
	metrics["consistency_score"] = pc.Score
	metrics["platform_names"] = names

	return newVerdict(TypePlatformConsistency, valid, pc.Score, issues, metrics), nil
}

// AssessQuality scores the artifact and reports every threshold it misses.
func (s *Suite) AssessQuality(result capture.Result) Verdict {
	if result.ArtifactPath == "" {
		return newVerdict(TypeQualityAssessment, false, 0, []string{"Screenshot file does not exist"}, nil)
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		return newVerdict(TypeQualityAssessment, false, 0, []string{"Screenshot file does not exist"}, nil)
	}

	m := quality.Score(result)
	t := s.thresholds()
	checks := []struct {
		name      string
		score     float64
		threshold float64
	}{
		{"file_size", m.FileSize, t.FileSizeMin},
		{"content_complexity", m.Complexity, t.ComplexityMin},
		{"structure", m.Structure, t.StructureMin},
		{"completeness", m.Completeness, t.CompletenessMin},
		{"overall", m.Overall, t.OverallMin},
	}

	var issues []string
	for _, c := range checks {
		if c.score < c.threshold {
			issues = append(issues, fmt.Sprintf("%s score %.2f below threshold %.2f", c.name, c.score, c.threshold))
		}
	}

	metrics := make(map[string]any, 7)
	for k, v := range m.ToMap() {
		metrics[k] = v
	}
	metrics["thresholds_used"] = t.toMap()
	metrics["threshold_failures"] = len(issues)

	return newVerdict(TypeQualityAssessment, len(issues) == 0, m.Overall, issues, metrics)
}

// references lists regular files in dir whose names start with prefix,
// sorted by name. Lock files left by promote are skipped. A missing
// directory holds no references.
func references(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reference directory %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
