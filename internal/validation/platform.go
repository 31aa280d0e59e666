package validation

import (
	"math"
	"strings"
)

// PlatformConsistency summarises how evenly an artifact matches a set of
// platform references.
type PlatformConsistency struct {
	Variance       float64 `json:"variance"`
	MinSimilarity  float64 `json:"min_similarity"`
	MeanSimilarity float64 `json:"mean_similarity"`
	Score          float64 `json:"consistency_score"`
}

// AnalyzeConsistency computes the population variance, minimum and mean of
// the similarities. Score is (1 - variance) * min, high only when every
// platform matches well. No similarities means no evidence of consistency.
func AnalyzeConsistency(sims []float64) PlatformConsistency {
	if len(sims) == 0 {
		return PlatformConsistency{Variance: 1.0}
	}

	n := float64(len(sims))
	var sum float64
	lowest := math.Inf(1)
	for _, s := range sims {
		sum += s
		lowest = math.Min(lowest, s)
	}
	mean := sum / n

	var sq float64
	for _, s := range sims {
		sq += (s - mean) * (s - mean)
	}
	variance := sq / n

	return PlatformConsistency{
		Variance:       variance,
		MinSimilarity:  lowest,
		MeanSimilarity: mean,
		Score:          (1.0 - variance) * lowest,
	}
}

// PlatformFromFilename extracts the platform from a reference name of the
// form "<context>_platform_<name>_<digits>.<ext>". Names that do not follow
// the convention yield "unknown".
func PlatformFromFilename(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if part != "platform" || i+2 >= len(parts) {
			continue
		}
		stamp, _, _ := strings.Cut(parts[i+2], ".")
		if isDigits(stamp) {
			platform, _, _ := strings.Cut(parts[i+1], ".")
			return platform
		}
	}
	return "unknown"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
