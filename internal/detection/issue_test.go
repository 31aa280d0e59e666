package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(nil))

	issues := []Issue{
		{Severity: SeverityCritical, Confidence: 0.9},
		{Severity: SeverityWarning, Confidence: 0.7},
		{Severity: SeverityInfo, Confidence: 0.4},
	}
	want := (1.0*0.9 + 0.7*0.7 + 0.4*0.4) / (1.0 + 0.7 + 0.4)
	assert.InDelta(t, want, Confidence(issues), 1e-12)

	// A lone low-weight issue is not diluted by a divisor floor.
	assert.InDelta(t, 0.4, Confidence([]Issue{{Severity: SeverityInfo, Confidence: 0.4}}), 1e-12)

	assert.Less(t, Confidence([]Issue{{Severity: SeverityCritical, Confidence: 0.99}}), 1.0)
}

func TestSeverityWeight(t *testing.T) {
	assert.Equal(t, 1.0, SeverityCritical.Weight())
	assert.Equal(t, 0.7, SeverityWarning.Weight())
	assert.Equal(t, 0.4, SeverityInfo.Weight())
	assert.Equal(t, 0.5, Severity("other").Weight())
}

func TestSummarize(t *testing.T) {
	r := Result{
		Issues: []Issue{
			{Severity: SeverityCritical},
			{Severity: SeverityWarning},
			{Severity: SeverityWarning},
			{Severity: SeverityInfo},
		},
		Confidence: 0.8333,
	}
	assert.Equal(t, "Detected: 1 critical issue, 2 warnings, 1 info item (confidence: 0.83)", Summarize(r))

	r = Result{
		Issues:     []Issue{{Severity: SeverityInfo}, {Severity: SeverityInfo}},
		Confidence: 0.4,
	}
	assert.Equal(t, "Detected: 2 info items (confidence: 0.40)", Summarize(r))

	assert.Equal(t, "No issues detected - screenshot appears healthy", Summarize(Result{}))
}

func TestBySeverity(t *testing.T) {
	r := Result{Issues: []Issue{
		{Description: "a", Severity: SeverityWarning},
		{Description: "b", Severity: SeverityInfo},
		{Description: "c", Severity: SeverityWarning},
	}}

	warnings := r.BySeverity(SeverityWarning)
	assert.Len(t, warnings, 2)
	assert.Equal(t, "c", warnings[1].Description)
	assert.True(t, r.HasWarnings())
	assert.False(t, r.HasCritical())
}

func TestGroupSuggestionsByCategory(t *testing.T) {
	issues := []Issue{
		{Category: CategoryEmptyScreen, Suggestions: []string{"wait longer", "check render"}},
		{Category: CategoryLayoutIssues, Suggestions: []string{"resize"}},
		{Category: CategoryEmptyScreen, Suggestions: []string{"check render", "retry"}},
		{Category: CategoryCaptureQuality},
	}

	grouped := GroupSuggestionsByCategory(issues)
	assert.Equal(t, []string{"wait longer", "check render", "retry"}, grouped[CategoryEmptyScreen])
	assert.Equal(t, []string{"resize"}, grouped[CategoryLayoutIssues])
	assert.Equal(t, []string{}, grouped[CategoryCaptureQuality])
}
