// Package domain contains the pure domain models for the refinement
// engine: quality metrics, quality policies, iteration records, and the
// loop run history they accumulate into.
package domain

import "math"

// Artifact is the opaque value being iteratively refined. The engine
// passes artifacts between the caller-supplied generate, validate, and
// correct operations without ever inspecting their contents.
type Artifact any

// ScorePrecision is the number of decimal digits overall scores are
// rounded to. Rounding keeps score comparisons and history display
// stable across identical reruns.
const ScorePrecision = 2

// QualityMetrics captures the multi-dimensional quality assessment of a
// single validated artifact. OverallScore is always derived from
// DimensionScores and CriticalIssues through ComputeOverall; it is never
// set independently, which prevents drift between the inputs and the
// derived value.
type QualityMetrics struct {
	// DimensionScores maps dimension names (e.g. "completeness",
	// "consistency") to scores in [0.0, 1.0].
	DimensionScores map[string]float64 `json:"dimension_scores"`

	// CriticalIssues counts defects severe enough to cap the overall
	// score below the passing threshold regardless of dimension scores.
	CriticalIssues int `json:"critical_issue_count"`

	// OverallScore is the weighted, capped, rounded aggregate computed
	// by ComputeOverall for the policy the metrics were scored under.
	OverallScore float64 `json:"overall_score"`
}

// NewQualityMetrics builds a QualityMetrics whose OverallScore is
// derived from the given dimension scores and critical issue count under
// the supplied policy. The scores map is copied so later mutation by the
// caller cannot desynchronize the derived value.
func NewQualityMetrics(scores map[string]float64, criticalIssues int, policy *QualityPolicy) QualityMetrics {
	copied := make(map[string]float64, len(scores))
	for name, score := range scores {
		copied[name] = score
	}
	return QualityMetrics{
		DimensionScores: copied,
		CriticalIssues:  criticalIssues,
		OverallScore:    ComputeOverall(copied, criticalIssues, policy),
	}
}

// ComputeOverall derives the overall score as the weighted sum of the
// policy's dimensions. A dimension missing from scores contributes 0.0,
// penalizing incompleteness rather than silently ignoring it. When
// criticalIssues > 0 the result is capped at the policy's critical issue
// cap. The result is rounded to ScorePrecision digits.
//
// ComputeOverall is deterministic: identical inputs always produce the
// identical rounded score.
func ComputeOverall(scores map[string]float64, criticalIssues int, policy *QualityPolicy) float64 {
	var sum float64
	for _, name := range policy.Dimensions() {
		sum += policy.Weight(name) * scores[name]
	}
	if criticalIssues > 0 && sum > policy.CriticalIssueCap() {
		sum = policy.CriticalIssueCap()
	}
	return RoundScore(sum)
}

// RoundScore rounds a score to ScorePrecision decimal digits.
func RoundScore(score float64) float64 {
	shift := math.Pow(10, ScorePrecision)
	return math.Round(score*shift) / shift
}
