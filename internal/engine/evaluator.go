// Package engine implements the iterative refinement loop: threshold
// evaluation, trend tracking, best-iteration selection, and the
// orchestrating state machine that drives generate, validate, and
// correct collaborators against a quality policy.
package engine

import (
	"github.com/ahrav/go-refine/internal/domain"
)

// maxUnmetForWarning is the largest number of missed dimensions that can
// still yield a WARNING verdict. Missing more forces FAILED.
const maxUnmetForWarning = 2

// ThresholdEvaluator compares quality metrics against a policy and
// yields a verdict plus the list of unmet criteria. It is stateless and
// safe for concurrent use.
type ThresholdEvaluator struct {
	policy *domain.QualityPolicy
}

// NewThresholdEvaluator creates an evaluator bound to the given policy.
func NewThresholdEvaluator(policy *domain.QualityPolicy) *ThresholdEvaluator {
	return &ThresholdEvaluator{policy: policy}
}

// Evaluate produces the verdict for metrics and the dimensions that
// failed their thresholds, in policy dimension order.
//
// The verdict is FAILED when any critical issue is present (a single
// critical defect must never be accepted no matter how high the other
// scores are), when more than two dimensions are unmet, or when any
// unmet dimension sits beyond the tolerance band below its threshold.
// The verdict is WARNING when one or two dimensions are unmet, each
// within the tolerance band. Otherwise the artifact PASSED.
//
// Evaluate is idempotent: the same metrics always yield the same verdict
// and the same unmet-criteria list.
func (e *ThresholdEvaluator) Evaluate(metrics domain.QualityMetrics) (domain.Verdict, []string) {
	var unmet []string
	withinTolerance := true
	for _, name := range e.policy.Dimensions() {
		threshold := e.policy.Threshold(name)
		score := metrics.DimensionScores[name]
		if score < threshold {
			unmet = append(unmet, name)
			if threshold-score > e.policy.WarnTolerance() {
				withinTolerance = false
			}
		}
	}

	switch {
	case metrics.CriticalIssues > 0:
		return domain.VerdictFailed, unmet
	case len(unmet) == 0:
		return domain.VerdictPassed, unmet
	case len(unmet) <= maxUnmetForWarning && withinTolerance:
		return domain.VerdictWarning, unmet
	default:
		return domain.VerdictFailed, unmet
	}
}
