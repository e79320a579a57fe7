package engine

import (
	"github.com/ahrav/go-refine/internal/domain"
)

// Default trend-detection settings.
const (
	// DefaultDegradationMargin is how far below the previous score the
	// latest score must fall before the trend counts as degrading.
	DefaultDegradationMargin = 0.02

	// DefaultPlateauEpsilon is the score difference below which two
	// successive iterations count as a plateau.
	DefaultPlateauEpsilon = 0.01
)

// Tracker appends iteration records to a run and detects quality trends
// across it. Degradation is reported but does not by itself stop the
// loop; plateau is used by the runner as an early-stop heuristic
// distinct from threshold-passing.
type Tracker struct {
	degradationMargin float64
	plateauEpsilon    float64
}

// NewTracker creates a tracker with the given margins. Non-positive
// values fall back to the defaults.
func NewTracker(degradationMargin, plateauEpsilon float64) *Tracker {
	if degradationMargin <= 0 {
		degradationMargin = DefaultDegradationMargin
	}
	if plateauEpsilon <= 0 {
		plateauEpsilon = DefaultPlateauEpsilon
	}
	return &Tracker{
		degradationMargin: degradationMargin,
		plateauEpsilon:    plateauEpsilon,
	}
}

// Record appends a new iteration record to run and returns it. The
// record's index is the run's current length.
func (t *Tracker) Record(
	run *domain.LoopRun,
	artifact domain.Artifact,
	metrics domain.QualityMetrics,
	verdict domain.Verdict,
	unmetCriteria []string,
	correctionErr error,
) (domain.IterationRecord, error) {
	rec := domain.IterationRecord{
		Index:         run.Len(),
		Artifact:      artifact,
		Metrics:       metrics,
		Verdict:       verdict,
		UnmetCriteria: unmetCriteria,
		Err:           correctionErr,
	}
	if err := run.Append(rec); err != nil {
		return domain.IterationRecord{}, err
	}
	return rec, nil
}

// IsDegrading reports whether the latest validated score is strictly
// lower than the previous one by more than the degradation margin. This
// guards against a correction step making things worse.
func (t *Tracker) IsDegrading(run *domain.LoopRun) bool {
	latest, previous, ok := t.lastTwoValidated(run)
	if !ok {
		return false
	}
	return previous.Metrics.OverallScore-latest.Metrics.OverallScore > t.degradationMargin
}

// IsPlateaued reports whether the last two validated scores differ by
// less than the plateau epsilon, signaling that further correction
// attempts are unlikely to help.
func (t *Tracker) IsPlateaued(run *domain.LoopRun) bool {
	latest, previous, ok := t.lastTwoValidated(run)
	if !ok {
		return false
	}
	diff := latest.Metrics.OverallScore - previous.Metrics.OverallScore
	if diff < 0 {
		diff = -diff
	}
	return diff < t.plateauEpsilon
}

// lastTwoValidated returns the two most recent records whose validation
// actually ran. Correction-failure records reuse the prior iteration's
// metrics, so including them would fabricate a zero-delta trend.
func (t *Tracker) lastTwoValidated(run *domain.LoopRun) (latest, previous domain.IterationRecord, ok bool) {
	found := 0
	for i := run.Len() - 1; i >= 0 && found < 2; i-- {
		rec, _ := run.Record(i)
		if !rec.Validated() {
			continue
		}
		if found == 0 {
			latest = rec
		} else {
			previous = rec
		}
		found++
	}
	return latest, previous, found == 2
}
