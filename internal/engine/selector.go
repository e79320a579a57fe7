package engine

import (
	"errors"

	"github.com/ahrav/go-refine/internal/domain"
)

// ErrEmptyRun indicates best-iteration selection was asked to choose
// from a run with no recorded iterations.
var ErrEmptyRun = errors.New("no iterations recorded")

// SelectBest deterministically picks the iteration a run should commit
// to, using a total ordering evaluated in this precedence:
//
//  1. Verdict rank: PASSED > WARNING > FAILED.
//  2. Among equal rank, fewer critical issues.
//  3. Among ties, higher overall score.
//  4. Among ties, earliest index, preferring the cheapest iteration
//     when quality is indistinguishable.
//
// Correctness rank dominates numeric score: a FAILED iteration is never
// selected over any PASSED or WARNING iteration, even with a higher raw
// score.
func SelectBest(run *domain.LoopRun) (int, error) {
	records := run.Records()
	if len(records) == 0 {
		return 0, ErrEmptyRun
	}

	best := records[0]
	for _, candidate := range records[1:] {
		if outranks(candidate, best) {
			best = candidate
		}
	}
	return best.Index, nil
}

// outranks reports whether a is strictly preferable to b. Equal records
// never outrank, so the earliest index wins by iteration order.
func outranks(a, b domain.IterationRecord) bool {
	if a.Verdict != b.Verdict {
		return a.Verdict > b.Verdict
	}
	if a.Metrics.CriticalIssues != b.Metrics.CriticalIssues {
		return a.Metrics.CriticalIssues < b.Metrics.CriticalIssues
	}
	return a.Metrics.OverallScore > b.Metrics.OverallScore
}
