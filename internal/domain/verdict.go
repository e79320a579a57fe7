package domain

// Verdict is the three-way outcome of evaluating quality metrics against
// a policy. The split lets the loop distinguish "good enough to stop"
// (VerdictPassed), "acceptable but log for review" (VerdictWarning, which
// also stops the loop), and "must attempt correction" (VerdictFailed).
//
// The numeric values define the verdict rank used by best-iteration
// selection: PASSED outranks WARNING, which outranks FAILED.
type Verdict int

const (
	// VerdictFailed indicates the artifact must not be accepted:
	// critical issues are present or thresholds were missed badly.
	VerdictFailed Verdict = iota

	// VerdictWarning indicates at most two dimensions missed their
	// thresholds, each within the policy's tolerance band.
	VerdictWarning

	// VerdictPassed indicates every dimension met its threshold and no
	// critical issues were found.
	VerdictPassed
)

// String returns the wire representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "PASSED"
	case VerdictWarning:
		return "WARNING"
	case VerdictFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TerminalStatus describes why a refinement session ended.
type TerminalStatus int

const (
	// StatusUnknown is the zero value; a LoopRun carries it until the
	// run terminates.
	StatusUnknown TerminalStatus = iota

	// StatusQualitySufficient indicates the loop stopped because a
	// candidate passed (or warned within tolerance).
	StatusQualitySufficient

	// StatusMaxIterationsReached indicates the correction budget was
	// exhausted before quality became sufficient.
	StatusMaxIterationsReached

	// StatusPlateaued indicates successive scores stopped improving
	// meaningfully, so further correction was judged unlikely to help.
	// Plateaued runs are deliberately distinct from quality-sufficient
	// runs so downstream consumers can flag them for review.
	StatusPlateaued

	// StatusHardFailure indicates a fatal collaborator error; the run
	// produced no committable history.
	StatusHardFailure
)

// String returns the wire representation of the terminal status.
func (s TerminalStatus) String() string {
	switch s {
	case StatusQualitySufficient:
		return "QUALITY_SUFFICIENT"
	case StatusMaxIterationsReached:
		return "MAX_ITERATIONS_REACHED"
	case StatusPlateaued:
		return "PLATEAUED"
	case StatusHardFailure:
		return "HARD_FAILURE"
	default:
		return "UNKNOWN"
	}
}
