package domain

import "fmt"

// IterationRecord is the immutable audit entry for one refinement
// attempt. Index 0 is the initial generation; each subsequent index is a
// correction attempt. Corrections always produce a new record rather
// than editing a prior one, preserving the full audit trail.
type IterationRecord struct {
	// Index is the 0-based sequence number within the run.
	Index int `json:"index"`

	// Artifact is the candidate produced at this iteration. When the
	// correction attempt for this index failed, the previous iteration's
	// artifact is retained here instead of a broken one.
	Artifact Artifact `json:"artifact"`

	// Metrics is the quality assessment for Artifact.
	Metrics QualityMetrics `json:"metrics"`

	// Verdict is the threshold evaluation outcome for Metrics.
	Verdict Verdict `json:"verdict"`

	// UnmetCriteria lists, in policy dimension order, the dimensions
	// that failed their thresholds. It drives correction but is not
	// interpreted by the engine itself.
	UnmetCriteria []string `json:"unmet_criteria"`

	// Err is non-nil when the correction attempt that would have
	// produced this index failed. Such records carry the prior
	// iteration's artifact and metrics and are always VerdictFailed.
	Err error `json:"-"`
}

// Validated reports whether this record's metrics come from a fresh
// validation, as opposed to being carried over from the previous
// iteration after a failed correction. Trend detection only considers
// validated records.
func (r IterationRecord) Validated() bool { return r.Err == nil }

// LoopRun is the append-only history of one refinement session. It is
// owned exclusively by the single Run call building it and becomes
// immutable once Terminate sets the committed index. Observers receive
// read-only snapshots, never the live structure.
type LoopRun struct {
	records        []IterationRecord
	status         TerminalStatus
	committedIndex int
	terminated     bool
}

// RunSnapshot is a read-only copy of a LoopRun handed to progress
// observers, avoiding torn reads if a callback is serviced
// asynchronously by the host.
type RunSnapshot struct {
	Records        []IterationRecord `json:"records"`
	Status         TerminalStatus    `json:"terminal_status"`
	Terminated     bool              `json:"terminated"`
	CommittedIndex int               `json:"committed_index"`
}

// NewLoopRun creates an empty, unterminated run history.
func NewLoopRun() *LoopRun {
	return &LoopRun{committedIndex: -1}
}

// Append adds the next iteration record. The record's index must equal
// the current length, and appending after termination is an error.
func (r *LoopRun) Append(rec IterationRecord) error {
	if r.terminated {
		return ErrRunTerminated
	}
	if rec.Index != len(r.records) {
		return fmt.Errorf("iteration index %d out of sequence, expected %d", rec.Index, len(r.records))
	}
	r.records = append(r.records, rec)
	return nil
}

// Terminate sets the terminal status and committed index exactly once.
// The committed index must reference an existing record.
func (r *LoopRun) Terminate(status TerminalStatus, committedIndex int) error {
	if r.terminated {
		return ErrRunTerminated
	}
	if committedIndex < 0 || committedIndex >= len(r.records) {
		return fmt.Errorf("committed index %d out of range [0, %d)", committedIndex, len(r.records))
	}
	r.status = status
	r.committedIndex = committedIndex
	r.terminated = true
	return nil
}

// Len returns the number of recorded iterations.
func (r *LoopRun) Len() int { return len(r.records) }

// Records returns a copy of the full iteration history.
func (r *LoopRun) Records() []IterationRecord {
	out := make([]IterationRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Record returns the record at index i.
func (r *LoopRun) Record(i int) (IterationRecord, bool) {
	if i < 0 || i >= len(r.records) {
		return IterationRecord{}, false
	}
	return r.records[i], true
}

// Latest returns the most recently appended record.
func (r *LoopRun) Latest() (IterationRecord, bool) {
	if len(r.records) == 0 {
		return IterationRecord{}, false
	}
	return r.records[len(r.records)-1], true
}

// TerminalStatus returns why the run ended, or StatusUnknown while the
// run is still in progress.
func (r *LoopRun) TerminalStatus() TerminalStatus { return r.status }

// Terminated reports whether the run has ended.
func (r *LoopRun) Terminated() bool { return r.terminated }

// CommittedIndex returns the index chosen by best-iteration selection,
// or -1 while the run is still in progress.
func (r *LoopRun) CommittedIndex() int { return r.committedIndex }

// Committed returns the record the session committed to.
func (r *LoopRun) Committed() (IterationRecord, bool) {
	if !r.terminated {
		return IterationRecord{}, false
	}
	return r.Record(r.committedIndex)
}

// Snapshot returns a read-only copy of the run's current state.
func (r *LoopRun) Snapshot() RunSnapshot {
	return RunSnapshot{
		Records:        r.Records(),
		Status:         r.status,
		Terminated:     r.terminated,
		CommittedIndex: r.committedIndex,
	}
}
