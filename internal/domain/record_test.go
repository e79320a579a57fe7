package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoopRunAppend verifies the append-only ordering contract and the
// termination seal.
func TestLoopRunAppend(t *testing.T) {
	t.Run("sequential indices accepted", func(t *testing.T) {
		run := NewLoopRun()

		require.NoError(t, run.Append(IterationRecord{Index: 0}))
		require.NoError(t, run.Append(IterationRecord{Index: 1}))
		assert.Equal(t, 2, run.Len())
	})

	t.Run("out of sequence index rejected", func(t *testing.T) {
		run := NewLoopRun()

		err := run.Append(IterationRecord{Index: 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of sequence")
		assert.Equal(t, 0, run.Len())
	})

	t.Run("append after terminate rejected", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0}))
		require.NoError(t, run.Terminate(StatusQualitySufficient, 0))

		err := run.Append(IterationRecord{Index: 1})
		assert.ErrorIs(t, err, ErrRunTerminated)
	})
}

// TestLoopRunTerminate verifies the exactly-once seal and the committed
// index range check.
func TestLoopRunTerminate(t *testing.T) {
	t.Run("seals status and committed index", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0}))
		require.NoError(t, run.Append(IterationRecord{Index: 1}))

		require.NoError(t, run.Terminate(StatusMaxIterationsReached, 1))

		assert.True(t, run.Terminated())
		assert.Equal(t, StatusMaxIterationsReached, run.TerminalStatus())
		assert.Equal(t, 1, run.CommittedIndex())

		committed, ok := run.Committed()
		require.True(t, ok)
		assert.Equal(t, 1, committed.Index)
	})

	t.Run("second terminate rejected", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0}))
		require.NoError(t, run.Terminate(StatusQualitySufficient, 0))

		err := run.Terminate(StatusPlateaued, 0)
		assert.ErrorIs(t, err, ErrRunTerminated)
		assert.Equal(t, StatusQualitySufficient, run.TerminalStatus(),
			"the first terminal status must stick")
	})

	t.Run("committed index must reference a record", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0}))

		assert.Error(t, run.Terminate(StatusQualitySufficient, 1))
		assert.Error(t, run.Terminate(StatusQualitySufficient, -1))
		assert.False(t, run.Terminated())
	})
}

// TestLoopRunAccessors verifies the read-side surface used by callers
// and observers.
func TestLoopRunAccessors(t *testing.T) {
	t.Run("fresh run", func(t *testing.T) {
		run := NewLoopRun()

		assert.Equal(t, 0, run.Len())
		assert.Equal(t, -1, run.CommittedIndex())
		assert.Equal(t, StatusUnknown, run.TerminalStatus())

		_, ok := run.Latest()
		assert.False(t, ok)
		_, ok = run.Committed()
		assert.False(t, ok)
		_, ok = run.Record(0)
		assert.False(t, ok)
	})

	t.Run("records returns a copy", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0, Verdict: VerdictFailed}))

		records := run.Records()
		records[0].Verdict = VerdictPassed

		got, ok := run.Record(0)
		require.True(t, ok)
		assert.Equal(t, VerdictFailed, got.Verdict,
			"mutating the returned slice must not affect the run")
	})

	t.Run("snapshot reflects current state", func(t *testing.T) {
		run := NewLoopRun()
		require.NoError(t, run.Append(IterationRecord{Index: 0}))

		snap := run.Snapshot()
		assert.Len(t, snap.Records, 1)
		assert.False(t, snap.Terminated)
		assert.Equal(t, -1, snap.CommittedIndex)

		require.NoError(t, run.Terminate(StatusPlateaued, 0))
		snap = run.Snapshot()
		assert.True(t, snap.Terminated)
		assert.Equal(t, StatusPlateaued, snap.Status)
		assert.Equal(t, 0, snap.CommittedIndex)
	})
}

// TestIterationRecordValidated verifies the trend-detection eligibility
// flag carried by each record.
func TestIterationRecordValidated(t *testing.T) {
	assert.True(t, IterationRecord{}.Validated())
	assert.False(t, IterationRecord{Err: errors.New("correction failed")}.Validated())
}

// TestVerdictOrdering verifies the rank used by best-iteration
// selection and the wire names.
func TestVerdictOrdering(t *testing.T) {
	assert.Greater(t, int(VerdictPassed), int(VerdictWarning))
	assert.Greater(t, int(VerdictWarning), int(VerdictFailed))

	assert.Equal(t, "PASSED", VerdictPassed.String())
	assert.Equal(t, "WARNING", VerdictWarning.String())
	assert.Equal(t, "FAILED", VerdictFailed.String())
	assert.Equal(t, "UNKNOWN", Verdict(42).String())
}

// TestTerminalStatusString verifies the wire names for terminal
// statuses.
func TestTerminalStatusString(t *testing.T) {
	assert.Equal(t, "QUALITY_SUFFICIENT", StatusQualitySufficient.String())
	assert.Equal(t, "MAX_ITERATIONS_REACHED", StatusMaxIterationsReached.String())
	assert.Equal(t, "PLATEAUED", StatusPlateaued.String())
	assert.Equal(t, "HARD_FAILURE", StatusHardFailure.String())
	assert.Equal(t, "UNKNOWN", StatusUnknown.String())
}

// TestErrorTypes verifies unwrap chains on the typed collaborator
// errors.
func TestErrorTypes(t *testing.T) {
	t.Run("generation error unwraps", func(t *testing.T) {
		cause := errors.New("boom")
		err := &GenerationError{Err: cause}

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "artifact generation failed")
	})

	t.Run("validation error carries index", func(t *testing.T) {
		cause := errors.New("timeout")
		err := &ValidationError{Index: 2, Err: cause}

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "iteration 2")
	})

	t.Run("invalid policy error formats issues", func(t *testing.T) {
		single := &InvalidPolicyError{Issues: []string{"bad weight"}}
		assert.Equal(t, "invalid quality policy: bad weight", single.Error())

		multi := &InvalidPolicyError{Issues: []string{"bad weight", "bad cap"}}
		assert.Contains(t, multi.Error(), "2 issues")
	})
}
