package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-refine/internal/domain"
)

// appendRecord appends a record with the given verdict, score, and
// critical issue count.
func appendRecord(t *testing.T, run *domain.LoopRun, verdict domain.Verdict, score float64, criticals int) {
	t.Helper()
	require.NoError(t, run.Append(domain.IterationRecord{
		Index:   run.Len(),
		Verdict: verdict,
		Metrics: domain.QualityMetrics{OverallScore: score, CriticalIssues: criticals},
	}))
}

// TestSelectBest verifies the selection precedence: verdict rank, then
// fewer critical issues, then higher score, then earliest index.
func TestSelectBest(t *testing.T) {
	t.Run("empty run rejected", func(t *testing.T) {
		_, err := SelectBest(domain.NewLoopRun())
		assert.ErrorIs(t, err, ErrEmptyRun)
	})

	t.Run("single record selected", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.2, 0)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("verdict rank dominates score", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.95, 0)
		appendRecord(t, run, domain.VerdictWarning, 0.70, 0)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 1, idx,
			"a WARNING iteration beats a higher-scoring FAILED one")
	})

	t.Run("passed beats warning", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictWarning, 0.9, 0)
		appendRecord(t, run, domain.VerdictPassed, 0.8, 0)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("fewer criticals break verdict ties", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.4, 2)
		appendRecord(t, run, domain.VerdictFailed, 0.4, 1)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("higher score breaks critical ties", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.5, 0)
		appendRecord(t, run, domain.VerdictFailed, 0.6, 0)
		appendRecord(t, run, domain.VerdictFailed, 0.55, 0)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("earliest index wins full ties", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.5, 1)
		appendRecord(t, run, domain.VerdictFailed, 0.5, 1)
		appendRecord(t, run, domain.VerdictFailed, 0.5, 1)

		idx, err := SelectBest(run)
		require.NoError(t, err)
		assert.Equal(t, 0, idx,
			"identical quality prefers the cheapest iteration")
	})

	t.Run("deterministic over reruns", func(t *testing.T) {
		run := domain.NewLoopRun()
		appendRecord(t, run, domain.VerdictFailed, 0.3, 1)
		appendRecord(t, run, domain.VerdictWarning, 0.7, 0)
		appendRecord(t, run, domain.VerdictFailed, 0.9, 0)

		first, err := SelectBest(run)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			idx, err := SelectBest(run)
			require.NoError(t, err)
			assert.Equal(t, first, idx)
		}
	})
}
