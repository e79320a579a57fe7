package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQualityPolicy verifies construction-time validation: every
// violation is reported, and valid specs yield immutable policies with
// deterministic dimension ordering.
func TestNewQualityPolicy(t *testing.T) {
	t.Run("valid policy", func(t *testing.T) {
		policy, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 0.6, "b": 0.4},
			Thresholds:       map[string]float64{"a": 0.8, "b": 0.7},
			CriticalIssueCap: 0.4,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, policy.Dimensions())
		assert.Equal(t, 0.8, policy.Threshold("a"))
		assert.Equal(t, 0.4, policy.Weight("b"))
		assert.Equal(t, 0.4, policy.CriticalIssueCap())
		assert.Equal(t, DefaultWarnTolerance, policy.WarnTolerance())
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{
			Weights:    map[string]float64{"a": 0.5, "b": 0.3},
			Thresholds: map[string]float64{"a": 0.8, "b": 0.7},
		})
		require.Error(t, err)

		var polErr *InvalidPolicyError
		require.ErrorAs(t, err, &polErr)
		assert.Contains(t, polErr.Error(), "weights sum to 0.8000")
	})

	t.Run("weight sum tolerance accepts tiny drift", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 0.5005, "b": 0.5},
			Thresholds:       map[string]float64{"a": 0.8, "b": 0.7},
			CriticalIssueCap: 0.4,
		})
		assert.NoError(t, err, "deviation within the tolerance should pass")
	})

	t.Run("mismatched dimension sets", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 1.0},
			Thresholds:       map[string]float64{"b": 0.7},
			CriticalIssueCap: 0.4,
		})
		require.Error(t, err)

		var polErr *InvalidPolicyError
		require.ErrorAs(t, err, &polErr)
		assert.Contains(t, polErr.Error(), `dimension "a" has a weight but no threshold`)
		assert.Contains(t, polErr.Error(), `dimension "b" has a threshold but no weight`)
	})

	t.Run("cap must sit below the lowest threshold", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 0.5, "b": 0.5},
			Thresholds:       map[string]float64{"a": 0.8, "b": 0.6},
			CriticalIssueCap: 0.6,
		})
		require.Error(t, err)

		var polErr *InvalidPolicyError
		require.ErrorAs(t, err, &polErr)
		assert.Contains(t, polErr.Error(), "critical issue cap 0.60 must be below the lowest threshold 0.60")
	})

	t.Run("scores outside unit interval rejected", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 1.0},
			Thresholds:       map[string]float64{"a": 1.5},
			CriticalIssueCap: 0.4,
		})
		require.Error(t, err)

		var polErr *InvalidPolicyError
		require.ErrorAs(t, err, &polErr)
	})

	t.Run("all violations collected in one error", func(t *testing.T) {
		// Wrong sum, mismatched sets, cap above threshold.
		_, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 0.3},
			Thresholds:       map[string]float64{"b": 0.5},
			CriticalIssueCap: 0.9,
		})
		require.Error(t, err)

		var polErr *InvalidPolicyError
		require.ErrorAs(t, err, &polErr)
		assert.GreaterOrEqual(t, len(polErr.Issues), 3,
			"construction should report every violation, not stop at the first")
	})

	t.Run("empty spec rejected", func(t *testing.T) {
		_, err := NewQualityPolicy(PolicySpec{})
		require.Error(t, err)
	})

	t.Run("dimensions accessor returns a copy", func(t *testing.T) {
		policy, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 0.5, "b": 0.5},
			Thresholds:       map[string]float64{"a": 0.8, "b": 0.7},
			CriticalIssueCap: 0.4,
		})
		require.NoError(t, err)

		dims := policy.Dimensions()
		dims[0] = "mutated"
		assert.Equal(t, []string{"a", "b"}, policy.Dimensions())
	})

	t.Run("explicit warn tolerance overrides default", func(t *testing.T) {
		policy, err := NewQualityPolicy(PolicySpec{
			Weights:          map[string]float64{"a": 1.0},
			Thresholds:       map[string]float64{"a": 0.8},
			CriticalIssueCap: 0.4,
			WarnTolerance:    0.1,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.1, policy.WarnTolerance())
	})
}
