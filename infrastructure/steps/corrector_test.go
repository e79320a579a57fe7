package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewArtifactCorrector verifies constructor validation and
// defaulting.
func TestNewArtifactCorrector(t *testing.T) {
	t.Run("nil client rejected", func(t *testing.T) {
		_, err := NewArtifactCorrector(nil, CorrectorConfig{Schema: testSchema})
		assert.Error(t, err)
	})

	t.Run("missing schema rejected", func(t *testing.T) {
		_, err := NewArtifactCorrector(&mockLLMClient{}, CorrectorConfig{})
		assert.Error(t, err)
	})

	t.Run("defaults applied", func(t *testing.T) {
		c, err := NewArtifactCorrector(&mockLLMClient{}, CorrectorConfig{Schema: testSchema})
		require.NoError(t, err)
		assert.Equal(t, DefaultCorrectTemperature, c.config.Temperature)
		assert.Equal(t, DefaultCorrectMaxTokens, c.config.MaxTokens)
	})
}

// TestArtifactCorrectorCorrect verifies prompt construction around the
// failed criteria and parsing of the corrected artifact.
func TestArtifactCorrectorCorrect(t *testing.T) {
	artifact := map[string]any{"summary": "Revenue grew."}

	newCorrector := func(t *testing.T, client *mockLLMClient) *ArtifactCorrector {
		t.Helper()
		c, err := NewArtifactCorrector(client, CorrectorConfig{
			Schema: testSchema,
			Guidance: map[string]string{
				"completeness": "add the missing cost and outlook sections",
			},
		})
		require.NoError(t, err)
		return c
	}

	t.Run("returns corrected artifact", func(t *testing.T) {
		client := &mockLLMClient{response: `{"summary": "Revenue grew 12%; costs fell 3%; outlook stable."}`}
		c := newCorrector(t, client)

		corrected, err := c.Correct(context.Background(), artifact, []string{"completeness"})
		require.NoError(t, err)

		parsed, ok := corrected.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, parsed["summary"], "outlook stable")
	})

	t.Run("prompt carries criteria guidance and artifact", func(t *testing.T) {
		client := &mockLLMClient{response: `{}`}
		c := newCorrector(t, client)

		_, err := c.Correct(context.Background(), artifact, []string{"completeness", "clarity"})
		require.NoError(t, err)

		assert.Contains(t, client.lastPrompt, "completeness: add the missing cost and outlook sections")
		assert.Contains(t, client.lastPrompt, "- clarity")
		assert.Contains(t, client.lastPrompt, `"Revenue grew."`)
		assert.Contains(t, client.lastPrompt, testSchema)
		assert.Contains(t, client.lastPrompt, "Preserve everything that already satisfies")
	})

	t.Run("transport error propagates", func(t *testing.T) {
		client := &mockLLMClient{err: errors.New("rate limited")}
		c := newCorrector(t, client)

		_, err := c.Correct(context.Background(), artifact, []string{"clarity"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "correction request failed")
	})

	t.Run("non-json response rejected", func(t *testing.T) {
		client := &mockLLMClient{response: "I made it better."}
		c := newCorrector(t, client)

		_, err := c.Correct(context.Background(), artifact, []string{"clarity"})
		require.Error(t, err)
	})
}
