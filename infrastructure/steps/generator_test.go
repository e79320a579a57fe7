package steps

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

// mockLLMClient is a scripted ports.LLMClient shared by the step tests.
type mockLLMClient struct {
	mu          sync.Mutex
	response    string
	err         error
	lastPrompt  string
	lastOptions map[string]any
}

var _ ports.LLMClient = (*mockLLMClient)(nil)

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompt = prompt
	m.lastOptions = options
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMClient) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }
func (m *mockLLMClient) GetModel() string                        { return "mock-model" }

const testSchema = `{"type": "object", "properties": {"summary": {"type": "string"}}}`

// TestNewArtifactGenerator verifies configuration validation and
// defaulting.
func TestNewArtifactGenerator(t *testing.T) {
	t.Run("nil client rejected", func(t *testing.T) {
		_, err := NewArtifactGenerator(nil, GeneratorConfig{
			PromptTemplate: "Write a summary matching {{.Schema}}",
			Schema:         testSchema,
		})
		assert.Error(t, err)
	})

	t.Run("short template rejected", func(t *testing.T) {
		_, err := NewArtifactGenerator(&mockLLMClient{}, GeneratorConfig{
			PromptTemplate: "too short",
			Schema:         testSchema,
		})
		assert.Error(t, err)
	})

	t.Run("missing schema rejected", func(t *testing.T) {
		_, err := NewArtifactGenerator(&mockLLMClient{}, GeneratorConfig{
			PromptTemplate: "Write a summary matching {{.Schema}}",
		})
		assert.Error(t, err)
	})

	t.Run("malformed template rejected", func(t *testing.T) {
		_, err := NewArtifactGenerator(&mockLLMClient{}, GeneratorConfig{
			PromptTemplate: "Write a summary matching {{.Schema",
			Schema:         testSchema,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse prompt template")
	})

	t.Run("defaults applied", func(t *testing.T) {
		gen, err := NewArtifactGenerator(&mockLLMClient{}, GeneratorConfig{
			PromptTemplate: "Write a summary matching {{.Schema}}",
			Schema:         testSchema,
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultGenerateTemperature, gen.config.Temperature)
		assert.Equal(t, DefaultGenerateMaxTokens, gen.config.MaxTokens)
	})
}

// TestArtifactGeneratorGenerate verifies prompt rendering, request
// options, and artifact parsing.
func TestArtifactGeneratorGenerate(t *testing.T) {
	newGenerator := func(t *testing.T, client *mockLLMClient) *ArtifactGenerator {
		t.Helper()
		gen, err := NewArtifactGenerator(client, GeneratorConfig{
			PromptTemplate: "Produce a quarterly summary conforming to:\n{{.Schema}}",
			Schema:         testSchema,
			System:         "You are a precise report writer.",
		})
		require.NoError(t, err)
		return gen
	}

	t.Run("parses artifact from response", func(t *testing.T) {
		client := &mockLLMClient{response: `{"summary": "Revenue grew 12%."}`}
		gen := newGenerator(t, client)

		artifact, err := gen.Generate(context.Background())
		require.NoError(t, err)

		parsed, ok := artifact.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Revenue grew 12%.", parsed["summary"])
	})

	t.Run("prompt carries schema and instructions", func(t *testing.T) {
		client := &mockLLMClient{response: `{}`}
		gen := newGenerator(t, client)

		_, err := gen.Generate(context.Background())
		require.NoError(t, err)

		assert.Contains(t, client.lastPrompt, testSchema)
		assert.Contains(t, client.lastPrompt, "single JSON object")
		assert.Equal(t, "You are a precise report writer.", client.lastOptions["system"])
		assert.Equal(t, map[string]string{"type": "json_object"}, client.lastOptions["response_format"])
	})

	t.Run("fenced response handled", func(t *testing.T) {
		client := &mockLLMClient{response: "```json\n{\"summary\": \"ok\"}\n```"}
		gen := newGenerator(t, client)

		artifact, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", artifact.(map[string]any)["summary"])
	})

	t.Run("transport error propagates", func(t *testing.T) {
		client := &mockLLMClient{err: errors.New("model unavailable")}
		gen := newGenerator(t, client)

		_, err := gen.Generate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generation request failed")
	})

	t.Run("non-json response rejected", func(t *testing.T) {
		client := &mockLLMClient{response: "Sorry, I cannot help with that."}
		gen := newGenerator(t, client)

		_, err := gen.Generate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no JSON object found")
	})
}

// TestGeneratorImplementsPort pins the interface relationship the
// engine relies on.
func TestGeneratorImplementsPort(t *testing.T) {
	gen, err := NewArtifactGenerator(&mockLLMClient{response: "{}"}, GeneratorConfig{
		PromptTemplate: strings.Repeat("generate artifact ", 3),
		Schema:         testSchema,
	})
	require.NoError(t, err)

	var _ ports.Generator = gen

	artifact, err := gen.Generate(context.Background())
	require.NoError(t, err)
	_, ok := artifact.(map[string]any)
	assert.True(t, ok, "generated artifacts decode to maps")
	var _ domain.Artifact = artifact
}
