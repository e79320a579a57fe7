package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

var _ ports.Corrector = (*ArtifactCorrector)(nil)

// Default correction settings.
const (
	DefaultCorrectMaxTokens   = 2048
	DefaultCorrectTemperature = 0.1
)

// CorrectorConfig defines the parameters for LLM-backed correction.
type CorrectorConfig struct {
	// Schema is the JSON schema the corrected artifact must conform to.
	Schema string `yaml:"schema" json:"schema" validate:"required"`

	// Guidance maps dimension names to correction hints included when
	// that dimension appears in the unmet criteria.
	Guidance map[string]string `yaml:"guidance" json:"guidance"`

	// System is an optional system prompt.
	System string `yaml:"system" json:"system"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=1"`

	// MaxTokens bounds the response length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=0,max=32000"`
}

// ArtifactCorrector rewrites a candidate artifact to address the unmet
// quality criteria flagged by validation. Errors propagate to the
// engine, which records them as non-fatal correction failures counted
// against the retry budget. Stateless and safe for concurrent use.
type ArtifactCorrector struct {
	config CorrectorConfig
	client ports.LLMClient
}

// NewArtifactCorrector validates the configuration and returns a ready
// corrector.
func NewArtifactCorrector(client ports.LLMClient, config CorrectorConfig) (*ArtifactCorrector, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := stepValidate.Struct(config); err != nil {
		return nil, fmt.Errorf("corrector configuration validation failed: %w", err)
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultCorrectTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultCorrectMaxTokens
	}

	return &ArtifactCorrector{
		config: config,
		client: client,
	}, nil
}

// Correct prompts the LLM with the prior artifact and the flagged
// criteria, returning the corrected artifact.
func (c *ArtifactCorrector) Correct(ctx context.Context, artifact domain.Artifact, unmetCriteria []string) (domain.Artifact, error) {
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact for correction: %w", err)
	}

	options := map[string]any{
		"temperature":     c.config.Temperature,
		"max_tokens":      c.config.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	if c.config.System != "" {
		options["system"] = c.config.System
	}

	response, err := c.client.Complete(ctx, c.buildPrompt(string(artifactJSON), unmetCriteria), options)
	if err != nil {
		return nil, fmt.Errorf("correction request failed: %w", err)
	}

	return parseArtifact(response)
}

// buildPrompt renders the correction instructions.
func (c *ArtifactCorrector) buildPrompt(artifactJSON string, unmetCriteria []string) string {
	var b strings.Builder
	b.WriteString("The following artifact failed quality review. Produce a corrected version.\n\n")
	b.WriteString("Failed criteria:\n")
	for _, name := range unmetCriteria {
		b.WriteString("- ")
		b.WriteString(name)
		if hint, ok := c.config.Guidance[name]; ok {
			b.WriteString(": ")
			b.WriteString(hint)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nSchema:\n")
	b.WriteString(c.config.Schema)
	b.WriteString("\n\nArtifact:\n")
	b.WriteString(artifactJSON)
	b.WriteString("\n\nRespond with the corrected artifact as a single JSON object. ")
	b.WriteString("Preserve everything that already satisfies the criteria.")
	return b.String()
}
