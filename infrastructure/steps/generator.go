package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

var _ ports.Generator = (*ArtifactGenerator)(nil)

// stepValidate is the package-level validator shared by step configs.
var stepValidate = validator.New()

// Default generation settings.
const (
	DefaultGenerateMaxTokens   = 2048
	DefaultGenerateTemperature = 0.2
)

// GeneratorConfig defines the parameters for schema-guided generation.
type GeneratorConfig struct {
	// PromptTemplate is the Go template producing the generation prompt.
	// It receives {{.Schema}} for safe substitution of the target schema.
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template" validate:"required,min=20"`

	// Schema is the JSON schema text the artifact must conform to. The
	// generator passes it verbatim into the prompt; conformance is the
	// validator's concern.
	Schema string `yaml:"schema" json:"schema" validate:"required"`

	// System is an optional system prompt.
	System string `yaml:"system" json:"system"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=1"`

	// MaxTokens bounds the response length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=0,max=32000"`
}

// ArtifactGenerator produces the initial candidate artifact by prompting
// an LLM with a schema-guided template and parsing the JSON object out
// of its response. It is stateless and safe for concurrent use.
type ArtifactGenerator struct {
	config GeneratorConfig
	client ports.LLMClient
	tmpl   *template.Template
}

// NewArtifactGenerator validates the configuration, compiles the prompt
// template, and returns a ready generator.
func NewArtifactGenerator(client ports.LLMClient, config GeneratorConfig) (*ArtifactGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := stepValidate.Struct(config); err != nil {
		return nil, fmt.Errorf("generator configuration validation failed: %w", err)
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultGenerateTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGenerateMaxTokens
	}

	tmpl, err := template.New("generatePrompt").Parse(config.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &ArtifactGenerator{
		config: config,
		client: client,
		tmpl:   tmpl,
	}, nil
}

// Generate prompts the LLM and returns the parsed candidate artifact as
// a map. Any failure here is fatal to the refinement run: without a
// first artifact there is nothing to correct.
func (g *ArtifactGenerator) Generate(ctx context.Context) (domain.Artifact, error) {
	var promptBuf bytes.Buffer
	data := struct{ Schema string }{Schema: g.config.Schema}
	if err := g.tmpl.Execute(&promptBuf, data); err != nil {
		return nil, fmt.Errorf("failed to execute prompt template: %w", err)
	}
	prompt := promptBuf.String() +
		"\n\nRespond with a single JSON object conforming to the schema. No commentary."

	options := map[string]any{
		"temperature":     g.config.Temperature,
		"max_tokens":      g.config.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	if g.config.System != "" {
		options["system"] = g.config.System
	}

	response, err := g.client.Complete(ctx, prompt, options)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return parseArtifact(response)
}

// parseArtifact extracts and decodes the JSON object in response.
func parseArtifact(response string) (domain.Artifact, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in response (%d chars)", len(response))
	}

	var artifact map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode artifact JSON: %w", err)
	}
	return artifact, nil
}
