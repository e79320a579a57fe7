package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

var (
	_ ports.Validator = (*QualityValidator)(nil)

	// foldCaser is a package-level Unicode case folder, reused so name
	// normalization does not allocate a caser per score.
	foldCaser = cases.Fold()
)

// maxDimensionNameDistance is the largest edit distance at which an
// LLM-returned dimension name is still snapped to a canonical policy
// dimension ("consistancy" -> "consistency").
const maxDimensionNameDistance = 2

// Default validation settings.
const (
	DefaultValidateMaxTokens = 1024
)

// ValidatorConfig defines the parameters for LLM-backed quality scoring.
type ValidatorConfig struct {
	// Criteria describes, per dimension, what the scorer should assess.
	// Keys must be the policy's dimension names.
	Criteria map[string]string `yaml:"criteria" json:"criteria"`

	// System is an optional system prompt.
	System string `yaml:"system" json:"system"`

	// MaxTokens bounds the scoring response length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=0,max=32000"`
}

// scoreResponse is the JSON structure expected from the scoring model.
type scoreResponse struct {
	Scores         map[string]float64 `json:"scores"`
	CriticalIssues int                `json:"critical_issues"`
	Reasoning      string             `json:"reasoning"`
}

// QualityValidator scores candidate artifacts across the policy's
// quality dimensions by prompting an LLM for a structured assessment.
//
// Low scores are never an error: the validator always returns metrics,
// even for a maximally poor artifact. Only infrastructure failures,
// such as transport errors or an unparseable response, are returned as errors,
// which the engine treats as fatal collaborator malfunctions.
//
// The validator is stateless and safe for concurrent use.
type QualityValidator struct {
	config ValidatorConfig
	policy *domain.QualityPolicy
	client ports.LLMClient
	tracer trace.Tracer
}

// NewQualityValidator creates a validator scoring against policy.
func NewQualityValidator(client ports.LLMClient, policy *domain.QualityPolicy, config ValidatorConfig) (*QualityValidator, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if policy == nil {
		return nil, fmt.Errorf("quality policy cannot be nil")
	}
	if err := stepValidate.Struct(config); err != nil {
		return nil, fmt.Errorf("validator configuration validation failed: %w", err)
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultValidateMaxTokens
	}

	return &QualityValidator{
		config: config,
		policy: policy,
		client: client,
		tracer: otel.Tracer("quality-validator"),
	}, nil
}

// Validate scores the artifact and returns quality metrics derived
// under the validator's policy.
func (v *QualityValidator) Validate(ctx context.Context, artifact domain.Artifact) (domain.QualityMetrics, error) {
	ctx, span := v.tracer.Start(ctx, "QualityValidator.Validate",
		trace.WithAttributes(
			attribute.StringSlice("policy.dimensions", v.policy.Dimensions()),
		),
	)
	defer span.End()

	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		span.RecordError(err)
		return domain.QualityMetrics{}, fmt.Errorf("failed to encode artifact for scoring: %w", err)
	}

	prompt := v.buildPrompt(string(artifactJSON))
	options := map[string]any{
		// Deterministic scoring keeps reruns comparable.
		"temperature":     0.0,
		"max_tokens":      v.config.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	if v.config.System != "" {
		options["system"] = v.config.System
	}

	response, err := v.client.Complete(ctx, prompt, options)
	if err != nil {
		span.RecordError(err)
		return domain.QualityMetrics{}, fmt.Errorf("scoring request failed: %w", err)
	}

	metrics, err := v.parseResponse(response)
	if err != nil {
		span.RecordError(err)
		return domain.QualityMetrics{}, err
	}

	span.SetAttributes(
		attribute.Float64("metrics.overall_score", metrics.OverallScore),
		attribute.Int("metrics.critical_issues", metrics.CriticalIssues),
	)
	return metrics, nil
}

// buildPrompt renders the scoring instructions for the artifact.
func (v *QualityValidator) buildPrompt(artifactJSON string) string {
	var b strings.Builder
	b.WriteString("Assess the quality of the following artifact on each dimension, scoring 0.0 to 1.0.\n\n")
	for _, name := range v.policy.Dimensions() {
		b.WriteString("- ")
		b.WriteString(name)
		if desc, ok := v.config.Criteria[name]; ok {
			b.WriteString(": ")
			b.WriteString(desc)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nCount critical issues: defects severe enough that the artifact must not be used as-is.\n")
	b.WriteString("\nArtifact:\n")
	b.WriteString(artifactJSON)
	b.WriteString("\n\nRespond with JSON in exactly this format:\n")
	b.WriteString(`{"scores": {"<dimension>": <0.0-1.0>}, "critical_issues": <count>, "reasoning": "<summary>"}`)
	return b.String()
}

// parseResponse decodes the scoring JSON and derives metrics under the
// policy, normalizing dimension names and clamping scores into [0, 1].
func (v *QualityValidator) parseResponse(response string) (domain.QualityMetrics, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return domain.QualityMetrics{}, fmt.Errorf("no JSON object found in scoring response (%d chars)", len(response))
	}

	var parsed scoreResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return domain.QualityMetrics{}, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if parsed.CriticalIssues < 0 {
		parsed.CriticalIssues = 0
	}

	scores := make(map[string]float64, len(parsed.Scores))
	for name, score := range parsed.Scores {
		canonical, ok := v.canonicalDimension(name)
		if !ok {
			// Unknown dimensions are dropped rather than invented.
			continue
		}
		scores[canonical] = clampScore(score)
	}

	return domain.NewQualityMetrics(scores, parsed.CriticalIssues, v.policy), nil
}

// canonicalDimension maps a model-returned dimension name onto the
// policy's canonical name, tolerating case differences and small typos.
func (v *QualityValidator) canonicalDimension(name string) (string, bool) {
	folded := foldCaser.String(strings.TrimSpace(name))

	bestDistance := maxDimensionNameDistance + 1
	best := ""
	for _, canonical := range v.policy.Dimensions() {
		candidate := foldCaser.String(canonical)
		if candidate == folded {
			return canonical, true
		}
		if d := levenshtein.ComputeDistance(folded, candidate); d < bestDistance {
			bestDistance = d
			best = canonical
		}
	}
	if bestDistance <= maxDimensionNameDistance {
		return best, true
	}
	return "", false
}

// clampScore forces a score into [0, 1].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
