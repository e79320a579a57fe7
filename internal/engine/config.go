package engine

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-refine/internal/domain"
)

// configValidate is the package-level validator for session configs.
var configValidate = validator.New()

// SessionConfig is the YAML-facing specification for a refinement
// session: the quality policy plus the loop settings. It is the primary
// configuration entry point for callers that drive the engine from
// declarative files rather than code.
type SessionConfig struct {
	// Policy defines the quality dimensions, weights, thresholds, and
	// critical issue cap the session is scored against.
	Policy PolicyConfig `yaml:"policy" validate:"required"`

	// Loop defines the retry budget and trend-detection settings.
	Loop LoopConfig `yaml:"loop"`
}

// PolicyConfig mirrors domain.PolicySpec in YAML form, with dimensions
// listed explicitly so a config reads as a table rather than parallel
// maps that can drift apart.
type PolicyConfig struct {
	// Dimensions lists each quality dimension with its weight and
	// minimum passing threshold.
	Dimensions []DimensionConfig `yaml:"dimensions" validate:"required,min=1,dive"`

	// CriticalIssueCap is the overall-score ceiling applied when any
	// critical issue is present.
	CriticalIssueCap float64 `yaml:"critical_issue_cap" validate:"min=0,max=1"`

	// WarnTolerance is the band below a threshold within which a missed
	// dimension still warns instead of failing. Zero means the default.
	WarnTolerance float64 `yaml:"warn_tolerance" validate:"min=0,max=1"`
}

// DimensionConfig is one row of the policy table.
type DimensionConfig struct {
	// Name identifies the dimension (e.g. "completeness").
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Weight is this dimension's contribution to the overall score.
	Weight float64 `yaml:"weight" validate:"min=0,max=1"`

	// Threshold is the minimum passing score for this dimension.
	Threshold float64 `yaml:"threshold" validate:"min=0,max=1"`
}

// LoopConfig holds the loop runner settings.
type LoopConfig struct {
	// MaxCorrections is the correction retry budget.
	MaxCorrections int `yaml:"max_corrections" validate:"min=0,max=100"`

	// StepTimeoutSeconds bounds each collaborator call. Zero disables
	// the per-step deadline.
	StepTimeoutSeconds int `yaml:"step_timeout_seconds" validate:"min=0,max=3600"`

	// DegradationMargin and PlateauEpsilon tune trend detection.
	// Zero values use the engine defaults.
	DegradationMargin float64 `yaml:"degradation_margin" validate:"min=0,max=1"`
	PlateauEpsilon    float64 `yaml:"plateau_epsilon" validate:"min=0,max=1"`
}

// ParseSessionConfig decodes and validates a YAML session config,
// returning the constructed policy and the runner configuration derived
// from it. Policy violations surface here, at configuration time, as a
// *domain.InvalidPolicyError.
func ParseSessionConfig(data []byte) (*domain.QualityPolicy, RunnerConfig, error) {
	var cfg SessionConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, RunnerConfig{}, fmt.Errorf("failed to decode session config: %w", err)
	}

	if err := configValidate.Struct(cfg); err != nil {
		return nil, RunnerConfig{}, fmt.Errorf("session config validation failed: %w", err)
	}

	spec := domain.PolicySpec{
		Thresholds:       make(map[string]float64, len(cfg.Policy.Dimensions)),
		Weights:          make(map[string]float64, len(cfg.Policy.Dimensions)),
		CriticalIssueCap: cfg.Policy.CriticalIssueCap,
		WarnTolerance:    cfg.Policy.WarnTolerance,
	}
	for _, dim := range cfg.Policy.Dimensions {
		if _, exists := spec.Thresholds[dim.Name]; exists {
			return nil, RunnerConfig{}, fmt.Errorf("duplicate dimension %q in session config", dim.Name)
		}
		spec.Thresholds[dim.Name] = dim.Threshold
		spec.Weights[dim.Name] = dim.Weight
	}

	policy, err := domain.NewQualityPolicy(spec)
	if err != nil {
		return nil, RunnerConfig{}, err
	}

	runnerCfg := RunnerConfig{
		MaxCorrections:    cfg.Loop.MaxCorrections,
		StepTimeout:       time.Duration(cfg.Loop.StepTimeoutSeconds) * time.Second,
		DegradationMargin: cfg.Loop.DegradationMargin,
		PlateauEpsilon:    cfg.Loop.PlateauEpsilon,
	}
	return policy, runnerCfg, nil
}

// LoadSessionConfig reads and parses a YAML session config from disk.
func LoadSessionConfig(path string) (*domain.QualityPolicy, RunnerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, RunnerConfig{}, fmt.Errorf("failed to read session config %s: %w", path, err)
	}
	return ParseSessionConfig(data)
}
