package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Policy validation constants.
const (
	// WeightSumTolerance is the permitted deviation of the weight sum
	// from 1.0 before a policy is rejected.
	WeightSumTolerance = 1e-3

	// DefaultWarnTolerance is the band below a threshold within which a
	// missed dimension still yields a WARNING rather than FAILED.
	DefaultWarnTolerance = 0.05
)

// validate is the package-level validator shared by policy construction.
var validate = validator.New()

// PolicySpec is the caller-facing specification for a quality policy.
// It is validated once, at construction time, so configuration errors
// surface immediately rather than mid-run.
type PolicySpec struct {
	// Thresholds maps each dimension name to its minimum passing score.
	Thresholds map[string]float64 `yaml:"thresholds" json:"thresholds" validate:"required,min=1,dive,min=0,max=1"`

	// Weights maps each dimension name to its contribution to the
	// overall score. Weights must sum to 1.0 within WeightSumTolerance.
	Weights map[string]float64 `yaml:"weights" json:"weights" validate:"required,min=1,dive,min=0,max=1"`

	// CriticalIssueCap is the ceiling imposed on the overall score when
	// any critical issue is present. It must sit below the lowest
	// passing threshold so a critical defect can never pass.
	CriticalIssueCap float64 `yaml:"critical_issue_cap" json:"critical_issue_cap" validate:"min=0,max=1"`

	// WarnTolerance overrides DefaultWarnTolerance when non-zero.
	WarnTolerance float64 `yaml:"warn_tolerance" json:"warn_tolerance" validate:"min=0,max=1"`
}

// QualityPolicy is the immutable configuration a refinement session is
// scored against. Construct one with NewQualityPolicy; the zero value is
// not usable.
type QualityPolicy struct {
	dimensions       []string
	thresholds       map[string]float64
	weights          map[string]float64
	criticalIssueCap float64
	warnTolerance    float64
}

// NewQualityPolicy validates spec and returns an immutable policy.
// It returns an *InvalidPolicyError describing every violation found:
// scores outside [0,1], weights not summing to 1.0, mismatched dimension
// sets between thresholds and weights, or a critical issue cap at or
// above the lowest threshold.
func NewQualityPolicy(spec PolicySpec) (*QualityPolicy, error) {
	polErr := &InvalidPolicyError{}

	if err := validate.Struct(spec); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				polErr.Issues = append(polErr.Issues,
					fmt.Sprintf("field %s failed %q validation", ve.Namespace(), ve.Tag()))
			}
		} else {
			return nil, fmt.Errorf("policy spec validation: %w", err)
		}
	}

	var weightSum float64
	for name, weight := range spec.Weights {
		weightSum += weight
		if _, ok := spec.Thresholds[name]; !ok {
			polErr.Issues = append(polErr.Issues,
				fmt.Sprintf("dimension %q has a weight but no threshold", name))
		}
	}
	for name := range spec.Thresholds {
		if _, ok := spec.Weights[name]; !ok {
			polErr.Issues = append(polErr.Issues,
				fmt.Sprintf("dimension %q has a threshold but no weight", name))
		}
	}
	if len(spec.Weights) > 0 && math.Abs(weightSum-1.0) > WeightSumTolerance {
		polErr.Issues = append(polErr.Issues,
			fmt.Sprintf("weights sum to %.4f, expected 1.0 within %.0e", weightSum, WeightSumTolerance))
	}

	lowest := math.Inf(1)
	for _, threshold := range spec.Thresholds {
		if threshold < lowest {
			lowest = threshold
		}
	}
	if len(spec.Thresholds) > 0 && spec.CriticalIssueCap >= lowest {
		polErr.Issues = append(polErr.Issues,
			fmt.Sprintf("critical issue cap %.2f must be below the lowest threshold %.2f",
				spec.CriticalIssueCap, lowest))
	}

	if len(polErr.Issues) > 0 {
		return nil, polErr
	}

	dimensions := make([]string, 0, len(spec.Thresholds))
	thresholds := make(map[string]float64, len(spec.Thresholds))
	weights := make(map[string]float64, len(spec.Weights))
	for name, threshold := range spec.Thresholds {
		dimensions = append(dimensions, name)
		thresholds[name] = threshold
		weights[name] = spec.Weights[name]
	}
	// Sorted dimension order keeps scoring and unmet-criteria lists
	// deterministic across runs.
	sort.Strings(dimensions)

	warnTolerance := spec.WarnTolerance
	if warnTolerance == 0 {
		warnTolerance = DefaultWarnTolerance
	}

	return &QualityPolicy{
		dimensions:       dimensions,
		thresholds:       thresholds,
		weights:          weights,
		criticalIssueCap: spec.CriticalIssueCap,
		warnTolerance:    warnTolerance,
	}, nil
}

// Dimensions returns the policy's dimension names in sorted order.
// The returned slice is a copy and safe to modify.
func (p *QualityPolicy) Dimensions() []string {
	out := make([]string, len(p.dimensions))
	copy(out, p.dimensions)
	return out
}

// Threshold returns the minimum passing score for the named dimension.
// Unknown dimensions return 0.
func (p *QualityPolicy) Threshold(name string) float64 { return p.thresholds[name] }

// Weight returns the overall-score weight for the named dimension.
// Unknown dimensions return 0.
func (p *QualityPolicy) Weight(name string) float64 { return p.weights[name] }

// CriticalIssueCap returns the overall-score ceiling applied when any
// critical issue is present.
func (p *QualityPolicy) CriticalIssueCap() float64 { return p.criticalIssueCap }

// WarnTolerance returns the band below a threshold within which a missed
// dimension is still eligible for a WARNING verdict.
func (p *QualityPolicy) WarnTolerance() float64 { return p.warnTolerance }
