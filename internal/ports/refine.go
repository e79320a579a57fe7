// Package ports defines the contracts between the refinement engine and
// its collaborators. The generate, validate, and correct operations are
// caller-supplied; the engine drives them without knowing whether they
// perform classification, extraction, appraisal, or report synthesis.
package ports

import (
	"context"

	"github.com/ahrav/go-refine/internal/domain"
)

// Generator produces the initial candidate artifact for a refinement
// session. A generator failure is fatal: without a first artifact no
// correction is possible.
type Generator interface {
	Generate(ctx context.Context) (domain.Artifact, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context) (domain.Artifact, error)

// Generate calls the underlying function.
func (f GeneratorFunc) Generate(ctx context.Context) (domain.Artifact, error) { return f(ctx) }

// Validator scores a candidate artifact against the session's quality
// dimensions. Validators must always return metrics, even for a
// maximally poor artifact; an error signals an infrastructure
// malfunction, not an artifact quality problem, and aborts the run.
type Validator interface {
	Validate(ctx context.Context, artifact domain.Artifact) (domain.QualityMetrics, error)
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ctx context.Context, artifact domain.Artifact) (domain.QualityMetrics, error)

// Validate calls the underlying function.
func (f ValidatorFunc) Validate(ctx context.Context, artifact domain.Artifact) (domain.QualityMetrics, error) {
	return f(ctx, artifact)
}

// Corrector attempts to fix the flagged issues in a candidate artifact,
// producing a new candidate. Correction errors are non-fatal: the engine
// records them, counts them against the retry budget, and keeps the
// prior artifact.
type Corrector interface {
	Correct(ctx context.Context, artifact domain.Artifact, unmetCriteria []string) (domain.Artifact, error)
}

// CorrectorFunc adapts a plain function to the Corrector interface.
type CorrectorFunc func(ctx context.Context, artifact domain.Artifact, unmetCriteria []string) (domain.Artifact, error)

// Correct calls the underlying function.
func (f CorrectorFunc) Correct(ctx context.Context, artifact domain.Artifact, unmetCriteria []string) (domain.Artifact, error) {
	return f(ctx, artifact, unmetCriteria)
}

// Phase identifies where in the refinement loop a progress event was
// emitted. The set is closed: observers can rely on exhaustive handling
// instead of probing an open-ended payload for keys that may not exist.
type Phase string

const (
	// PhaseGenerating is emitted before the initial generation.
	PhaseGenerating Phase = "generating"

	// PhaseValidating is emitted after a candidate has been validated
	// and its record appended.
	PhaseValidating Phase = "validating"

	// PhaseCorrecting is emitted before a correction attempt.
	PhaseCorrecting Phase = "correcting"

	// PhaseTerminated is emitted once, after the run has committed.
	PhaseTerminated Phase = "terminated"
)

// ProgressEvent carries the state of the loop at an emission point.
// Snapshot is a read-only copy; observers may retain it freely.
type ProgressEvent struct {
	// Index is the iteration the event refers to.
	Index int

	// Phase is the loop phase that produced the event.
	Phase Phase

	// Verdict is set for PhaseValidating events and nil otherwise.
	Verdict *domain.Verdict

	// Snapshot is the run history at emission time.
	Snapshot domain.RunSnapshot
}

// ProgressObserver receives best-effort progress notifications from the
// loop. Panics raised by an observer are recovered and logged by the
// engine, never propagated: a UI failure must not abort refinement.
type ProgressObserver interface {
	OnProgress(event ProgressEvent)
}

// ProgressFunc adapts a plain function to the ProgressObserver interface.
type ProgressFunc func(event ProgressEvent)

// OnProgress calls the underlying function.
func (f ProgressFunc) OnProgress(event ProgressEvent) { f(event) }
