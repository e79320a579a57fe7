package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

// RunnerConfig configures a refinement loop runner. The zero value is
// usable: a single generate+validate pass with default trend margins and
// no observability wired in.
type RunnerConfig struct {
	// MaxCorrections is the retry budget: the number of correction
	// attempts allowed after the initial generation. Zero means exactly
	// one generate+validate pass; the evaluator and selector still run
	// over the single-element history.
	MaxCorrections int

	// StepTimeout, when positive, bounds each individual collaborator
	// call. A deadline exceeded from a step is treated as that step's
	// ordinary failure: fatal for generation and validation, counted
	// against the budget for correction.
	StepTimeout time.Duration

	// DegradationMargin and PlateauEpsilon tune trend detection; see
	// Tracker. Non-positive values use the defaults.
	DegradationMargin float64
	PlateauEpsilon    float64

	// Observer receives best-effort progress notifications. Panics are
	// recovered and logged, never propagated.
	Observer ports.ProgressObserver

	// Metrics, when set, receives iteration and run level counters,
	// histograms, and latencies.
	Metrics ports.MetricsCollector

	// Logger is used only for swallowed observer panics and degradation
	// warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Runner drives the refinement state machine
// INIT → GENERATING → VALIDATING → {ACCEPTED, CORRECTING} → VALIDATING →
// … → TERMINATED for one artifact at a time. A Runner holds no per-run
// state and is safe for concurrent Run calls, provided the collaborators
// passed to each call are themselves safe for concurrent invocation.
type Runner struct {
	policy    *domain.QualityPolicy
	config    RunnerConfig
	evaluator *ThresholdEvaluator
	tracker   *Tracker
	logger    *slog.Logger
}

// NewRunner creates a runner for the given policy and configuration.
func NewRunner(policy *domain.QualityPolicy, config RunnerConfig) (*Runner, error) {
	if policy == nil {
		return nil, fmt.Errorf("quality policy is required")
	}
	if config.MaxCorrections < 0 {
		return nil, fmt.Errorf("max corrections cannot be negative, got %d", config.MaxCorrections)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		policy:    policy,
		config:    config,
		evaluator: NewThresholdEvaluator(policy),
		tracker:   NewTracker(config.DegradationMargin, config.PlateauEpsilon),
		logger:    logger,
	}, nil
}

// Run executes one full refinement session and returns the completed,
// terminated LoopRun with its committed index set.
//
// A generation failure returns a *domain.GenerationError and a
// validation infrastructure failure returns a *domain.ValidationError;
// in both cases no LoopRun is returned and the engine never retries
// internally; callers decide whether to invoke Run again. Correction
// failures are absorbed into the iteration history: the failed attempt
// is recorded as a FAILED iteration retaining the previous artifact, and
// the loop proceeds with the correction counted against the budget.
func (r *Runner) Run(
	ctx context.Context,
	generate ports.Generator,
	validate ports.Validator,
	correct ports.Corrector,
) (*domain.LoopRun, error) {
	start := time.Now()
	run := domain.NewLoopRun()

	r.notify(run, 0, ports.PhaseGenerating, nil)

	artifact, err := r.generateStep(ctx, generate)
	if err != nil {
		r.recordRunMetrics(domain.StatusHardFailure, start)
		return nil, &domain.GenerationError{Err: err}
	}

	for {
		rec, err := r.validateStep(ctx, run, validate, artifact)
		if err != nil {
			r.recordRunMetrics(domain.StatusHardFailure, start)
			return nil, err
		}

		if r.tracker.IsDegrading(run) {
			r.logger.Warn("correction degraded quality",
				"index", rec.Index,
				"overall_score", rec.Metrics.OverallScore)
			r.count("refine_degradations_total", nil)
		}

		if status, done := r.terminalStatus(run, rec); done {
			return r.terminate(run, status, start)
		}

		// CORRECTING: a failed attempt is recorded against the budget
		// and retried from the same artifact until the budget runs out.
		for {
			r.notify(run, rec.Index+1, ports.PhaseCorrecting, nil)

			corrected, correctionErr := r.correctStep(ctx, correct, artifact, rec.UnmetCriteria)
			if correctionErr == nil {
				artifact = corrected
				break
			}

			failRec, recordErr := r.tracker.Record(
				run, artifact, rec.Metrics, domain.VerdictFailed, rec.UnmetCriteria, correctionErr)
			if recordErr != nil {
				return nil, recordErr
			}
			r.emitIterationMetrics(failRec)
			r.count("refine_correction_failures_total", nil)

			if status, done := r.terminalStatus(run, failRec); done {
				return r.terminate(run, status, start)
			}
			rec = failRec
		}
	}
}

// generateStep invokes the generator with the optional per-step timeout.
func (r *Runner) generateStep(ctx context.Context, generate ports.Generator) (domain.Artifact, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return generate.Generate(stepCtx)
}

// validateStep validates the artifact, evaluates the verdict, appends
// the iteration record, and emits progress and metrics for it.
func (r *Runner) validateStep(
	ctx context.Context,
	run *domain.LoopRun,
	validate ports.Validator,
	artifact domain.Artifact,
) (domain.IterationRecord, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	metrics, err := validate.Validate(stepCtx, artifact)
	if err != nil {
		return domain.IterationRecord{}, &domain.ValidationError{Index: run.Len(), Err: err}
	}

	verdict, unmet := r.evaluator.Evaluate(metrics)
	rec, err := r.tracker.Record(run, artifact, metrics, verdict, unmet, nil)
	if err != nil {
		return domain.IterationRecord{}, err
	}

	r.emitIterationMetrics(rec)
	r.notify(run, rec.Index, ports.PhaseValidating, &verdict)
	return rec, nil
}

// correctStep invokes the corrector with the optional per-step timeout.
func (r *Runner) correctStep(
	ctx context.Context,
	correct ports.Corrector,
	artifact domain.Artifact,
	unmetCriteria []string,
) (domain.Artifact, error) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	return correct.Correct(stepCtx, artifact, unmetCriteria)
}

// terminalStatus decides whether the loop stops after rec. Quality
// sufficiency is checked first, then plateau, then the budget; plateau
// deliberately terminates with its own status so downstream consumers
// can tell a stalled run from a passing one.
func (r *Runner) terminalStatus(run *domain.LoopRun, rec domain.IterationRecord) (domain.TerminalStatus, bool) {
	switch {
	case rec.Verdict == domain.VerdictPassed, rec.Verdict == domain.VerdictWarning:
		return domain.StatusQualitySufficient, true
	case r.tracker.IsPlateaued(run):
		return domain.StatusPlateaued, true
	case rec.Index >= r.config.MaxCorrections:
		return domain.StatusMaxIterationsReached, true
	default:
		return domain.StatusUnknown, false
	}
}

// terminate commits the best iteration, seals the run, and emits the
// final progress event and run-level metrics.
func (r *Runner) terminate(run *domain.LoopRun, status domain.TerminalStatus, start time.Time) (*domain.LoopRun, error) {
	committed, err := SelectBest(run)
	if err != nil {
		return nil, err
	}
	if err := run.Terminate(status, committed); err != nil {
		return nil, err
	}

	r.notify(run, committed, ports.PhaseTerminated, nil)
	r.recordRunMetrics(status, start)
	return run, nil
}

// stepContext derives the per-call context for a collaborator invocation.
func (r *Runner) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.StepTimeout > 0 {
		return context.WithTimeout(ctx, r.config.StepTimeout)
	}
	return context.WithCancel(ctx)
}

// notify delivers a progress event carrying a read-only snapshot of the
// run. Observer panics are recovered and logged so a host UI failure
// cannot abort refinement.
func (r *Runner) notify(run *domain.LoopRun, index int, phase ports.Phase, verdict *domain.Verdict) {
	if r.config.Observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("progress observer panicked",
				"phase", string(phase),
				"index", index,
				"panic", rec)
		}
	}()
	r.config.Observer.OnProgress(ports.ProgressEvent{
		Index:    index,
		Phase:    phase,
		Verdict:  verdict,
		Snapshot: run.Snapshot(),
	})
}

// emitIterationMetrics records per-iteration observability signals.
func (r *Runner) emitIterationMetrics(rec domain.IterationRecord) {
	if r.config.Metrics == nil {
		return
	}
	r.config.Metrics.RecordCounter("refine_iterations_total", 1,
		map[string]string{"verdict": rec.Verdict.String()})
	r.config.Metrics.RecordHistogram("refine_overall_score", rec.Metrics.OverallScore, nil)
}

// recordRunMetrics records run-level observability signals.
func (r *Runner) recordRunMetrics(status domain.TerminalStatus, start time.Time) {
	if r.config.Metrics == nil {
		return
	}
	r.config.Metrics.RecordCounter("refine_runs_total", 1,
		map[string]string{"status": status.String()})
	r.config.Metrics.RecordLatency("refine_run", time.Since(start), nil)
}

// count increments a counter when a metrics collector is configured.
func (r *Runner) count(metric string, labels map[string]string) {
	if r.config.Metrics == nil {
		return
	}
	r.config.Metrics.RecordCounter(metric, 1, labels)
}
