package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-refine/internal/domain"
	"github.com/ahrav/go-refine/internal/ports"
)

// Job bundles the collaborators for one independent refinement session,
// for example one pipeline step or one document.
type Job struct {
	// ID identifies the job in results and error messages.
	ID string

	Generate ports.Generator
	Validate ports.Validator
	Correct  ports.Corrector
}

// JobResult pairs a job's ID with its completed run.
type JobResult struct {
	ID  string
	Run *domain.LoopRun
}

// RunBatch executes independent refinement sessions concurrently, one
// LoopRun per job. Iterations within each run remain strictly
// sequential; only whole runs are parallelized, which is safe because
// the engine shares no mutable state across runs. Collaborators must be
// independently safe for concurrent invocation.
//
// The first fatal run error cancels the remaining jobs and is returned.
// Results preserve job order.
func (r *Runner) RunBatch(ctx context.Context, jobs []Job, concurrency int) ([]JobResult, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			run, err := r.Run(gctx, job.Generate, job.Validate, job.Correct)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			results[i] = JobResult{ID: job.ID, Run: run}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
