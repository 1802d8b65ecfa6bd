package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain/ports/repository"
	"scripture-export-service/internal/infra/metrics"
)

// Reconciler periodically re-drives runs that a crashed process left
// non-terminal. Re-running a workflow id is safe: completed steps replay
// from the ledger and only the unfinished step executes again.
type Reconciler struct {
	interval   time.Duration
	staleAfter time.Duration
	jobs       repository.ExportJobRepository
	runner     WorkflowRunner
	log        *zerolog.Logger
}

func NewReconciler(interval, staleAfter time.Duration, jobs repository.ExportJobRepository, runner WorkflowRunner, logger *zerolog.Logger) *Reconciler {
	l := logger.With().Str("component", "Reconciler").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &Reconciler{interval: interval, staleAfter: staleAfter, jobs: jobs, runner: runner, log: &l}
}

func (r *Reconciler) Run(ctx context.Context, pool *Pool) error {
	r.log.Info().Dur("interval", r.interval).Msg("starting reconciler")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("stopping reconciler")
			return ctx.Err()
		case <-ticker.C:
			n := r.sweep(ctx, pool)
			if n > 0 {
				metrics.IncStaleResumed(n)
				r.log.Info().Int("count", n).Msg("stale runs re-enqueued")
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context, pool *Pool) int {
	jobs, err := r.jobs.FindStale(ctx, nil, r.staleAfter, 50)
	if err != nil {
		r.log.Error().Err(err).Msg("stale job scan failed")
		return 0
	}
	resumed := 0
	for _, job := range jobs {
		job := job
		err := pool.Submit(func(ctx context.Context) error {
			_, runErr := r.runner.Run(ctx, job.WorkflowID, job.ProjectUnitID, job.BookIDs, job.RequestedBy)
			return runErr
		})
		if err != nil {
			// pool saturated; the next sweep picks the job up again
			break
		}
		resumed++
	}
	return resumed
}
