package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/ports/adapter"
	"scripture-export-service/internal/infra/logging"
	"scripture-export-service/internal/infra/metrics"
	"scripture-export-service/internal/usecase"
)

// SubmissionSource is the queue side the dispatcher consumes.
type SubmissionSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*adapter.Submission, error)
	Acknowledge(ctx context.Context, sub *adapter.Submission) error
}

// WorkflowRunner drives one export run to a terminal state.
type WorkflowRunner interface {
	Run(ctx context.Context, workflowID string, projectUnitID int, bookIDs []int, requestedBy string) (*usecase.GenerateResult, error)
}

// Dispatcher pulls submissions off the durable queue and hands each run to
// the worker pool. Delivery is at-least-once; the step ledger inside the
// workflow makes redelivery harmless.
type Dispatcher struct {
	source      SubmissionSource
	runner      WorkflowRunner
	pollTimeout time.Duration
	log         *zerolog.Logger
}

func NewDispatcher(source SubmissionSource, runner WorkflowRunner, pollTimeout time.Duration, logger *zerolog.Logger) *Dispatcher {
	l := logger.With().Str("component", "Dispatcher").Logger()
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &Dispatcher{source: source, runner: runner, pollTimeout: pollTimeout, log: &l}
}

// Start runs the dispatch loop until the context is cancelled.
// This should be run in a goroutine.
func (d *Dispatcher) Start(ctx context.Context, pool *Pool) {
	d.log.Info().Msg("export dispatcher started")
	for {
		if ctx.Err() != nil {
			d.log.Info().Msg("export dispatcher stopping")
			return
		}
		sub, err := d.source.Dequeue(ctx, d.pollTimeout)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
				d.log.Error().Err(err).Msg("dequeue failed")
				time.Sleep(time.Second)
			}
			continue
		}
		d.submit(ctx, pool, sub)
	}
}

// submit hands the run to the pool, waiting out short saturation instead of
// dropping a submission that was already popped off the durable list.
func (d *Dispatcher) submit(ctx context.Context, pool *Pool, sub *adapter.Submission) {
	task := func(ctx context.Context) error {
		d.runOne(ctx, sub)
		return nil
	}
	for {
		if err := pool.Submit(task); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (d *Dispatcher) runOne(ctx context.Context, sub *adapter.Submission) {
	ctx = logging.WithWorkflowID(ctx, sub.WorkflowID)
	ctx = logging.WithProjectUnitID(ctx, sub.ProjectUnitID)
	log := logging.With(ctx, d.log)

	log.Info().Msg("processing export")
	start := time.Now()

	res, err := d.runner.Run(ctx, sub.WorkflowID, sub.ProjectUnitID, sub.BookIDs, sub.RequestedBy)
	elapsed := time.Since(start)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	metrics.IncExport(status)
	metrics.ObserveExportDuration(elapsed.Seconds())
	if res != nil {
		metrics.ObserveArtifactSize(res.FileSize)
	}

	// Release the dedup reservation with a background context so a cancelled
	// dispatcher still unblocks future submissions of the same identity.
	if ackErr := d.source.Acknowledge(context.Background(), sub); ackErr != nil {
		log.Error().Err(ackErr).Msg("could not release submission reservation")
	}

	log.Info().Str("status", status).Dur("duration", elapsed).Msg("export finished")
}
