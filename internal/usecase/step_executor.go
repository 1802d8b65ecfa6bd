package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/repository"
)

// StepFunc is one unit of work inside a workflow run. Database writes made
// through tx commit together with the step's ledger record; writes made with
// a nil tx commit immediately and stay visible while the step runs.
type StepFunc func(ctx context.Context, tx repository.Tx) ([]byte, error)

// StepExecutor wraps a StepFunc with the durable idempotency ledger so that a
// step's side effects happen exactly once per (workflowID, stepName), no
// matter how many times the workflow is re-driven.
type StepExecutor struct {
	ledger repository.StepLedger
	txm    repository.TransactionManager
	log    *zerolog.Logger
}

func NewStepExecutor(ledger repository.StepLedger, txm repository.TransactionManager, logger *zerolog.Logger) *StepExecutor {
	l := logger.With().Str("component", "StepExecutor").Logger()
	return &StepExecutor{ledger: ledger, txm: txm, log: &l}
}

// Run executes work unless the ledger already holds a completed run for this
// step, in which case the recorded result is returned without re-executing.
// The work and its ledger record run inside one transaction, so there is no
// window where the step's transactional writes exist without the record.
// Errors raised by work roll the transaction back and propagate unchanged,
// leaving no ledger row, so a later invocation retries the step.
func (e *StepExecutor) Run(ctx context.Context, workflowID, stepName string, work StepFunc) ([]byte, error) {
	prev, err := e.ledger.FindCompleted(ctx, nil, workflowID, stepName)
	if err == nil {
		e.log.Debug().Str("workflow_id", workflowID).Str("step", stepName).Msg("step already completed, replaying recorded result")
		return prev.Result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("step ledger lookup for %q: %w", stepName, err)
	}

	var result []byte
	err = e.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var workErr error
		result, workErr = work(ctx, tx)
		if workErr != nil {
			return workErr
		}
		run := &model.StepRun{
			WorkflowID:  workflowID,
			StepName:    stepName,
			Result:      result,
			CompletedAt: time.Now(),
		}
		if err := e.ledger.RecordCompleted(ctx, tx, run); err != nil {
			return fmt.Errorf("record completion of step %q: %w", stepName, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
