package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/repository"
)

var _ repository.StepLedger = (*stepLedgerRepo)(nil)

// stepLedgerRepo persists step completions in the workflow_steps table. The
// (workflow_id, step_name) primary key plus DO NOTHING on conflict gives the
// atomic insert-if-absent the idempotency contract needs.
type stepLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewStepLedgerRepo(pool *pgxpool.Pool) *stepLedgerRepo {
	return &stepLedgerRepo{pool: pool}
}

func (r *stepLedgerRepo) FindCompleted(ctx context.Context, tx repository.Tx, workflowID, stepName string) (*model.StepRun, error) {
	const q = `SELECT workflow_id, step_name, result, completed_at FROM workflow_steps WHERE workflow_id = $1 AND step_name = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, workflowID, stepName)
	if err != nil {
		return nil, err
	}
	var run model.StepRun
	if err := row.Scan(&run.WorkflowID, &run.StepName, &run.Result, &run.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &run, nil
}

func (r *stepLedgerRepo) RecordCompleted(ctx context.Context, tx repository.Tx, run *model.StepRun) error {
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now()
	}
	const q = `
INSERT INTO workflow_steps (workflow_id, step_name, result, completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (workflow_id, step_name) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, run.WorkflowID, run.StepName, run.Result, run.CompletedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
