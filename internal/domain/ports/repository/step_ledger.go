package repository

import (
	"context"

	"scripture-export-service/internal/domain/model"
)

// StepLedger is the durable record of completed workflow steps, keyed by
// (workflow_id, step_name). It is what makes re-driving a workflow after a
// crash safe: a recorded step is replayed from its stored result instead of
// re-running its side effects.
type StepLedger interface {
	// FindCompleted returns the recorded run, or domain.ErrNotFound if the
	// step has not completed for this workflow.
	FindCompleted(ctx context.Context, tx Tx, workflowID, stepName string) (*model.StepRun, error)
	// RecordCompleted durably marks the step done. Recording the same step
	// twice keeps the first result (atomic insert-if-absent).
	RecordCompleted(ctx context.Context, tx Tx, run *model.StepRun) error
}
