package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/adapter"
	"scripture-export-service/internal/domain/ports/repository"
	"scripture-export-service/internal/infra/logging"
)

const (
	stepInitialize  = "initialize"
	stepGenerateZip = "generate_zip"
)

// Progress checkpoints are coarse and monotonic so a polling caller always
// sees forward-only progress, even across a crash and resume.
const (
	progressStarted   = 10
	progressNamed     = 20
	progressAssembled = 50
	progressEncoded   = 80
	progressDone      = 100
)

// GenerateResult is the recorded outcome of the generate step, replayed
// as-is when a completed workflow is re-invoked.
type GenerateResult struct {
	Filename string `json:"filename"`
	FileSize int    `json:"file_size"`
}

// ExportWorkflow drives one export run through its two durable steps:
// "initialize" inserts the pending job row, "generate_zip" produces and
// stores the artifact. Both are wrapped by the StepExecutor, so re-driving a
// workflow id after a crash resumes from the last completed step instead of
// duplicating side effects.
type ExportWorkflow struct {
	jobs     repository.ExportJobRepository
	projects repository.ProjectRepository
	producer adapter.ArtifactProducer
	steps    *StepExecutor
	log      *zerolog.Logger
}

func NewExportWorkflow(
	jobs repository.ExportJobRepository,
	projects repository.ProjectRepository,
	producer adapter.ArtifactProducer,
	steps *StepExecutor,
	logger *zerolog.Logger,
) *ExportWorkflow {
	l := logger.With().Str("component", "ExportWorkflow").Logger()
	return &ExportWorkflow{jobs: jobs, projects: projects, producer: producer, steps: steps, log: &l}
}

// Run executes the workflow for one submission. Any step error is written to
// the job row as terminal failure before being returned, so pollers never
// observe a silently abandoned processing row after a genuine failure.
func (w *ExportWorkflow) Run(ctx context.Context, workflowID string, projectUnitID int, bookIDs []int, requestedBy string) (*GenerateResult, error) {
	ctx = logging.WithWorkflowID(ctx, workflowID)
	ctx = logging.WithProjectUnitID(ctx, projectUnitID)
	defer logging.TraceDuration(logging.With(ctx, w.log), "ExportWorkflow.Run")()

	_, err := w.steps.Run(ctx, workflowID, stepInitialize, func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		job := &model.ExportJob{
			WorkflowID:    workflowID,
			ProjectUnitID: projectUnitID,
			BookIDs:       bookIDs,
			Status:        model.ExportJobStatusPending,
			RequestedBy:   requestedBy,
			CreatedAt:     time.Now(),
		}
		return nil, w.jobs.CreateIfAbsent(ctx, tx, job)
	})
	if err != nil {
		return nil, w.fail(workflowID, err)
	}

	raw, err := w.steps.Run(ctx, workflowID, stepGenerateZip, func(ctx context.Context, tx repository.Tx) ([]byte, error) {
		return w.generate(ctx, tx, workflowID, projectUnitID, bookIDs)
	})
	if err != nil {
		return nil, w.fail(workflowID, err)
	}

	var res GenerateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode generate result: %w", err)
	}
	return &res, nil
}

// generate runs the artifact step. Progress checkpoints are written with a
// nil tx so pollers see them immediately; the terminal completed write uses
// the step's tx and commits atomically with the ledger record.
func (w *ExportWorkflow) generate(ctx context.Context, tx repository.Tx, workflowID string, projectUnitID int, bookIDs []int) ([]byte, error) {
	if err := w.update(ctx, workflowID, repository.ExportJobUpdate{
		Status:   statusPtr(model.ExportJobStatusProcessing),
		Progress: intPtr(progressStarted),
	}); err != nil {
		return nil, err
	}

	name, err := w.projects.DisplayName(ctx, projectUnitID)
	if err != nil {
		return nil, fmt.Errorf("project unit %d: %w", projectUnitID, err)
	}
	if err := w.update(ctx, workflowID, repository.ExportJobUpdate{
		Progress:    intPtr(progressNamed),
		ProjectName: &name,
	}); err != nil {
		return nil, err
	}

	stream, err := w.producer.OpenExportStream(ctx, projectUnitID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("project unit %d: %w", projectUnitID, err)
	}
	data, err := assembleStream(ctx, stream.Reader, stream.Cleanup)
	if err != nil {
		return nil, fmt.Errorf("assemble artifact: %w", err)
	}
	if err := w.update(ctx, workflowID, repository.ExportJobUpdate{
		Progress: intPtr(progressAssembled),
	}); err != nil {
		return nil, err
	}

	filename := sanitizeFilename(name) + ".zip"
	result := GenerateResult{Filename: filename, FileSize: len(data)}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode generate result: %w", err)
	}
	if err := w.update(ctx, workflowID, repository.ExportJobUpdate{
		Progress: intPtr(progressEncoded),
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := w.jobs.Update(ctx, tx, workflowID, repository.ExportJobUpdate{
		Status:      statusPtr(model.ExportJobStatusCompleted),
		Progress:    intPtr(progressDone),
		Filename:    &result.Filename,
		FileData:    data,
		FileSize:    intPtr(result.FileSize),
		CompletedAt: &now,
	}); err != nil {
		return nil, fmt.Errorf("update job record: %w", err)
	}

	logging.With(ctx, w.log).Info().Str("filename", filename).Int("file_size", result.FileSize).Msg("export completed")
	return raw, nil
}

func (w *ExportWorkflow) update(ctx context.Context, workflowID string, upd repository.ExportJobUpdate) error {
	if err := w.jobs.Update(ctx, nil, workflowID, upd); err != nil {
		return fmt.Errorf("update job record: %w", err)
	}
	return nil
}

// fail writes the terminal failed state best-effort, then returns the cause
// unchanged. A background context is used so a cancelled run still gets its
// terminal write. Cancellation itself is not a failure: the row stays
// non-terminal so the reconciler resumes the run after shutdown.
func (w *ExportWorkflow) fail(workflowID string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		w.log.Warn().Str("workflow_id", workflowID).Msg("export interrupted, leaving run resumable")
		return cause
	}
	now := time.Now()
	msg := cause.Error()
	err := w.jobs.Update(context.Background(), nil, workflowID, repository.ExportJobUpdate{
		Status:      statusPtr(model.ExportJobStatusFailed),
		Error:       &msg,
		CompletedAt: &now,
	})
	if err != nil {
		w.log.Error().Err(err).Str("workflow_id", workflowID).Msg("could not record terminal failure")
	}
	w.log.Error().Err(cause).Str("workflow_id", workflowID).Msg("export failed")
	return cause
}

func statusPtr(s model.ExportJobStatus) *model.ExportJobStatus { return &s }
func intPtr(n int) *int                                        { return &n }
