package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/adapter"
	"scripture-export-service/internal/domain/ports/repository"
	"scripture-export-service/internal/infra/metrics"
)

// ExportUseCase is the caller-facing surface: submit an export and poll its
// job record by workflow id.
type ExportUseCase interface {
	Submit(ctx context.Context, projectUnitID int, bookIDs []int, requestedBy string) (workflowID string, err error)
	GetJob(ctx context.Context, workflowID string) (*model.ExportJob, error)
}

type exportUseCase struct {
	jobs  repository.ExportJobRepository
	queue adapter.SubmissionQueue
	log   *zerolog.Logger
}

func NewExportUseCase(jobs repository.ExportJobRepository, queue adapter.SubmissionQueue, logger *zerolog.Logger) ExportUseCase {
	l := logger.With().Str("component", "ExportUseCase").Logger()
	return &exportUseCase{jobs: jobs, queue: queue, log: &l}
}

func (uc *exportUseCase) Submit(ctx context.Context, projectUnitID int, bookIDs []int, requestedBy string) (string, error) {
	if projectUnitID <= 0 {
		return "", domain.ErrInvalidArgument
	}
	workflowID, deduped, err := uc.queue.Enqueue(ctx, adapter.Submission{
		ProjectUnitID: projectUnitID,
		BookIDs:       bookIDs,
		RequestedBy:   requestedBy,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue export: %w", err)
	}
	if deduped {
		metrics.IncSubmission("deduped")
		uc.log.Info().Str("workflow_id", workflowID).Int("project_unit_id", projectUnitID).Msg("submission deduplicated to in-flight workflow")
		return workflowID, nil
	}
	metrics.IncSubmission("enqueued")
	uc.log.Info().Str("workflow_id", workflowID).Int("project_unit_id", projectUnitID).Msg("export submitted")
	return workflowID, nil
}

func (uc *exportUseCase) GetJob(ctx context.Context, workflowID string) (*model.ExportJob, error) {
	if workflowID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.jobs.Find(ctx, nil, workflowID)
}
