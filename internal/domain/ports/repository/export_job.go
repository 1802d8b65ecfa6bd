package repository

import (
	"context"
	"time"

	"scripture-export-service/internal/domain/model"
)

// ExportJobUpdate is a partial update; nil fields are left untouched.
// Progress writes are monotonic (the store never lowers a recorded value)
// and no field of a terminal row is ever overwritten.
type ExportJobUpdate struct {
	Status      *model.ExportJobStatus
	Progress    *int
	ProjectName *string
	Filename    *string
	FileData    []byte
	FileSize    *int
	Error       *string
	CompletedAt *time.Time
}

type ExportJobRepository interface {
	// CreateIfAbsent inserts a fresh pending row. A second call with the same
	// workflow id is a no-op, not an error.
	CreateIfAbsent(ctx context.Context, tx Tx, job *model.ExportJob) error
	Update(ctx context.Context, tx Tx, workflowID string, upd ExportJobUpdate) error
	Find(ctx context.Context, tx Tx, workflowID string) (*model.ExportJob, error)
	// FindStale returns non-terminal jobs whose last write is older than the
	// threshold, i.e. runs abandoned by a process crash.
	FindStale(ctx context.Context, tx Tx, olderThan time.Duration, limit int) ([]*model.ExportJob, error)
}
