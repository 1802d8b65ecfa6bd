package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/repository"
)

var _ repository.ExportJobRepository = (*exportJobRepo)(nil)

type exportJobRepo struct {
	pool *pgxpool.Pool
}

func NewExportJobRepo(pool *pgxpool.Pool) *exportJobRepo {
	return &exportJobRepo{pool: pool}
}

const exportJobColumns = `workflow_id, project_unit_id, book_ids, status, progress, project_name, filename, file_data, file_size, requested_by, error, created_at, updated_at, completed_at`

func (r *exportJobRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, job *model.ExportJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	bookIDs, err := encodeBookIDs(job.BookIDs)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO export_jobs (workflow_id, project_unit_id, book_ids, status, progress, requested_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (workflow_id) DO NOTHING;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.WorkflowID, job.ProjectUnitID, bookIDs, string(model.ExportJobStatusPending), 0, job.RequestedBy, job.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// Update applies a partial overwrite. The statement itself enforces the two
// record invariants: progress never decreases (GREATEST) and terminal rows
// are never touched (status guard in the WHERE clause).
func (r *exportJobRepo) Update(ctx context.Context, tx repository.Tx, workflowID string, upd repository.ExportJobUpdate) error {
	const q = `
UPDATE export_jobs SET
  status       = COALESCE($2, status),
  progress     = GREATEST(progress, COALESCE($3, progress)),
  project_name = COALESCE($4, project_name),
  filename     = COALESCE($5, filename),
  file_data    = COALESCE($6, file_data),
  file_size    = COALESCE($7, file_size),
  error        = COALESCE($8, error),
  completed_at = COALESCE($9, completed_at),
  updated_at   = NOW()
WHERE workflow_id = $1 AND status NOT IN ('completed', 'failed');`

	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		workflowID, status, upd.Progress, upd.ProjectName, upd.Filename, upd.FileData, upd.FileSize, upd.Error, upd.CompletedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *exportJobRepo) Find(ctx context.Context, tx repository.Tx, workflowID string) (*model.ExportJob, error) {
	q := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE workflow_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, workflowID)
	if err != nil {
		return nil, err
	}
	job, err := scanExportJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return job, nil
}

func (r *exportJobRepo) FindStale(ctx context.Context, tx repository.Tx, olderThan time.Duration, limit int) ([]*model.ExportJob, error) {
	const q = `
SELECT ` + exportJobColumns + `
FROM export_jobs
WHERE status IN ('pending', 'processing') AND updated_at < $1
ORDER BY updated_at
LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, tx, q, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanExportJob(row pgx.Row) (*model.ExportJob, error) {
	var (
		job     model.ExportJob
		status  string
		bookIDs []byte
	)
	err := row.Scan(
		&job.WorkflowID, &job.ProjectUnitID, &bookIDs, &status, &job.Progress,
		&job.ProjectName, &job.Filename, &job.FileData, &job.FileSize,
		&job.RequestedBy, &job.Error, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.ExportJobStatus(status)
	if len(bookIDs) > 0 {
		if err := json.Unmarshal(bookIDs, &job.BookIDs); err != nil {
			return nil, err
		}
	}
	return &job, nil
}

// encodeBookIDs serializes the optional book filter to jsonb; nil stays NULL
// so "all books" is distinguishable from an empty filter.
func encodeBookIDs(ids []int) ([]byte, error) {
	if ids == nil {
		return nil, nil
	}
	return json.Marshal(ids)
}
