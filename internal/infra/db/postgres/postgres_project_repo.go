package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/ports/repository"
)

var _ repository.ProjectRepository = (*projectRepo)(nil)

type projectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *projectRepo {
	return &projectRepo{pool: pool}
}

func (r *projectRepo) DisplayName(ctx context.Context, projectUnitID int) (string, error) {
	const q = `SELECT name FROM project_units WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, nil, q, projectUnitID)
	if err != nil {
		return "", err
	}
	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return name, nil
}
