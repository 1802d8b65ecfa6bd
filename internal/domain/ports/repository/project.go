package repository

import "context"

// ProjectRepository resolves metadata about the export target. Only the
// display name is needed by the export workflow.
type ProjectRepository interface {
	// DisplayName returns the project unit's human-readable name, or
	// domain.ErrNotFound for an unknown unit.
	DisplayName(ctx context.Context, projectUnitID int) (string, error)
}
