package repository

import (
	"context"

	"scripture-export-service/internal/domain/model"
)

// VerseRepository reads the translated content backing an export.
type VerseRepository interface {
	// ListBooks returns the books of a project unit that have at least one
	// verse, restricted to bookIDs when non-empty, in canonical order.
	ListBooks(ctx context.Context, projectUnitID int, bookIDs []int) ([]*model.Book, error)
	// VersesByBook returns a book's verse rows ordered by chapter then verse.
	VersesByBook(ctx context.Context, projectUnitID, bookID int) ([]*model.VerseRow, error)
}
