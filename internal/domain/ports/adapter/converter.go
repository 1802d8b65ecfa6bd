package adapter

import (
	"context"

	"scripture-export-service/internal/domain/model"
)

// Converter renders a book's verse rows into its text representation
// (e.g. USFM). The format is opaque to the export core.
type Converter interface {
	BookText(ctx context.Context, book *model.Book, verses []*model.VerseRow) (string, error)
}
