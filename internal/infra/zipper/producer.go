package zipper

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/adapter"
	"scripture-export-service/internal/domain/ports/repository"
)

var _ adapter.ArtifactProducer = (*Producer)(nil)

// Producer streams a zip archive with one converted text file per exportable
// book. The archive is produced through an io.Pipe so the consumer sees
// chunks as they are written; the writer goroutine propagates its first
// error through the pipe.
type Producer struct {
	verses repository.VerseRepository
	conv   adapter.Converter
	log    *zerolog.Logger
}

func NewProducer(verses repository.VerseRepository, conv adapter.Converter, logger *zerolog.Logger) *Producer {
	l := logger.With().Str("component", "ZipProducer").Logger()
	return &Producer{verses: verses, conv: conv, log: &l}
}

func (p *Producer) OpenExportStream(ctx context.Context, projectUnitID int, bookIDs []int) (*adapter.ExportStream, error) {
	books, err := p.verses.ListBooks(ctx, projectUnitID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil, domain.ErrNoContent
	}

	pr, pw := io.Pipe()
	go func() {
		zw := zip.NewWriter(pw)
		for _, book := range books {
			if err := p.writeBook(ctx, zw, projectUnitID, book); err != nil {
				_ = zw.Close()
				_ = pw.CloseWithError(err)
				return
			}
		}
		if err := zw.Close(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()

	return &adapter.ExportStream{
		Reader:  pr,
		Cleanup: func() { _ = pr.Close() },
	}, nil
}

func (p *Producer) writeBook(ctx context.Context, zw *zip.Writer, projectUnitID int, book *model.Book) error {
	verses, err := p.verses.VersesByBook(ctx, projectUnitID, book.ID)
	if err != nil {
		return fmt.Errorf("load verses for book %d: %w", book.ID, err)
	}
	text, err := p.conv.BookText(ctx, book, verses)
	if err != nil {
		return fmt.Errorf("convert book %d: %w", book.ID, err)
	}
	f, err := zw.Create(book.Code + ".usfm")
	if err != nil {
		return err
	}
	_, err = io.WriteString(f, text)
	return err
}
