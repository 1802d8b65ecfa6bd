package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/repository"
)

var _ repository.VerseRepository = (*verseRepo)(nil)

type verseRepo struct {
	pool *pgxpool.Pool
}

func NewVerseRepo(pool *pgxpool.Pool) *verseRepo {
	return &verseRepo{pool: pool}
}

func (r *verseRepo) ListBooks(ctx context.Context, projectUnitID int, bookIDs []int) ([]*model.Book, error) {
	q := `
SELECT b.id, b.code, b.name
FROM books b
WHERE b.project_unit_id = $1
  AND EXISTS (SELECT 1 FROM verses v WHERE v.book_id = b.id)`
	args := []interface{}{projectUnitID}
	// len guard: an empty filter means every book, and an empty IN () list
	// would not even parse.
	if len(bookIDs) > 0 {
		placeholders := make([]string, 0, len(bookIDs))
		for _, id := range bookIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		q += fmt.Sprintf("\n  AND b.id IN (%s)", strings.Join(placeholders, ", "))
	}
	q += "\nORDER BY b.id;"

	rows, err := pickRows(ctx, r.pool, nil, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		books = append(books, &b)
	}
	return books, rows.Err()
}

func (r *verseRepo) VersesByBook(ctx context.Context, projectUnitID, bookID int) ([]*model.VerseRow, error) {
	const q = `
SELECT v.book_id, v.chapter, v.verse, v.text
FROM verses v
JOIN books b ON b.id = v.book_id
WHERE b.project_unit_id = $1 AND v.book_id = $2
ORDER BY v.chapter, v.verse;`

	rows, err := pickRows(ctx, r.pool, nil, q, projectUnitID, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verses []*model.VerseRow
	for rows.Next() {
		var v model.VerseRow
		if err := rows.Scan(&v.BookID, &v.Chapter, &v.Verse, &v.Text); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		verses = append(verses, &v)
	}
	return verses, rows.Err()
}
