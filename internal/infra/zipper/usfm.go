package zipper

import (
	"context"
	"fmt"
	"strings"

	"scripture-export-service/internal/domain/model"
	"scripture-export-service/internal/domain/ports/adapter"
)

var _ adapter.Converter = (*USFMConverter)(nil)

// USFMConverter renders verse rows as minimal USFM: an \id line, a \c marker
// per chapter and a \v marker per verse.
type USFMConverter struct{}

func NewUSFMConverter() *USFMConverter { return &USFMConverter{} }

func (c *USFMConverter) BookText(ctx context.Context, book *model.Book, verses []*model.VerseRow) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "\\id %s %s\n", book.Code, book.Name)
	chapter := 0
	for _, v := range verses {
		if v.Chapter != chapter {
			chapter = v.Chapter
			fmt.Fprintf(&b, "\\c %d\n", chapter)
		}
		fmt.Fprintf(&b, "\\v %d %s\n", v.Verse, v.Text)
	}
	return b.String(), nil
}
