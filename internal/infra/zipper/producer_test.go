package zipper

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
)

type fakeVerses struct {
	books    []*model.Book
	byBook   map[int][]*model.VerseRow
	listErr  error
	verseErr error
}

func (f *fakeVerses) ListBooks(ctx context.Context, projectUnitID int, bookIDs []int) ([]*model.Book, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if bookIDs == nil {
		return f.books, nil
	}
	want := map[int]bool{}
	for _, id := range bookIDs {
		want[id] = true
	}
	var out []*model.Book
	for _, b := range f.books {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeVerses) VersesByBook(ctx context.Context, projectUnitID, bookID int) ([]*model.VerseRow, error) {
	if f.verseErr != nil {
		return nil, f.verseErr
	}
	return f.byBook[bookID], nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func gospelFixture() *fakeVerses {
	return &fakeVerses{
		books: []*model.Book{
			{ID: 40, Code: "MAT", Name: "Matthew"},
			{ID: 41, Code: "MRK", Name: "Mark"},
		},
		byBook: map[int][]*model.VerseRow{
			40: {
				{BookID: 40, Chapter: 1, Verse: 1, Text: "The book of the genealogy."},
				{BookID: 40, Chapter: 1, Verse: 2, Text: "Abraham was the father of Isaac."},
				{BookID: 40, Chapter: 2, Verse: 1, Text: "Now after Jesus was born."},
			},
			41: {
				{BookID: 41, Chapter: 1, Verse: 1, Text: "The beginning of the gospel."},
			},
		},
	}
}

func readStream(t *testing.T, p *Producer, bookIDs []int) []byte {
	t.Helper()
	stream, err := p.OpenExportStream(context.Background(), 6, bookIDs)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Cleanup()
	data, err := io.ReadAll(stream.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestOpenExportStreamProducesZip(t *testing.T) {
	p := NewProducer(gospelFixture(), NewUSFMConverter(), testLogger())
	data := readStream(t, p, nil)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(zr.File))
	}
	if zr.File[0].Name != "MAT.usfm" || zr.File[1].Name != "MRK.usfm" {
		t.Fatalf("entries = %q, %q", zr.File[0].Name, zr.File[1].Name)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	text, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	got := string(text)
	for _, want := range []string{"\\id MAT Matthew", "\\c 1", "\\c 2", "\\v 2 Abraham was the father of Isaac."} {
		if !strings.Contains(got, want) {
			t.Fatalf("MAT.usfm missing %q:\n%s", want, got)
		}
	}
}

func TestOpenExportStreamFiltersBooks(t *testing.T) {
	p := NewProducer(gospelFixture(), NewUSFMConverter(), testLogger())
	data := readStream(t, p, []int{41})

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "MRK.usfm" {
		t.Fatalf("entries = %v", zr.File)
	}
}

func TestOpenExportStreamNoContent(t *testing.T) {
	p := NewProducer(&fakeVerses{}, NewUSFMConverter(), testLogger())
	_, err := p.OpenExportStream(context.Background(), 6, nil)
	if !errors.Is(err, domain.ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestOpenExportStreamPropagatesVerseError(t *testing.T) {
	fx := gospelFixture()
	fx.verseErr = errors.New("connection lost")
	p := NewProducer(fx, NewUSFMConverter(), testLogger())

	stream, err := p.OpenExportStream(context.Background(), 6, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Cleanup()
	if _, err := io.ReadAll(stream.Reader); err == nil || !strings.Contains(err.Error(), "connection lost") {
		t.Fatalf("read err = %v, want verse load failure", err)
	}
}

func TestCleanupUnblocksWriter(t *testing.T) {
	p := NewProducer(gospelFixture(), NewUSFMConverter(), testLogger())
	stream, err := p.OpenExportStream(context.Background(), 6, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Abandon the stream without reading; the writer goroutine must not
	// block forever on the closed pipe.
	stream.Cleanup()
	if _, err := io.ReadAll(stream.Reader); err == nil {
		t.Fatal("read after cleanup should fail")
	}
}
