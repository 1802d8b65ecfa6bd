package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode"
)

// assembleStream drains the producer's byte stream to completion,
// concatenating chunks in arrival order into one contiguous blob. cleanup is
// invoked exactly once on every exit path, including mid-stream errors and
// context cancellation. A stream that errors surfaces that error to the
// caller after cleanup has run.
func assembleStream(ctx context.Context, r io.Reader, cleanup func()) ([]byte, error) {
	if cleanup != nil {
		defer cleanup()
	}

	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// sanitizeFilename turns a project display name into a filesystem-safe base
// name: spaces become underscores, characters illegal in file paths are
// dropped.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			// dropped
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
