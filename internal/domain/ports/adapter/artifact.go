package adapter

import (
	"context"
	"io"
)

// ExportStream is a live, possibly chunked byte stream for one compressed
// artifact. Cleanup releases the underlying resources and must be invoked
// exactly once whether the stream is drained or abandoned.
type ExportStream struct {
	Reader  io.Reader
	Cleanup func()
}

// ArtifactProducer builds the compressed artifact for an export target.
type ArtifactProducer interface {
	// OpenExportStream starts producing the artifact for the project unit,
	// restricted to bookIDs when non-nil. Returns domain.ErrNoContent when
	// nothing qualifies for export.
	OpenExportStream(ctx context.Context, projectUnitID int, bookIDs []int) (*ExportStream, error)
}
