package driven

import (
	"context"
	"io"
)

// ArtifactFetcher downloads model artifacts from a model repository.
type ArtifactFetcher interface {
	// Fetch opens remotePath inside repo, starting at offset bytes.
	// Servers that ignore the range restart from zero, reported in
	// ArtifactStream.Offset.
	Fetch(ctx context.Context, repo, remotePath string, offset int64) (*ArtifactStream, error)
}

// ArtifactStream is an open artifact transfer.
type ArtifactStream struct {
	// Body is the response body. The caller closes it.
	Body io.ReadCloser

	// Offset is the byte offset Body starts at.
	Offset int64

	// Total is the full artifact size, -1 if unknown.
	Total int64
}
