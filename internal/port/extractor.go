package port

import (
	"context"

	"docport/internal/domain"
)

// Extractor turns a stored file into a Document with extracted text,
// page markers and a content checksum.
type Extractor interface {
	Extract(ctx context.Context, path string) (domain.Document, error)
}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
