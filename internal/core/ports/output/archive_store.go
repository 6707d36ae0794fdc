package ports

import (
	"context"
	"io"

	"vision-platform-client/internal/core/domain"
)

// ArchiveStore keeps exported project archives and deployment packages.
type ArchiveStore interface {
	// Put stores the content under name and returns a reference to it.
	Put(ctx context.Context, name string, r io.Reader, size int64) (*domain.ArchiveRef, error)

	// Open returns the stored content. Callers close the reader.
	Open(ctx context.Context, ref domain.ArchiveRef) (io.ReadCloser, error)

	// Delete removes a stored archive. Missing archives are not an error.
	Delete(ctx context.Context, ref domain.ArchiveRef) error
}
