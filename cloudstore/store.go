package cloudstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Store.Open when name does not exist.
var ErrNotFound = errors.New("cloudstore: not found")

// Blob is an open, readable object. ReadAt has no context parameter so a
// Blob satisfies io.ReaderAt directly, the same interface internal/mmap
// exposes for local files.
type Blob interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// WritableBlob is a blob being streamed to a Store. Sync is a no-op for
// backends (like S3) that only commit on Close; it is meaningful for
// backends that buffer to a local temp file first.
type WritableBlob interface {
	io.Writer
	io.Closer
	Sync() error
}

// Store resolves names to blobs. All operations take a context because,
// unlike a local filesystem call, they cross the network.
type Store interface {
	Open(ctx context.Context, name string) (Blob, error)
	Create(ctx context.Context, name string) (WritableBlob, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Get is a convenience that reads a whole blob into memory. It is meant for
// small objects (manifests, commit pointers), not segstore files themselves.
func Get(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Put is a convenience that writes an entire blob in one call.
func Put(ctx context.Context, s Store, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
