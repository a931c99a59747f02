package cloudstore

import (
	"context"
	"io"

	"github.com/segstore/segstore/internal/cache"
)

// DefaultBlockSize is the granularity CachingStore fetches and caches at.
const DefaultBlockSize = 1 << 20 // 1 MiB

// CachingStore wraps a remote Store with a block-aligned byte-range cache,
// so repeated reads of the same region of a large remote segstore file
// don't re-fetch it from the network.
type CachingStore struct {
	backend   Store
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore wraps backend with c, caching in blockSize-aligned chunks.
// blockSize <= 0 uses DefaultBlockSize.
func NewCachingStore(backend Store, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{backend: backend, cache: c, blockSize: blockSize}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.backend.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{ctx: ctx, name: name, backend: b, cache: s.cache, blockSize: s.blockSize}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.backend.Create(ctx, name)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(k cache.CacheKey) bool { return k.Path == name })
	return s.backend.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.backend.List(ctx, prefix)
}

// cachingBlob serves ReadAt out of a block cache, falling back to the
// backend blob and populating the cache on miss. The ctx captured at Open
// time is used for the backend fetch since io.ReaderAt has no ctx
// parameter; a Reader that needs per-call cancellation should not share a
// cachingBlob across contexts that outlive Open.
type cachingBlob struct {
	ctx       context.Context
	name      string
	backend   Blob
	cache     cache.BlockCache
	blockSize int64
}

func (b *cachingBlob) Close() error { return b.backend.Close() }
func (b *cachingBlob) Size() int64  { return b.backend.Size() }

func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	total := int64(len(p))
	if total == 0 {
		return 0, nil
	}

	n := 0
	for int64(n) < total {
		cur := off + int64(n)
		blockStart := (cur / b.blockSize) * b.blockSize
		blockOff := cur - blockStart

		block, err := b.block(blockStart)
		if err != nil {
			return n, err
		}
		if blockOff >= int64(len(block)) {
			return n, ioEOF(n, total)
		}

		copied := copy(p[n:], block[blockOff:])
		n += copied
		if copied == 0 {
			return n, ioEOF(n, total)
		}
	}
	return n, nil
}

func ioEOF(n int, total int64) error {
	if int64(n) < total {
		return io.EOF
	}
	return nil
}

func (b *cachingBlob) block(start int64) ([]byte, error) {
	key := cache.CacheKey{Path: b.name, Offset: uint64(start)}
	if data, ok := b.cache.Get(b.ctx, key); ok {
		return data, nil
	}

	size := b.blockSize
	if remaining := b.backend.Size() - start; remaining < size {
		size = remaining
	}
	if size <= 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := b.backend.ReadAt(buf, start)
	if err != nil && n == 0 {
		return nil, err
	}
	buf = buf[:n]
	b.cache.Set(b.ctx, key, buf)
	return buf, nil
}
