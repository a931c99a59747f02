package cloudstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segstore/segstore/internal/cache"
)

// countingStore wraps a Store and counts how many times Open's returned
// Blob's ReadAt is invoked against the backend, so tests can assert the
// cache actually avoids refetching.
type countingStore struct {
	Store
	reads *int
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.Store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, reads: s.reads}, nil
}

type countingBlob struct {
	Blob
	reads *int
}

func (b *countingBlob) ReadAt(p []byte, off int64) (int, error) {
	*b.reads++
	return b.Blob.ReadAt(p, off)
}

func TestCachingStoreServesRepeatedReadsFromCache(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	require.NoError(t, Put(ctx, backend, "f", make([]byte, 100)))

	reads := 0
	counted := &countingStore{Store: backend, reads: &reads}

	c := cache.NewLRUBlockCache(1 << 20)
	cs := NewCachingStore(counted, c, 32)

	blob, err := cs.Open(ctx, "f")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 10)
	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	firstReads := reads

	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, firstReads, reads, "second read of the same block must not hit the backend again")
}

func TestCachingStoreReadSpanningMultipleBlocks(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, Put(ctx, backend, "f", data))

	c := cache.NewLRUBlockCache(1 << 20)
	cs := NewCachingStore(backend, c, 32) // block size smaller than the read

	blob, err := cs.Open(ctx, "f")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 50)
	n, err := blob.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, data[10:60], buf)
}

func TestCachingStoreDeleteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	require.NoError(t, Put(ctx, backend, "f", []byte("0123456789")))

	c := cache.NewLRUBlockCache(1 << 20)
	cs := NewCachingStore(backend, c, 32)

	blob, err := cs.Open(ctx, "f")
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	blob.Close()

	require.NoError(t, cs.Delete(ctx, "f"))

	_, cached := c.Get(ctx, cache.CacheKey{Path: "f", Offset: 0})
	assert.False(t, cached, "Delete must drop the blob's cached blocks")

	_, err = cs.Open(ctx, "f")
	assert.ErrorIs(t, err, ErrNotFound)
}
