package cloudstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, Put(ctx, s, "a/b.bin", []byte("hello world")))

	got, err := Get(ctx, s, "a/b.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func TestMemoryStoreOpenMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Put(ctx, s, "x", []byte("1")))
	require.NoError(t, s.Delete(ctx, "x"))

	_, err := s.Open(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Put(ctx, s, "prefix/a", []byte("1")))
	require.NoError(t, Put(ctx, s, "prefix/b", []byte("2")))
	require.NoError(t, Put(ctx, s, "other/c", []byte("3")))

	names, err := s.List(ctx, "prefix/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"prefix/a", "prefix/b"}, names)
}

func TestMemoryBlobReadAtIsStdlibReaderAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Put(ctx, s, "f", []byte("0123456789")))

	blob, err := s.Open(ctx, "f")
	require.NoError(t, err)
	defer blob.Close()

	var _ io.ReaderAt = blob

	buf := make([]byte, 4)
	n, err := blob.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("3456"), buf)

	// Reading past the end returns io.EOF along with whatever bytes fit.
	tail := make([]byte, 4)
	n, err = blob.ReadAt(tail, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("89"), tail[:n])
}

func TestMemoryWritableBlobCommitsOnClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	w, err := s.Create(ctx, "g")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := Get(ctx, s, "g")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}
