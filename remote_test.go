package segstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segstore/segstore/cloudstore"
	"github.com/segstore/segstore/wire"
)

func TestOpenRemoteDownloadsAndOpens(t *testing.T) {
	ctx := context.Background()
	store := cloudstore.NewMemoryStore()

	es := NewEntrySet()
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, []bool{true})
	_, err := es.Add(IID{Address: []byte("a")}, seg)
	require.NoError(t, err)
	require.NoError(t, SaveRemote(ctx, es, store, "dataset.segstore"))

	cacheDir := t.TempDir()
	r, err := OpenRemote(ctx, store, "dataset.segstore", cacheDir)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.Len())

	cached := filepath.Join(cacheDir, "dataset.segstore")
	_, statErr := os.Stat(cached)
	assert.NoError(t, statErr)
}

func TestOpenRemoteReusesCachedFileWhenSizeMatches(t *testing.T) {
	ctx := context.Background()
	store := cloudstore.NewMemoryStore()

	es := NewEntrySet()
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, []bool{true})
	_, err := es.Add(IID{Address: []byte("a")}, seg)
	require.NoError(t, err)
	require.NoError(t, SaveRemote(ctx, es, store, "dataset.segstore"))

	cacheDir := t.TempDir()
	r1, err := OpenRemote(ctx, store, "dataset.segstore", cacheDir)
	require.NoError(t, err)
	r1.Close()

	cached := filepath.Join(cacheDir, "dataset.segstore")
	fi1, err := os.Stat(cached)
	require.NoError(t, err)

	// Reopening must reuse the cached file (same mtime, same size) rather
	// than downloading again.
	r2, err := OpenRemote(ctx, store, "dataset.segstore", cacheDir)
	require.NoError(t, err)
	defer r2.Close()

	fi2, err := os.Stat(cached)
	require.NoError(t, err)
	assert.Equal(t, fi1.ModTime(), fi2.ModTime())
	assert.Equal(t, fi1.Size(), fi2.Size())
}

func TestOpenRemoteMissingObjectFails(t *testing.T) {
	ctx := context.Background()
	store := cloudstore.NewMemoryStore()

	_, err := OpenRemote(ctx, store, "nope.segstore", t.TempDir())
	assert.Error(t, err)
}
