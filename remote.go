package segstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/segstore/segstore/cloudstore"
	"github.com/segstore/segstore/internal/fs"
)

// remoteFetchConcurrency bounds how many concurrent range requests OpenRemote
// issues against the backing store while downloading a file into the local
// cache directory.
const remoteFetchConcurrency = 8

// remoteChunkSize is the size of each ranged read issued while downloading a
// remote blob into the local cache.
const remoteChunkSize = 4 << 20 // 4 MiB

// OpenRemote makes a local, mmappable copy of the object named name in store
// under cacheDir, then opens it exactly as Open would. mmap requires a real
// local file descriptor, so a remote-backed Reader downloads the whole
// object once up front rather than range-reading on every Fetch.
//
// If a file already exists at the expected cache path with the same size as
// the remote object, it is reused without re-downloading. Callers that need
// to force a refresh should remove the cached file first.
func OpenRemote(ctx context.Context, store cloudstore.Store, name, cacheDir string, opts ...Option) (*Reader, error) {
	o := applyOptions(opts)

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("segstore: open remote %q: %w", name, err)
	}
	defer blob.Close()

	if err := o.fsys.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("segstore: create cache dir: %w", err)
	}
	localPath := filepath.Join(cacheDir, cacheFileName(name))

	if fi, statErr := o.fsys.Stat(localPath); statErr == nil && fi.Size() == blob.Size() {
		return Open(localPath, opts...)
	}

	if err := downloadToFile(ctx, o.fsys, blob, localPath); err != nil {
		return nil, err
	}
	return Open(localPath, opts...)
}

func cacheFileName(name string) string {
	safe := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == '\\' {
			c = '_'
		}
		safe = append(safe, c)
	}
	return string(safe)
}

// downloadToFile fetches blob in remoteChunkSize ranges, up to
// remoteFetchConcurrency at a time, and writes them into a temp file that is
// atomically renamed into place once complete.
func downloadToFile(ctx context.Context, fsys fs.FileSystem, blob cloudstore.Blob, dest string) (err error) {
	size := blob.Size()
	dir := filepath.Dir(dest)

	tmpPath := filepath.Join(dir, fs.TempName(".segstore-dl-", ".tmp"))
	f, err := fsys.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("segstore: create download temp file: %w", err)
	}
	defer func() {
		if tmpPath != "" {
			_ = f.Close()
			_ = fsys.Remove(tmpPath)
		}
	}()

	if err := fsys.Truncate(tmpPath, size); err != nil {
		return fmt.Errorf("segstore: allocate download temp file: %w", err)
	}

	sem := semaphore.NewWeighted(remoteFetchConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for off := int64(0); off < size; off += remoteChunkSize {
		off := off
		n := remoteChunkSize
		if remaining := size - off; remaining < int64(n) {
			n = int(remaining)
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			buf := make([]byte, n)
			if _, rerr := readFullAt(blob, buf, off); rerr != nil {
				return fmt.Errorf("segstore: download range at %d: %w", off, rerr)
			}
			if _, werr := f.WriteAt(buf, off); werr != nil {
				return fmt.Errorf("segstore: write download range at %d: %w", off, werr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("segstore: sync download temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("segstore: close download temp file: %w", err)
	}
	if err := fsys.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("segstore: rename download temp file: %w", err)
	}
	tmpPath = ""
	return nil
}

// readFullAt reads len(p) bytes from r at off, treating a short final read
// that reaches EOF exactly at len(p) as success.
func readFullAt(r interface{ ReadAt([]byte, int64) (int, error) }, p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		n, err := r.ReadAt(p[total:], off+int64(total))
		total += n
		if err != nil {
			if total == len(p) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read at %d: got %d of %d bytes", off, total, len(p))
		}
	}
	return total, nil
}
