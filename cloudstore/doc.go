// Package cloudstore provides a small, ctx-based blob storage abstraction
// used to open segstore files that do not live on a local disk. A Store
// resolves a name to a Blob; a Blob supports io.ReaderAt-compatible range
// reads (no ctx parameter, matching stdlib and internal/mmap.Mapping) so the
// same reading code path serves local and remote files alike.
//
// mmap only works on a real local file descriptor, so a remote-backed Reader
// downloads a file once (optionally through a byte-range cache) and mmaps
// the local copy rather than mapping the object store directly.
package cloudstore
