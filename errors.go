package segstore

import (
	"errors"
	"fmt"

	"github.com/segstore/segstore/wire"
)

var (
	// ErrBadVersion is returned when a file's header version is not
	// understood by this package.
	ErrBadVersion = errors.New("segstore: unsupported file version")
	// ErrTruncated is returned when a declared length or offset exceeds the
	// bounds of the mapped file.
	ErrTruncated = errors.New("segstore: declared length exceeds file bounds")
	// ErrCorrupt is returned for internal inconsistencies: a LUT size not
	// divisible by its record size, a region mask length that disagrees
	// with its bbox, a group header referencing an out-of-range offset, or
	// (in strict mode) an area that disagrees with the bit count.
	ErrCorrupt = errors.New("segstore: internal inconsistency")
	// ErrNotFound is returned when a queried key or address is not present.
	ErrNotFound = errors.New("segstore: not found")
	// ErrDuplicateIID is returned when adding an entry would violate the
	// global (domain, address) uniqueness invariant.
	ErrDuplicateIID = errors.New("segstore: duplicate iid")
	// ErrNotLoaded is returned when a query needs data the reader has not
	// yet materialized and the caller forbade on-demand I/O. It is
	// advisory, not fatal: the reader instance remains usable.
	ErrNotLoaded = errors.New("segstore: requested data not loaded")
	// ErrIO wraps an underlying file or mapping error.
	ErrIO = errors.New("segstore: io error")
)

// TruncatedError carries the field that failed to parse along with the
// wanted and available byte counts.
type TruncatedError struct {
	Field  string
	Wanted int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("segstore: truncated %s: need %d bytes, have %d", e.Field, e.Wanted, e.Have)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

// CorruptError carries a human-readable reason and, where available, the
// lower-level cause.
type CorruptError struct {
	Reason string
	cause  error
}

func (e *CorruptError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("segstore: corrupt: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("segstore: corrupt: %s", e.Reason)
}

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }
func (e *CorruptError) Unwrap() error        { return e.cause }

// translateError normalizes an error coming out of the wire package into
// ErrTruncated when it is a short read, leaving anything else untouched.
// Call sites that can name the field being parsed construct a *TruncatedError
// directly instead, for a more useful message.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, wire.ErrShortRead) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}

func corruptf(cause error, format string, args ...any) error {
	return &CorruptError{Reason: fmt.Sprintf(format, args...), cause: cause}
}
