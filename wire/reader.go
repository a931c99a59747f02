package wire

import (
	"encoding/binary"
	"fmt"
)

// ErrShortRead is wrapped by any Reader method that would read past the end
// of the underlying slice.
var ErrShortRead = fmt.Errorf("wire: short read")

// Reader is a bounds-checked cursor over a byte slice. It never allocates on
// the read path: Bytes, String and Slice return slices that alias the input, which
// is how a segstore.Reader stays zero-copy over its memory map.
type Reader struct {
	b   []byte
	off int
}

// NewReader wraps b for sequential, bounds-checked reads starting at offset 0.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Offset returns the current read cursor.
func (r *Reader) Offset() int { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.b) - r.off }

// Bytes returns the next n bytes without copying and advances the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, len %d", ErrShortRead, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// Uint32 reads a little-endian u32 and advances the cursor.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint16 reads a little-endian u16 and advances the cursor.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// BufLoc reads a (u32 offset, u32 length) pair.
func (r *Reader) BufLoc() (BufLoc, error) {
	off, err := r.Uint32()
	if err != nil {
		return BufLoc{}, err
	}
	length, err := r.Uint32()
	if err != nil {
		return BufLoc{}, err
	}
	return BufLoc{Offset: off, Length: length}, nil
}

// String reads a length-prefixed byte string (len ≡ u32, then that many bytes).
func (r *Reader) String() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// Slice returns the bytes of buf that at covers, without copying. It is a
// plain function, not a Reader method, and has no cursor. Used to resolve a
// BufLoc directly rather than by sequential scanning.
func Slice(buf []byte, at BufLoc) ([]byte, error) {
	end := at.End()
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: bufloc [%d,%d) exceeds buffer of length %d", ErrShortRead, at.Offset, end, len(buf))
	}
	return buf[at.Offset:end], nil
}
