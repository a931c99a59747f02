package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates bytes for one block of a segstore file. It never emits
// partial multi-byte fields: every Put* call writes atomically or not at all.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the accumulated buffer. The returned slice is only valid
// until the next Put call.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// PutUint32 appends a little-endian u32.
func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// PutUint16 appends a little-endian u16.
func (w *Writer) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// PutBufLoc appends a (u32 offset, u32 length) pair.
func (w *Writer) PutBufLoc(b BufLoc) {
	w.PutUint32(b.Offset)
	w.PutUint32(b.Length)
}

// PutString appends a length-prefixed byte string. It is a fatal encoding
// error, per §4.1, for the payload to exceed 2^32-1 bytes.
func (w *Writer) PutString(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return fmt.Errorf("wire: string of %d bytes exceeds u32 length field", len(b))
	}
	w.PutUint32(uint32(len(b)))
	w.buf.Write(b)
	return nil
}

// PutBytes appends raw bytes with no length prefix.
func (w *Writer) PutBytes(b []byte) {
	w.buf.Write(b)
}
