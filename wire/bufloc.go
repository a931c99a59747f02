package wire

// BufLoc is a (offset, length) pair pointing at a byte range inside a file.
// Offsets are file-absolute everywhere except inside the IID block, where
// the LUT stores an offset relative to the start of that block (see
// the doc on [DecodeIIDRecord]).
type BufLoc struct {
	Offset uint32
	Length uint32
}

// BufLocSize is the encoded size of a BufLoc: two little-endian uint32 fields.
const BufLocSize = 8

// End returns Offset+Length as a uint64 to avoid overflow when validating
// against a file size.
func (b BufLoc) End() uint64 {
	return uint64(b.Offset) + uint64(b.Length)
}
