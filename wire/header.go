package wire

import "fmt"

// Version is the only file format version this package understands. A
// reader that finds a different value must fail with BadVersion.
const Version uint32 = 1

// HeaderSize is the fixed, on-disk size of a Header: 2 uint32 fields plus
// five BufLoc pairs (2·4 + 5·8 = 48 bytes). There is no magic number and no
// checksum in this version of the format.
const HeaderSize = 2*4 + 5*BufLocSize

// Header is the first block of a segstore file. Every BufLoc it carries is
// a file-absolute (offset, length), except that the IID block's own
// internal per-record offsets (not this BufLoc) are relative — see
// DecodeIIDRecord.
type Header struct {
	Version uint32
	// RFormat is an advisory, reserved resource-format discriminator.
	// 0 means "image segmentation"; readers must ignore-but-preserve any
	// other value rather than reject it.
	RFormat uint32
	LUT     BufLoc
	IIDs    BufLoc
	Meta    BufLoc
	Groups  BufLoc
	Segs    BufLoc
}

// EncodeHeader serializes h into exactly HeaderSize bytes.
func EncodeHeader(h Header) []byte {
	w := NewWriter()
	w.PutUint32(h.Version)
	w.PutUint32(h.RFormat)
	w.PutBufLoc(h.LUT)
	w.PutBufLoc(h.IIDs)
	w.PutBufLoc(h.Meta)
	w.PutBufLoc(h.Groups)
	w.PutBufLoc(h.Segs)
	return w.Bytes()
}

// DecodeHeader parses the fixed 48-byte header at the start of buf. It does
// not itself enforce version compatibility; callers check h.Version against
// Version and translate a mismatch into their own BadVersion error, since
// this package has no error taxonomy of its own beyond truncation.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortRead, HeaderSize, len(buf))
	}
	r := NewReader(buf[:HeaderSize])
	var h Header
	var err error
	if h.Version, err = r.Uint32(); err != nil {
		return Header{}, err
	}
	if h.RFormat, err = r.Uint32(); err != nil {
		return Header{}, err
	}
	if h.LUT, err = r.BufLoc(); err != nil {
		return Header{}, err
	}
	if h.IIDs, err = r.BufLoc(); err != nil {
		return Header{}, err
	}
	if h.Meta, err = r.BufLoc(); err != nil {
		return Header{}, err
	}
	if h.Groups, err = r.BufLoc(); err != nil {
		return Header{}, err
	}
	if h.Segs, err = r.BufLoc(); err != nil {
		return Header{}, err
	}
	return h, nil
}
