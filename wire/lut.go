package wire

import "fmt"

// LUTRecordSize is the fixed on-disk size of one lookup table record:
// a u32 key plus two BufLoc pairs (4 + 8 + 8 = 20 bytes).
const LUTRecordSize = 4 + 2*BufLocSize

// LUTRecord is one entry of the lookup table: a dense key and the buffer
// locations of that key's IID and segment records.
type LUTRecord struct {
	Key uint32
	IID BufLoc // relative to the start of the IID block
	Seg BufLoc // file-absolute
}

// EncodeLUTRecord serializes rec into exactly LUTRecordSize bytes.
func EncodeLUTRecord(rec LUTRecord) []byte {
	w := NewWriter()
	w.PutUint32(rec.Key)
	w.PutBufLoc(rec.IID)
	w.PutBufLoc(rec.Seg)
	return w.Bytes()
}

// DecodeLUTRecord parses a fixed-size record at the start of buf.
func DecodeLUTRecord(buf []byte) (LUTRecord, error) {
	if len(buf) < LUTRecordSize {
		return LUTRecord{}, fmt.Errorf("%w: lut record needs %d bytes, have %d", ErrShortRead, LUTRecordSize, len(buf))
	}
	r := NewReader(buf[:LUTRecordSize])
	var rec LUTRecord
	var err error
	if rec.Key, err = r.Uint32(); err != nil {
		return LUTRecord{}, err
	}
	if rec.IID, err = r.BufLoc(); err != nil {
		return LUTRecord{}, err
	}
	if rec.Seg, err = r.BufLoc(); err != nil {
		return LUTRecord{}, err
	}
	return rec, nil
}

// DecodeLUT parses the whole LUT block into records. The block length must
// be a multiple of LUTRecordSize; callers surface a violation as Corrupt.
func DecodeLUT(buf []byte) ([]LUTRecord, error) {
	if len(buf)%LUTRecordSize != 0 {
		return nil, fmt.Errorf("wire: lut block length %d is not a multiple of %d", len(buf), LUTRecordSize)
	}
	n := len(buf) / LUTRecordSize
	out := make([]LUTRecord, n)
	for i := 0; i < n; i++ {
		rec, err := DecodeLUTRecord(buf[i*LUTRecordSize : (i+1)*LUTRecordSize])
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}
