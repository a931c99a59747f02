package wire

import "fmt"

// RegionRecord is one on-disk region: a bounding box and its packed,
// row-major, MSB-first mask bytes. mask_len is the length of Mask alone, not
// of the whole record.
type RegionRecord struct {
	BBox BBox
	Mask []byte
}

// EncodeRegion serializes { u32 mask_len, bbox, bytes(mask_len) }.
func EncodeRegion(rec RegionRecord) []byte {
	w := NewWriter()
	w.PutUint32(uint32(len(rec.Mask)))
	w.PutBBox(rec.BBox)
	w.PutBytes(rec.Mask)
	return w.Bytes()
}

// DecodeRegion reads one region record starting at the reader's cursor and
// advances past it.
func DecodeRegion(r *Reader) (RegionRecord, error) {
	maskLen, err := r.Uint32()
	if err != nil {
		return RegionRecord{}, err
	}
	bbox, err := r.BBox()
	if err != nil {
		return RegionRecord{}, err
	}
	mask, err := r.Bytes(int(maskLen))
	if err != nil {
		return RegionRecord{}, err
	}
	return RegionRecord{BBox: bbox, Mask: mask}, nil
}

// SegmentRecord is one on-disk segment record:
// { u32 key, bbox, u32 area, u32 region_count, { region } }.
type SegmentRecord struct {
	Key     uint32
	BBox    BBox
	Area    uint32
	Regions []RegionRecord
}

// EncodeSegment serializes a full segment record.
func EncodeSegment(rec SegmentRecord) []byte {
	w := NewWriter()
	w.PutUint32(rec.Key)
	w.PutBBox(rec.BBox)
	w.PutUint32(rec.Area)
	w.PutUint32(uint32(len(rec.Regions)))
	for _, reg := range rec.Regions {
		w.PutBytes(EncodeRegion(reg))
	}
	return w.Bytes()
}

// DecodeSegment parses a segment record occupying exactly buf (the LUT's
// seg BufLoc gives the file-absolute offset and length of exactly this
// record, per §4.7).
func DecodeSegment(buf []byte) (SegmentRecord, error) {
	r := NewReader(buf)
	var rec SegmentRecord
	var err error
	if rec.Key, err = r.Uint32(); err != nil {
		return SegmentRecord{}, err
	}
	if rec.BBox, err = r.BBox(); err != nil {
		return SegmentRecord{}, err
	}
	if rec.Area, err = r.Uint32(); err != nil {
		return SegmentRecord{}, err
	}
	count, err := r.Uint32()
	if err != nil {
		return SegmentRecord{}, err
	}
	rec.Regions = make([]RegionRecord, count)
	for i := range rec.Regions {
		reg, err := DecodeRegion(r)
		if err != nil {
			return SegmentRecord{}, fmt.Errorf("wire: decode region %d/%d: %w", i, count, err)
		}
		rec.Regions[i] = reg
	}
	return rec, nil
}
