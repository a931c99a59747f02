package segstore

import (
	"fmt"
	"math/bits"

	"github.com/segstore/segstore/wire"
)

// Precision selects how conservative a rectangle intersection or region
// query is: PrecisionExact walks per-region masks bit by bit, PrecisionBBox
// trusts only the envelope bounding box (cheaper). Either way, only entries
// whose segment has been loaded take part in a Reader query.
type Precision int

const (
	PrecisionExact Precision = iota
	PrecisionBBox
)

// Region is a rectangular bounding box plus the packed, row-major,
// MSB-first bitmap covering it. Mask may alias a memory-mapped file; callers
// that need an owned copy should copy it explicitly.
type Region struct {
	BBox wire.BBox
	Mask []byte
}

// NewRegion packs a dense boolean grid (H rows of W columns, row-major) into
// a Region covering bbox. len(bits) must equal H*W.
func NewRegion(bbox wire.BBox, bitsIn []bool) (Region, error) {
	h, w := bbox.Height(), bbox.Width()
	if len(bitsIn) != h*w {
		return Region{}, fmt.Errorf("segstore: region bbox is %dx%d but got %d mask bits", h, w, len(bitsIn))
	}
	mask := make([]byte, (h*w+7)/8)
	for i, set := range bitsIn {
		if set {
			mask[i>>3] |= 1 << (7 - uint(i&7))
		}
	}
	return Region{BBox: bbox, Mask: mask}, nil
}

// bitAt reports the mask bit for local offset i (row*W+col) within the
// region's own bounding box.
func (r Region) bitAt(i int) bool {
	byteIdx := i >> 3
	if byteIdx < 0 || byteIdx >= len(r.Mask) {
		return false
	}
	return r.Mask[byteIdx]&(1<<(7-uint(i&7))) != 0
}

// At reports whether absolute pixel (row, col) is set in this region.
func (r Region) At(row, col int) bool {
	if !r.BBox.Contains(row, col) {
		return false
	}
	w := r.BBox.Width()
	localRow := row - int(r.BBox.MinR)
	localCol := col - int(r.BBox.MinC)
	return r.bitAt(localRow*w + localCol)
}

// PopCount returns the number of set bits, ignoring the zero-padded tail of
// the final byte.
func (r Region) PopCount() int {
	h, w := r.BBox.Height(), r.BBox.Width()
	total := h * w
	fullBytes := total / 8
	n := 0
	for _, b := range r.Mask[:fullBytes] {
		n += bits.OnesCount8(b)
	}
	if rem := total % 8; rem > 0 && fullBytes < len(r.Mask) {
		last := r.Mask[fullBytes]
		last >>= uint(8 - rem)
		n += bits.OnesCount8(last)
	}
	return n
}

// popCountChecked is PopCount, but rejects a mask that is too short for its
// bbox instead of panicking on a truncated slice.
func (r Region) popCountChecked() (int, error) {
	h, w := r.BBox.Height(), r.BBox.Width()
	need := (h*w + 7) / 8
	if len(r.Mask) < need {
		return 0, fmt.Errorf("mask is %d bytes, need %d for a %dx%d region", len(r.Mask), need, h, w)
	}
	return r.PopCount(), nil
}

// intersectsMask reports whether r has any set bit inside q, walking only
// the overlap of the two boxes.
func (r Region) intersectsMask(q wire.BBox) bool {
	if !r.BBox.Intersects(q) {
		return false
	}
	minR := maxInt(int(r.BBox.MinR), int(q.MinR))
	maxR := minInt(int(r.BBox.MaxR), int(q.MaxR))
	minC := maxInt(int(r.BBox.MinC), int(q.MinC))
	maxC := minInt(int(r.BBox.MaxC), int(q.MaxC))
	for row := minR; row < maxR; row++ {
		for col := minC; col < maxC; col++ {
			if r.At(row, col) {
				return true
			}
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Segment is a binary mask over an image, decomposed into one or more
// regions so that empty space need not be serialized.
type Segment struct {
	BBox    wire.BBox
	Area    uint32
	Regions []Region
}

// NewSegment builds a Segment from already-decomposed regions, computing the
// envelope bbox and total set-bit area. It does not attempt to validate that
// the regions' union is a faithful cover of any particular source mask —
// that invariant is the caller's responsibility, per the format's decomposed
// design (any valid cover is acceptable).
func NewSegment(regions []Region) (*Segment, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("segstore: segment must have at least one region")
	}
	var envelope wire.BBox
	var area uint32
	for _, reg := range regions {
		envelope = envelope.Union(reg.BBox)
		area += uint32(reg.PopCount())
	}
	return &Segment{BBox: envelope, Area: area, Regions: regions}, nil
}

// At reports whether the segment covers pixel (row, col): some region's
// bbox must contain it and that region's corresponding bit must be set.
func (s *Segment) At(row, col int) bool {
	if !s.BBox.Contains(row, col) {
		return false
	}
	for _, r := range s.Regions {
		if r.At(row, col) {
			return true
		}
	}
	return false
}

// Intersects reports whether the segment intersects q. With PrecisionBBox
// only the envelope bbox is tested (conservative, no mask walk). With
// PrecisionExact, a region's bbox must overlap q and share at least one set
// bit with it.
func (s *Segment) Intersects(q wire.BBox, precision Precision) bool {
	if !s.BBox.Intersects(q) {
		return false
	}
	if precision == PrecisionBBox {
		return true
	}
	for _, r := range s.Regions {
		if r.intersectsMask(q) {
			return true
		}
	}
	return false
}

// Mask reconstructs a dense boolean grid for the portion of the segment
// inside query, row-major. If query is the zero value, the segment's own
// bbox is used.
func (s *Segment) Mask(query wire.BBox) [][]bool {
	q := query
	if q.Empty() {
		q = s.BBox
	}
	h, w := q.Height(), q.Width()
	out := make([][]bool, h)
	for i := range out {
		out[i] = make([]bool, w)
	}
	for _, r := range s.Regions {
		if !r.BBox.Intersects(q) {
			continue
		}
		minR := maxInt(int(r.BBox.MinR), int(q.MinR))
		maxR := minInt(int(r.BBox.MaxR), int(q.MaxR))
		minC := maxInt(int(r.BBox.MinC), int(q.MinC))
		maxC := minInt(int(r.BBox.MaxC), int(q.MaxC))
		for row := minR; row < maxR; row++ {
			for col := minC; col < maxC; col++ {
				if r.At(row, col) {
					out[row-int(q.MinR)][col-int(q.MinC)] = true
				}
			}
		}
	}
	return out
}

func toWireRegions(regions []Region) []wire.RegionRecord {
	out := make([]wire.RegionRecord, len(regions))
	for i, r := range regions {
		out[i] = wire.RegionRecord{BBox: r.BBox, Mask: r.Mask}
	}
	return out
}

func fromWireSegment(rec wire.SegmentRecord) *Segment {
	regions := make([]Region, len(rec.Regions))
	for i, r := range rec.Regions {
		regions[i] = Region{BBox: r.BBox, Mask: r.Mask}
	}
	return &Segment{BBox: rec.BBox, Area: rec.Area, Regions: regions}
}
