package wire

// BBoxSize is the fixed on-disk size of a bounding box: four little-endian
// u16 coordinates.
const BBoxSize = 4 * 2

// BBox is a half-open bounding box in row/column space: rows in
// [MinR, MaxR), columns in [MinC, MaxC).
type BBox struct {
	MinR, MinC, MaxR, MaxC uint16
}

// Height returns MaxR-MinR, or 0 if the box is empty/inverted.
func (b BBox) Height() int {
	if b.MaxR <= b.MinR {
		return 0
	}
	return int(b.MaxR - b.MinR)
}

// Width returns MaxC-MinC, or 0 if the box is empty/inverted.
func (b BBox) Width() int {
	if b.MaxC <= b.MinC {
		return 0
	}
	return int(b.MaxC - b.MinC)
}

// Empty reports whether the box has no area.
func (b BBox) Empty() bool {
	return b.Height() == 0 || b.Width() == 0
}

// Contains reports whether pixel (r, c) falls inside the box.
func (b BBox) Contains(r, c int) bool {
	return r >= int(b.MinR) && r < int(b.MaxR) && c >= int(b.MinC) && c < int(b.MaxC)
}

// Intersects reports whether two boxes share any pixel.
func (b BBox) Intersects(o BBox) bool {
	return int(b.MinR) < int(o.MaxR) && int(o.MinR) < int(b.MaxR) &&
		int(b.MinC) < int(o.MaxC) && int(o.MinC) < int(b.MaxC)
}

// Union returns the element-wise min/max envelope of b and o. Union of an
// empty box with a non-empty one returns the non-empty one.
func (b BBox) Union(o BBox) BBox {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	out := b
	if o.MinR < out.MinR {
		out.MinR = o.MinR
	}
	if o.MinC < out.MinC {
		out.MinC = o.MinC
	}
	if o.MaxR > out.MaxR {
		out.MaxR = o.MaxR
	}
	if o.MaxC > out.MaxC {
		out.MaxC = o.MaxC
	}
	return out
}

// PutBBox appends a bounding box as four little-endian u16 fields.
func (w *Writer) PutBBox(b BBox) {
	w.PutUint16(b.MinR)
	w.PutUint16(b.MinC)
	w.PutUint16(b.MaxR)
	w.PutUint16(b.MaxC)
}

// BBox reads a bounding box and advances the cursor.
func (r *Reader) BBox() (BBox, error) {
	minr, err := r.Uint16()
	if err != nil {
		return BBox{}, err
	}
	minc, err := r.Uint16()
	if err != nil {
		return BBox{}, err
	}
	maxr, err := r.Uint16()
	if err != nil {
		return BBox{}, err
	}
	maxc, err := r.Uint16()
	if err != nil {
		return BBox{}, err
	}
	return BBox{MinR: minr, MinC: minc, MaxR: maxr, MaxC: maxc}, nil
}
