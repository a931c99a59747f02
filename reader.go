package segstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/segstore/segstore/internal/mmap"
	"github.com/segstore/segstore/wire"
)

// Reader gives read access to a segstore file. It memory-maps the file and
// resolves blocks lazily: Open only parses the header, the lookup table, and
// the groups header. IID and segment records are materialized on demand by
// Fetch, and are cached in the Reader for the lifetime of the instance.
//
// A Reader is safe for concurrent use.
type Reader struct {
	opts *options
	path string

	mapping *mmap.Mapping
	data    []byte

	header wire.Header
	lut    []wire.LUTRecord
	byKey  map[uint32]int // LUT key -> index into lut/entries

	groupSpans   map[string]wire.GroupSpan
	groupsPayOff int

	mu          sync.RWMutex
	entries     []*Entry
	iidLoaded   *roaring.Bitmap
	segLoaded   *roaring.Bitmap
	groupCache  map[string][]uint32
	metadata    any
	metadataSet bool
}

// Open memory-maps path and parses its header, lookup table and groups
// header. IID and segment bytes are not touched until Fetch, LookFor, At
// (with WithAutoFill) or Region (with onlyLoaded false) load them.
func Open(path string, opts ...Option) (r *Reader, err error) {
	o := applyOptions(opts)

	m, mErr := mmap.Open(path)
	if mErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, mErr)
	}
	defer func() {
		if err != nil {
			_ = m.Close()
		}
	}()

	data := m.Bytes()

	hdr, hErr := wire.DecodeHeader(data)
	if hErr != nil {
		err = translateError(hErr)
		o.logger.LogOpen(context.Background(), path, 0, err)
		return nil, err
	}
	if hdr.Version != wire.Version {
		v := hdr.Version
		if v>>24|(v>>8)&0xff00|(v<<8)&0xff0000|v<<24 == wire.Version {
			// The version only matches when read big-endian: a legacy file.
			err = corruptf(nil, "version field %#x is byte-swapped; big-endian files are not supported", v)
		} else {
			err = fmt.Errorf("%w: got %d, want %d", ErrBadVersion, hdr.Version, wire.Version)
		}
		o.logger.LogOpen(context.Background(), path, 0, err)
		return nil, err
	}

	size := uint64(len(data))
	for name, loc := range map[string]wire.BufLoc{
		"lut": hdr.LUT, "iids": hdr.IIDs, "meta": hdr.Meta,
		"groups": hdr.Groups, "segs": hdr.Segs,
	} {
		if loc.End() > size {
			err = &TruncatedError{Field: name, Wanted: int(loc.End()), Have: int(size)}
			o.logger.LogOpen(context.Background(), path, 0, err)
			return nil, err
		}
	}

	lutBuf, _ := wire.Slice(data, hdr.LUT)
	lut, lErr := wire.DecodeLUT(lutBuf)
	if lErr != nil {
		err = corruptf(lErr, "lookup table")
		o.logger.LogOpen(context.Background(), path, 0, err)
		return nil, err
	}

	byKey := make(map[uint32]int, len(lut))
	entries := make([]*Entry, len(lut))
	for i, rec := range lut {
		byKey[rec.Key] = i
		entries[i] = &Entry{Key: rec.Key}
	}

	groupsBuf, _ := wire.Slice(data, hdr.Groups)
	spans, payOff, gErr := wire.DecodeGroupsHeader(groupsBuf)
	if gErr != nil {
		err = corruptf(gErr, "groups header")
		o.logger.LogOpen(context.Background(), path, 0, err)
		return nil, err
	}

	r = &Reader{
		opts:         o,
		path:         path,
		mapping:      m,
		data:         data,
		header:       hdr,
		lut:          lut,
		byKey:        byKey,
		groupSpans:   spans,
		groupsPayOff: payOff,
		entries:      entries,
		iidLoaded:    roaring.New(),
		segLoaded:    roaring.New(),
		groupCache:   make(map[string][]uint32),
	}
	o.logger.LogOpen(context.Background(), path, len(entries), nil)
	return r, nil
}

// ResourceFormat returns the header's advisory rformat discriminator.
func (r *Reader) ResourceFormat() uint32 { return r.header.RFormat }

// Len returns the number of entries in the lookup table.
func (r *Reader) Len() int { return len(r.lut) }

func (r *Reader) iidBlock() ([]byte, error) {
	return wire.Slice(r.data, r.header.IIDs)
}

func (r *Reader) loadIID(idx int) error {
	if r.iidLoaded.Contains(uint32(idx)) {
		return nil
	}
	rec := r.lut[idx]
	if rec.IID.Length == 0 {
		r.iidLoaded.Add(uint32(idx))
		return nil
	}
	iidBlock, err := r.iidBlock()
	if err != nil {
		return translateError(err)
	}
	raw, err := wire.Slice(iidBlock, rec.IID)
	if err != nil {
		return translateError(err)
	}
	dec, err := wire.DecodeIIDRecord(raw)
	if err != nil {
		return corruptf(err, "iid record for key %d", rec.Key)
	}
	if dec.Key != rec.Key {
		return corruptf(nil, "iid record key %d does not match lookup table key %d", dec.Key, rec.Key)
	}
	r.entries[idx].IID = &IID{Domain: dec.Domain, Address: dec.Address}
	r.iidLoaded.Add(uint32(idx))
	return nil
}

func (r *Reader) loadSeg(idx int) error {
	if r.segLoaded.Contains(uint32(idx)) {
		return nil
	}
	rec := r.lut[idx]
	if rec.Seg.Length == 0 {
		r.segLoaded.Add(uint32(idx))
		return nil
	}
	raw, err := wire.Slice(r.data, rec.Seg)
	if err != nil {
		return translateError(err)
	}
	dec, err := wire.DecodeSegment(raw)
	if err != nil {
		return corruptf(err, "segment record for key %d", rec.Key)
	}
	seg := fromWireSegment(dec)
	if r.opts.strictArea {
		var sum uint32
		for _, rg := range seg.Regions {
			n, err := rg.popCountChecked()
			if err != nil {
				return corruptf(err, "segment record for key %d", rec.Key)
			}
			sum += uint32(n)
		}
		if sum != dec.Area {
			return corruptf(nil, "area mismatch for key %d: header says %d, masks sum to %d", rec.Key, dec.Area, sum)
		}
	}
	r.entries[idx].Seg = seg
	r.segLoaded.Add(uint32(idx))
	return nil
}

// Groups returns the sorted names of every group in the file, read straight
// from the group header without resolving any group's key list.
func (r *Reader) Groups() []string {
	names := make([]string, 0, len(r.groupSpans))
	for name := range r.groupSpans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveGroup returns the key set of a named group, resolving and caching
// it on first use.
func (r *Reader) resolveGroup(name string) ([]uint32, error) {
	r.mu.RLock()
	if keys, ok := r.groupCache[name]; ok {
		r.mu.RUnlock()
		return keys, nil
	}
	r.mu.RUnlock()

	span, ok := r.groupSpans[name]
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, name)
	}
	groupsBuf, err := wire.Slice(r.data, r.header.Groups)
	if err != nil {
		return nil, translateError(err)
	}
	keys, err := wire.ResolveGroup(groupsBuf, r.groupsPayOff, span)
	if err != nil {
		return nil, corruptf(err, "group %q", name)
	}
	r.mu.Lock()
	r.groupCache[name] = keys
	r.mu.Unlock()
	return keys, nil
}

// targetIndices resolves a Selector to a de-duplicated set of lut indices.
func (r *Reader) targetIndices(sel Selector) ([]int, error) {
	if sel.Everything || sel.AllKeys {
		out := make([]int, len(r.lut))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	seen := make(map[int]struct{})
	for _, k := range sel.Keys {
		if idx, ok := r.byKey[k]; ok {
			seen[idx] = struct{}{}
		}
	}
	for _, name := range sel.Groups {
		keys, err := r.resolveGroup(name)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if idx, ok := r.byKey[k]; ok {
				seen[idx] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	return out, nil
}

// Fetch materializes IID and/or segment data for the keys named by sel,
// returning every matched entry (including ones already resolved by an
// earlier call).
func (r *Reader) Fetch(sel Selector) ([]*Entry, error) {
	idxs, err := r.targetIndices(sel)
	if err != nil {
		r.opts.logger.LogFetch(context.Background(), len(sel.Keys), 0, err)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wantIIDs := sel.Everything || sel.WantIIDs()
	wantSegs := sel.Everything || sel.WantSegs()
	out := make([]*Entry, 0, len(idxs))
	for _, idx := range idxs {
		if wantIIDs {
			if err := r.loadIID(idx); err != nil {
				r.opts.logger.LogFetch(context.Background(), len(idxs), len(out), err)
				return nil, err
			}
		}
		if wantSegs {
			if err := r.loadSeg(idx); err != nil {
				r.opts.logger.LogFetch(context.Background(), len(idxs), len(out), err)
				return nil, err
			}
		}
		out = append(out, r.entries[idx])
	}
	r.opts.logger.LogFetch(context.Background(), len(idxs), len(out), nil)
	return out, nil
}

// LookFor performs a linear scan for entries matching any of want. An IID in
// want with a nil Domain matches any domain, for that entry, so long as the
// Address matches. All IID bytes are loaded on demand if not already
// resolved.
func (r *Reader) LookFor(want []IID) ([]*Entry, error) {
	r.mu.Lock()
	for idx := range r.lut {
		if err := r.loadIID(idx); err != nil {
			r.mu.Unlock()
			r.opts.logger.LogLookup(context.Background(), len(want), 0, err)
			return nil, err
		}
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		for _, w := range want {
			if !equalBytes(e.IID.Address, w.Address) {
				continue
			}
			if w.Domain != nil && !equalBytes(e.IID.Domain, w.Domain) {
				continue
			}
			out = append(out, e)
			break
		}
	}
	r.opts.logger.LogLookup(context.Background(), len(want), len(out), nil)
	return out, nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// At returns every entry whose segment covers pixel (row, col). Only
// segments already loaded are consulted unless the reader was opened with
// WithAutoFill, in which case every segment is loaded first. Without
// autofill, if any segment is not yet loaded, the result may be incomplete
// and At returns ErrNotLoaded alongside whatever matches were found among
// loaded segments.
func (r *Reader) At(row, col int) ([]*Entry, error) {
	if r.opts.autoFill {
		if _, err := r.Fetch(Selector{AllKeys: true, IIDs: boolPtr(false)}); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	incomplete := false
	for idx, e := range r.entries {
		if !r.segLoaded.Contains(uint32(idx)) {
			incomplete = true
			continue
		}
		if e.Seg.At(row, col) {
			out = append(out, e)
		}
	}
	if incomplete {
		return out, ErrNotLoaded
	}
	return out, nil
}

// Region returns every entry whose loaded segment intersects q under the
// reader's configured precision. If onlyLoaded is false, every segment is
// loaded first.
func (r *Reader) Region(q wire.BBox, onlyLoaded bool) ([]*Entry, error) {
	if !onlyLoaded {
		if _, err := r.Fetch(Selector{AllKeys: true, IIDs: boolPtr(false)}); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for idx, e := range r.entries {
		if !r.segLoaded.Contains(uint32(idx)) {
			continue
		}
		if e.Seg.Intersects(q, r.opts.precision) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Filter applies f to every already-loaded entry, in memory. An entry whose
// relevant attribute (IID for Domains, segment for area bounds) is not
// loaded is excluded rather than causing an error.
func (r *Reader) Filter(f Filter) ([]*Entry, error) {
	var groupSet map[uint32]struct{}
	if len(f.Groups) > 0 {
		groupSet = make(map[uint32]struct{})
		for _, name := range f.Groups {
			keys, err := r.resolveGroup(name)
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				groupSet[k] = struct{}{}
			}
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for idx, e := range r.entries {
		if groupSet != nil {
			if _, ok := groupSet[e.Key]; !ok {
				continue
			}
		}
		if len(f.Domains) > 0 {
			if e.IID == nil {
				continue
			}
			match := false
			for _, d := range f.Domains {
				if equalBytes(e.IID.Domain, d) {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.MinArea != nil || f.MaxArea != nil {
			if !r.segLoaded.Contains(uint32(idx)) || e.Seg == nil {
				continue
			}
			if f.MinArea != nil && e.Seg.Area <= *f.MinArea {
				continue
			}
			if f.MaxArea != nil && e.Seg.Area >= *f.MaxArea {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// ComputeOverlap scans every loaded segment pairwise, bbox-pruned, and
// returns an Edge for each pair whose masks intersect under the reader's
// configured precision.
func (r *Reader) ComputeOverlap(ctx context.Context) ([]Edge, error) {
	r.mu.RLock()
	loaded := make([]*Entry, 0, r.segLoaded.GetCardinality())
	for idx, e := range r.entries {
		if r.segLoaded.Contains(uint32(idx)) {
			loaded = append(loaded, e)
		}
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	var edges []Edge
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < len(loaded); i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := loaded[i]
			for j := i + 1; j < len(loaded); j++ {
				b := loaded[j]
				if !a.Seg.BBox.Intersects(b.Seg.BBox) {
					continue
				}
				if segmentsIntersect(a.Seg, b.Seg, r.opts.precision) {
					mu.Lock()
					edges = append(edges, Edge{A: a.Key, B: b.Key})
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

func segmentsIntersect(a, b *Segment, precision Precision) bool {
	if !a.BBox.Intersects(b.BBox) {
		return false
	}
	if precision == PrecisionBBox {
		return true
	}
	for _, ra := range a.Regions {
		for _, rb := range b.Regions {
			if !ra.BBox.Intersects(rb.BBox) {
				continue
			}
			minR := maxInt(int(ra.BBox.MinR), int(rb.BBox.MinR))
			maxR := minInt(int(ra.BBox.MaxR), int(rb.BBox.MaxR))
			minC := maxInt(int(ra.BBox.MinC), int(rb.BBox.MinC))
			maxC := minInt(int(ra.BBox.MaxC), int(rb.BBox.MaxC))
			for row := minR; row < maxR; row++ {
				for col := minC; col < maxC; col++ {
					if ra.At(row, col) && rb.At(row, col) {
						return true
					}
				}
			}
		}
	}
	return false
}

// Metadata decodes and returns the opaque metadata document using the
// reader's configured codec. The decoded value is cached.
func (r *Reader) Metadata() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metadataSet {
		return r.metadata, nil
	}
	raw, err := wire.Slice(r.data, r.header.Meta)
	if err != nil {
		return nil, translateError(err)
	}
	if len(raw) == 0 {
		r.metadataSet = true
		return nil, nil
	}
	body, err := wire.NewReader(raw).String()
	if err != nil {
		return nil, corruptf(err, "metadata length prefix")
	}
	var v any
	if err := r.opts.codec.Unmarshal(body, &v); err != nil {
		return nil, corruptf(err, "metadata")
	}
	r.metadata = v
	r.metadataSet = true
	return v, nil
}

// Close releases the memory map. It is idempotent.
func (r *Reader) Close() error {
	err := r.mapping.Close()
	r.opts.logger.LogClose(context.Background(), r.path, err)
	return err
}
