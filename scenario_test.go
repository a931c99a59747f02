package segstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segstore/segstore/wire"
)

func regionBits(bits ...bool) []bool { return bits }

// S1: an empty file (zero entries) opens cleanly and reports zero length.
func TestScenarioEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.segstore")
	es := NewEntrySet()
	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.Len())
	entries, err := r.Fetch(Selector{Everything: true})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// S2: a single entry round-trips through Save/Open byte-for-byte in meaning:
// same IID, same segment geometry.
func TestScenarioSingleEntryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.segstore")
	es := NewEntrySet()

	seg := newTestSegment(t, wire.BBox{MinR: 1, MinC: 1, MaxR: 3, MaxC: 3}, regionBits(true, false, false, true))
	iid := IID{Domain: []byte("example.org"), Address: []byte("cell-1")}
	key, err := es.Add(iid, seg)
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 1, r.Len())
	entries, err := r.Fetch(Selector{Keys: []uint32{key}})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, iid.Domain, got.IID.Domain)
	assert.Equal(t, iid.Address, got.IID.Address)
	assert.Equal(t, seg.BBox, got.Seg.BBox)
	assert.Equal(t, seg.Area, got.Seg.Area)
	assert.True(t, got.Seg.At(1, 1))
	assert.True(t, got.Seg.At(2, 2))
	assert.False(t, got.Seg.At(1, 2))
}

// S3: three entries over two groups, partial Fetch by group, and an incomplete At query
// signaling ErrNotLoaded alongside whatever partial matches it found.
func TestScenarioGroupsPartialLoadAndNotLoaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.segstore")
	es := NewEntrySet()

	segA := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	segB := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	segC := newTestSegment(t, wire.BBox{MinR: 5, MinC: 5, MaxR: 6, MaxC: 6}, regionBits(true))

	keyA, err := es.Add(IID{Address: []byte("a")}, segA, "group-x")
	require.NoError(t, err)
	keyB, err := es.Add(IID{Address: []byte("b")}, segB, "group-y")
	require.NoError(t, err)
	_, err = es.Add(IID{Address: []byte("c")}, segC, "group-x", "group-y")
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	// Fetch only group-x: keyA and keyC.
	entries, err := r.Fetch(Selector{Groups: []string{"group-x"}})
	require.NoError(t, err)
	gotKeys := make([]uint32, 0, len(entries))
	for _, e := range entries {
		gotKeys = append(gotKeys, e.Key)
	}
	assert.ElementsMatch(t, []uint32{keyA, 2}, gotKeys)

	// Now At(0,0) should find keyA and keyB, but keyB's segment was never
	// fetched (only group-x was), so the reader must report ErrNotLoaded
	// while still returning the partial match it did find (keyA).
	partial, err := r.At(0, 0)
	assert.ErrorIs(t, err, ErrNotLoaded)
	partialKeys := make([]uint32, 0, len(partial))
	for _, e := range partial {
		partialKeys = append(partialKeys, e.Key)
	}
	assert.Contains(t, partialKeys, keyA)
	assert.NotContains(t, partialKeys, keyB)
}

// Reader.Groups lists every group's name, sorted, without resolving any
// group's key list — a fresh Reader (no prior Fetch) must still answer it.
func TestReaderGroupsListsNamesWithoutResolving(t *testing.T) {
	path := filepath.Join(t.TempDir(), "group-names.segstore")
	es := NewEntrySet()

	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	_, err := es.Add(IID{Address: []byte("a")}, seg, "group-y", "group-x")
	require.NoError(t, err)
	_, err = es.Add(IID{Address: []byte("b")}, seg, "group-z")
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"group-x", "group-y", "group-z"}, r.Groups())
}

// S4: two overlapping segments and one disjoint segment produce exactly one
// overlap edge once all segments are loaded.
func TestScenarioComputeOverlapExactlyOneEdge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlap.segstore")
	es := NewEntrySet()

	segA := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}, regionBits(true, true, true, true))
	segB := newTestSegment(t, wire.BBox{MinR: 1, MinC: 1, MaxR: 3, MaxC: 3}, regionBits(true, false, false, false))
	segC := newTestSegment(t, wire.BBox{MinR: 10, MinC: 10, MaxR: 11, MaxC: 11}, regionBits(true))

	keyA, err := es.Add(IID{Address: []byte("a")}, segA)
	require.NoError(t, err)
	keyB, err := es.Add(IID{Address: []byte("b")}, segB)
	require.NoError(t, err)
	_, err = es.Add(IID{Address: []byte("c")}, segC)
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fetch(Selector{Everything: true})
	require.NoError(t, err)

	edges, err := r.ComputeOverlap(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 1)
	edge := edges[0]
	assert.ElementsMatch(t, []uint32{keyA, keyB}, []uint32{edge.A, edge.B})
}

// S5: bit layout for a 1x9 mask [1,0,1,0,1,0,1,0,1] packs to 0xAA, 0x80 and
// survives a full Save/Open round trip (the wire package pins the codec
// itself; this pins it end to end through the public API).
func TestScenarioBitLayoutRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bits.segstore")
	es := NewEntrySet()

	bits := regionBits(true, false, true, false, true, false, true, false, true)
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 9}, bits)
	require.Equal(t, []byte{0xAA, 0x80}, seg.Regions[0].Mask)

	key, err := es.Add(IID{Address: []byte("row")}, seg)
	require.NoError(t, err)
	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.Fetch(Selector{Keys: []uint32{key}, IIDs: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte{0xAA, 0x80}, entries[0].Seg.Regions[0].Mask)
}

// S6: adding a second entry with a duplicate IID is rejected before Save
// ever runs, so the file is never even written with the collision.
func TestScenarioDuplicateIIDRejectedBeforeSave(t *testing.T) {
	es := NewEntrySet()
	iid := IID{Domain: []byte("ex"), Address: []byte("dup")}
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))

	_, err := es.Add(iid, seg)
	require.NoError(t, err)
	_, err = es.Add(iid, seg)
	require.ErrorIs(t, err, ErrDuplicateIID)
	assert.Len(t, es.Entries(), 1)
}

func TestSaveRefusesPartialWithoutOptIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.segstore")
	es := NewEntrySet()
	_, err := es.Add(IID{Address: []byte("a")}, nil)
	require.NoError(t, err)

	err = Save(es, path)
	assert.Error(t, err)
}

func TestSavePartialWithOptIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial-ok.segstore")
	es := NewEntrySet()
	_, err := es.Add(IID{Address: []byte("a")}, nil)
	require.NoError(t, err)
	es.AllowPartialSave()

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.Fetch(Selector{Everything: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Seg)
	assert.NotNil(t, entries[0].IID)
}

// A partially-saved entry with a resolved IID but no segment must reopen
// with a nil Seg, not ErrCorrupt: the writer emits a zero-length BufLoc for
// the missing half, and the reader must treat that as "not present" rather
// than try to decode zero bytes as a record.
func TestSavePartialMissingSegDoesNotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial-seg.segstore")
	es := NewEntrySet()
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	keyWithSeg, err := es.Add(IID{Address: []byte("a")}, seg)
	require.NoError(t, err)
	keyNoSeg, err := es.Add(IID{Address: []byte("b")}, nil)
	require.NoError(t, err)
	es.AllowPartialSave()

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.Fetch(Selector{Everything: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byKey := make(map[uint32]*Entry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}
	require.NotNil(t, byKey[keyWithSeg].Seg)
	assert.Nil(t, byKey[keyNoSeg].Seg)
	assert.NotNil(t, byKey[keyNoSeg].IID)
}

// A partially-saved entry with a resolved segment but no IID must reopen
// with a nil IID, exercising loadIID's zero-length BufLoc guard.
func TestSavePartialMissingIIDDoesNotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial-iid.segstore")
	es := NewEntrySet()
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	_, err := es.Add(IID{Address: []byte("a")}, seg)
	require.NoError(t, err)
	key := uint32(len(es.entries))
	es.entries = append(es.entries, &Entry{Key: key, IID: nil, Seg: seg})
	es.AllowPartialSave()

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.Fetch(Selector{Everything: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byKey := make(map[uint32]*Entry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}
	assert.Nil(t, byKey[key].IID)
	require.NotNil(t, byKey[key].Seg)
}

func TestMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.segstore")
	es := NewEntrySet()
	_, err := es.Add(IID{Address: []byte("a")}, newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true)))
	require.NoError(t, err)
	es.SetMetadata(map[string]any{"dataset": "acme", "count": float64(1)})

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	md, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"dataset": "acme", "count": float64(1)}, md)
}

func TestLookForMatchesAnyDomainWhenNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup.segstore")
	es := NewEntrySet()
	seg := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))

	_, err := es.Add(IID{Domain: []byte("d1"), Address: []byte("addr")}, seg)
	require.NoError(t, err)
	_, err = es.Add(IID{Domain: []byte("d2"), Address: []byte("other")}, seg)
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	matches, err := r.LookFor([]IID{{Address: []byte("addr")}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []byte("d1"), matches[0].IID.Domain)
}

func TestFilterByAreaBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.segstore")
	es := NewEntrySet()

	small := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: 1}, regionBits(true))
	big := newTestSegment(t, wire.BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}, regionBits(true, true, true, true))

	smallKey, err := es.Add(IID{Address: []byte("s")}, small)
	require.NoError(t, err)
	bigKey, err := es.Add(IID{Address: []byte("b")}, big)
	require.NoError(t, err)

	require.NoError(t, Save(es, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fetch(Selector{Everything: true, IIDs: boolPtr(false)})
	require.NoError(t, err)

	min := uint32(1)
	entries, err := r.Filter(Filter{MinArea: &min})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bigKey, entries[0].Key)
	_ = smallKey
}
