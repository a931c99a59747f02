package segstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segstore/segstore/wire"
)

func mustSegment(t *testing.T, bits ...bool) *Segment {
	t.Helper()
	n := len(bits)
	r, err := NewRegion(wire.BBox{MinR: 0, MinC: 0, MaxR: 1, MaxC: uint16(n)}, bits)
	require.NoError(t, err)
	seg, err := NewSegment([]Region{r})
	require.NoError(t, err)
	return seg
}

func TestEntrySetAddAssignsDenseKeys(t *testing.T) {
	es := NewEntrySet()
	k0, err := es.Add(IID{Address: []byte("a")}, mustSegment(t, true))
	require.NoError(t, err)
	k1, err := es.Add(IID{Address: []byte("b")}, mustSegment(t, false))
	require.NoError(t, err)

	assert.Equal(t, uint32(0), k0)
	assert.Equal(t, uint32(1), k1)
	assert.Len(t, es.Entries(), 2)
}

// TestEntrySetRejectsDuplicateIID matches scenario S6: two entries with the
// same (domain, address) may not coexist in the same set.
func TestEntrySetRejectsDuplicateIID(t *testing.T) {
	es := NewEntrySet()
	iid := IID{Domain: []byte("ex"), Address: []byte("tree")}
	_, err := es.Add(iid, mustSegment(t, true))
	require.NoError(t, err)

	_, err = es.Add(iid, mustSegment(t, false))
	assert.ErrorIs(t, err, ErrDuplicateIID)
	assert.Len(t, es.Entries(), 1, "the rejected add must not partially mutate the set")
}

func TestEntrySetGroups(t *testing.T) {
	es := NewEntrySet()
	k0, err := es.Add(IID{Address: []byte("a")}, mustSegment(t, true), "reviewed")
	require.NoError(t, err)
	k1, err := es.Add(IID{Address: []byte("b")}, mustSegment(t, true))
	require.NoError(t, err)
	es.AddToGroup("reviewed", k1)
	es.AddToGroup("reviewed", k1) // idempotent

	assert.ElementsMatch(t, []string{"reviewed"}, es.Groups())
	assert.ElementsMatch(t, []uint32{k0, k1}, es.Group("reviewed"))
}

func TestEntrySetFullyLoaded(t *testing.T) {
	es := NewEntrySet()
	_, err := es.Add(IID{Address: []byte("a")}, mustSegment(t, true))
	require.NoError(t, err)
	assert.True(t, es.FullyLoaded())

	_, err = es.Add(IID{Address: []byte("b")}, nil)
	require.NoError(t, err)
	assert.False(t, es.FullyLoaded())
}

func TestEntrySetMetadataRoundTrip(t *testing.T) {
	es := NewEntrySet()
	assert.Nil(t, es.Metadata())
	es.SetMetadata(map[string]any{"k": "v"})
	assert.Equal(t, map[string]any{"k": "v"}, es.Metadata())
}
