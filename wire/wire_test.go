package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version: Version,
		RFormat: 0,
		LUT:     BufLoc{Offset: 48, Length: 20},
		IIDs:    BufLoc{Offset: 68, Length: 100},
		Meta:    BufLoc{Offset: 168, Length: 2},
		Groups:  BufLoc{Offset: 170, Length: 8},
		Segs:    BufLoc{Offset: 178, Length: 40},
	}
	buf := EncodeHeader(h)
	require.Len(t, buf, HeaderSize)

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderTruncated(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, ErrShortRead)
}

func TestLUTRoundTrip(t *testing.T) {
	recs := []LUTRecord{
		{Key: 0, IID: BufLoc{0, 10}, Seg: BufLoc{100, 20}},
		{Key: 1, IID: BufLoc{10, 12}, Seg: BufLoc{120, 30}},
	}
	var buf []byte
	for _, r := range recs {
		buf = append(buf, EncodeLUTRecord(r)...)
	}
	require.Len(t, buf, len(recs)*LUTRecordSize)

	got, err := DecodeLUT(buf)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestLUTNotMultipleOfRecordSize(t *testing.T) {
	_, err := DecodeLUT(make([]byte, LUTRecordSize+1))
	require.Error(t, err)
}

func TestIIDRecordRoundTrip(t *testing.T) {
	rec := IIDRecord{Key: 7, Domain: []byte("ex"), Address: []byte("tree")}
	buf := EncodeIIDRecord(rec)
	require.Len(t, buf, IIDRecordSize(len(rec.Domain), len(rec.Address)))

	got, err := DecodeIIDRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestIIDRecordEmptyDomainAndAddress(t *testing.T) {
	rec := IIDRecord{Key: 1, Domain: nil, Address: nil}
	buf := EncodeIIDRecord(rec)
	got, err := DecodeIIDRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Key)
	assert.Empty(t, got.Domain)
	assert.Empty(t, got.Address)
}

func TestGroupsRoundTrip(t *testing.T) {
	members := map[string][]uint32{
		"a": {0, 2, 4},
		"b": {1},
		"c": {},
	}
	names := []string{"a", "b", "c"}

	buf, err := EncodeGroups(names, members)
	require.NoError(t, err)

	spans, payloadOff, err := DecodeGroupsHeader(buf)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	for name, want := range members {
		span, ok := spans[name]
		require.True(t, ok, "missing group %q", name)
		got, err := ResolveGroup(buf, payloadOff, span)
		require.NoError(t, err)
		if len(want) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, want, got)
		}
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	rec := SegmentRecord{
		Key:  3,
		BBox: BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 3},
		Area: 4,
		Regions: []RegionRecord{
			{BBox: BBox{0, 0, 2, 3}, Mask: []byte{0b10111000}},
		},
	}
	buf := EncodeSegment(rec)
	got, err := DecodeSegment(buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

// TestBitLayout matches the S5 scenario: a 1x9 region with mask row
// [1,0,1,0,1,0,1,0,1] must pack to 0xAA, 0x80.
func TestBitLayout(t *testing.T) {
	bits := []int{1, 0, 1, 0, 1, 0, 1, 0, 1}
	mask := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			mask[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	assert.Equal(t, []byte{0xAA, 0x80}, mask)

	rec := RegionRecord{BBox: BBox{0, 0, 1, 9}, Mask: mask}
	buf := EncodeRegion(rec)
	r := NewReader(buf)
	got, err := DecodeRegion(r)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestBBoxUnionAndIntersect(t *testing.T) {
	a := BBox{0, 0, 2, 2}
	b := BBox{1, 1, 3, 3}
	assert.True(t, a.Intersects(b))
	assert.Equal(t, BBox{0, 0, 3, 3}, a.Union(b))

	c := BBox{5, 5, 6, 6}
	assert.False(t, a.Intersects(c))
}
