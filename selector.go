package segstore

// Selector configures a Fetch call. It is a plain configuration value, not a
// builder: construct it as a struct literal. Selectors are additive across
// calls — the reader tracks a per-key "iid-loaded" and "seg-loaded" flag and
// Fetch only ever adds to it.
type Selector struct {
	// Everything loads IIDs and segments for every key, ignoring the
	// remaining fields (including IIDs and Segs).
	Everything bool
	// AllKeys includes every key but still obeys IIDs/Segs.
	AllKeys bool
	// Keys is an explicit key list, ignored if Everything or AllKeys is set.
	Keys []uint32
	// Groups is the union of the named groups' key sets, added to Keys
	// rather than replacing it.
	Groups []string
	// IIDs controls whether IID bytes are materialized for selected keys.
	// nil means true.
	IIDs *bool
	// Segs controls whether segment records are materialized for selected
	// keys. nil means true.
	Segs *bool
}

func boolPtr(b bool) *bool { return &b }

// WantIIDs reports the effective value of the IIDs flag.
func (s Selector) WantIIDs() bool { return s.IIDs == nil || *s.IIDs }

// WantSegs reports the effective value of the Segs flag.
func (s Selector) WantSegs() bool { return s.Segs == nil || *s.Segs }

// Filter configures Reader.Filter: an in-memory predicate over entries the
// reader already has loaded. Attributes that are not yet resolved for a
// given entry cause that entry to be excluded rather than erroring.
type Filter struct {
	// Groups restricts to entries that are members of any of these groups.
	Groups []string
	// Domains restricts to entries whose IID domain is one of these.
	Domains [][]byte
	// MinArea and MaxArea bound seg.Area, exclusive on both ends when set,
	// mirroring the "(min, max)" range in §4.9. Either may be nil to leave
	// that bound open.
	MinArea, MaxArea *uint32
}

// Edge is one pairwise overlap between two loaded segments, as produced by
// Reader.ComputeOverlap.
type Edge struct {
	A, B uint32
}
