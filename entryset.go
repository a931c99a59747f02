package segstore

// Entry is one dense-keyed record: an individual identifier and, once
// resolved, its segment mask. Either pointer may be nil on a Reader-produced
// Entry that has not materialized that half of the record yet; on an
// EntrySet used to build a file for Save, both are populated by Add.
type Entry struct {
	Key uint32
	IID *IID
	Seg *Segment
}

// EntrySet accumulates entries in memory before Save writes them out. It
// enforces the global (domain, address) uniqueness invariant and tracks
// named groups, mirroring the on-disk groups block.
type EntrySet struct {
	entries  []*Entry
	byIID    map[string]uint32
	groups   map[string][]uint32
	metadata any
	partial  bool
}

// NewEntrySet returns an empty EntrySet ready for Add.
func NewEntrySet() *EntrySet {
	return &EntrySet{
		byIID:  make(map[string]uint32),
		groups: make(map[string][]uint32),
	}
}

// Add inserts a new entry with a freshly assigned dense key (the count of
// entries added so far, matching the format's LUT key convention) and
// returns it. It returns ErrDuplicateIID if iid.Equal matches an entry
// already present.
func (es *EntrySet) Add(iid IID, seg *Segment, groups ...string) (uint32, error) {
	uk := iid.uniqueKey()
	if _, exists := es.byIID[uk]; exists {
		return 0, ErrDuplicateIID
	}
	key := uint32(len(es.entries))
	es.entries = append(es.entries, &Entry{Key: key, IID: &iid, Seg: seg})
	es.byIID[uk] = key
	for _, g := range groups {
		es.groups[g] = append(es.groups[g], key)
	}
	return key, nil
}

// Entries returns all entries in key order. The slice is owned by the
// caller; the EntrySet keeps its own internal slice untouched.
func (es *EntrySet) Entries() []*Entry {
	out := make([]*Entry, len(es.entries))
	copy(out, es.entries)
	return out
}

// Groups returns the names of every group with at least one member, in no
// particular order.
func (es *EntrySet) Groups() []string {
	names := make([]string, 0, len(es.groups))
	for name := range es.groups {
		names = append(names, name)
	}
	return names
}

// Group returns the key set of the named group, or nil if it does not exist.
func (es *EntrySet) Group(name string) []uint32 {
	return es.groups[name]
}

// AddToGroup adds an already-present key to a group. It is a no-op if the
// key is already a member.
func (es *EntrySet) AddToGroup(name string, key uint32) {
	for _, k := range es.groups[name] {
		if k == key {
			return
		}
	}
	es.groups[name] = append(es.groups[name], key)
}

// SetMetadata sets the opaque metadata document persisted alongside the
// entries. It is marshaled with the codec configured on Save.
func (es *EntrySet) SetMetadata(v any) { es.metadata = v }

// Metadata returns the value passed to SetMetadata, or nil.
func (es *EntrySet) Metadata() any { return es.metadata }

// AllowPartialSave marks the set as intentionally incomplete — some entries
// may have a nil Seg — so Save will not refuse to write it. Per the format's
// design, a partially-loaded save silently drops the unresolved halves of
// its entries; this is a deliberate opt-in to that data loss.
func (es *EntrySet) AllowPartialSave() { es.partial = true }

// FullyLoaded reports whether every entry has both an IID and a segment
// resolved. Save refuses to write a set that is not fully loaded unless
// AllowPartialSave was called.
func (es *EntrySet) FullyLoaded() bool {
	for _, e := range es.entries {
		if e.IID == nil || e.Seg == nil {
			return false
		}
	}
	return true
}
