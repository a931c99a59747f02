package segstore

import (
	"bytes"
	"encoding/binary"
)

// IID is an Individual IDentifier: a (domain, address) pair of opaque byte
// strings that globally names one individual. Either may be empty; equality
// is byte-exact over both fields.
type IID struct {
	Domain  []byte
	Address []byte
}

// Equal reports whether two IIDs have byte-identical domain and address.
func (i IID) Equal(o IID) bool {
	return bytes.Equal(i.Domain, o.Domain) && bytes.Equal(i.Address, o.Address)
}

// uniqueKey returns a collision-free string key for i, suitable for use as a
// map key. A plain concatenation of domain and address would be ambiguous
// (["ab", "c"] and ["a", "bc"] would collide); prefixing the domain length
// removes the ambiguity without needing a separator byte that might itself
// appear in either field.
func (i IID) uniqueKey() string {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(i.Domain)))
	var b bytes.Buffer
	b.Grow(4 + len(i.Domain) + len(i.Address))
	b.Write(lenBuf[:])
	b.Write(i.Domain)
	b.Write(i.Address)
	return b.String()
}
