// Package wire implements the bit-exact binary grammar of a segstore file:
// codec primitives, buffer locations, and the header/LUT/IID/groups/segment
// block layouts. Nothing in this package touches an mmap or a filesystem; it
// only encodes and decodes byte slices already in memory.
//
// All multi-byte integers are little-endian. Callers get bounds-checked
// reads via [Reader] and append-only writes via [Writer].
package wire
