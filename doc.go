// Package segstore reads and writes the segstore file format: a
// memory-mapped, lazily-resolved container for image-segmentation data
// addressed by globally-unique Individual IDentifiers (IIDs).
//
// A file holds a dense array of entries, each pairing one IID with one
// segment (a binary mask decomposed into rectangular regions). [Open] maps a
// file read-only and eagerly parses only its header and lookup table;
// everything else — IID bytes, segment masks, group membership — is
// resolved on demand through [Reader.Fetch] and friends. [Save] serializes
// an in-memory [EntrySet] back into the same bit-exact layout.
//
// The on-disk grammar itself lives in the wire subpackage; this package is
// the programmatic surface on top of it.
package segstore
