package wire

import (
	"encoding/json"
	"fmt"
)

// GroupSpan is the JSON-visible location of one group's key list, relative
// to the start of the group-payload region (the bytes right after the
// header).
type GroupSpan struct {
	Offset uint32 `json:"offset"`
	Count  uint32 `json:"count"`
}

// EncodeGroups serializes the groups block:
// u32 header_len, json header, then each group's u32 keys back to back.
// names controls on-disk order; it must list exactly the keys of members.
func EncodeGroups(names []string, members map[string][]uint32) ([]byte, error) {
	header := make(map[string]GroupSpan, len(names))
	payload := NewWriter()
	for _, name := range names {
		keys := members[name]
		header[name] = GroupSpan{Offset: uint32(payload.Len()), Count: uint32(len(keys))}
		for _, k := range keys {
			payload.PutUint32(k)
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("wire: encode groups header: %w", err)
	}

	w := NewWriter()
	if err := w.PutString(headerBytes); err != nil {
		return nil, err
	}
	w.PutBytes(payload.Bytes())
	return w.Bytes(), nil
}

// DecodeGroupsHeader parses only the header of the groups block, returning
// each group's span. Callers resolve individual group key lists on demand
// via ResolveGroup, without touching the rest of the block.
func DecodeGroupsHeader(buf []byte) (spans map[string]GroupSpan, payloadOffset int, err error) {
	r := NewReader(buf)
	headerBytes, err := r.String()
	if err != nil {
		return nil, 0, err
	}
	spans = make(map[string]GroupSpan)
	if len(headerBytes) > 0 {
		if err := json.Unmarshal(headerBytes, &spans); err != nil {
			return nil, 0, fmt.Errorf("wire: decode groups header: %w", err)
		}
	}
	return spans, r.Offset(), nil
}

// ResolveGroup reads a group's key list given the block buffer, the
// group-payload offset returned by DecodeGroupsHeader, and the group's span.
func ResolveGroup(buf []byte, payloadOffset int, span GroupSpan) ([]uint32, error) {
	start := payloadOffset + int(span.Offset)
	end := start + int(span.Count)*4
	if end > len(buf) {
		return nil, fmt.Errorf("%w: group span [%d,%d) exceeds groups block of length %d", ErrShortRead, start, end, len(buf))
	}
	r := NewReader(buf[start:end])
	keys := make([]uint32, span.Count)
	for i := range keys {
		k, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}
