package segstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/segstore/segstore/cloudstore"
	"github.com/segstore/segstore/internal/fs"
	"github.com/segstore/segstore/wire"
)

// u32 narrows n to a uint32 block offset or length, failing rather than
// silently wrapping when a file grows past the format's 32-bit addressing
// limit (spec: any length > 2^32-1 is a fatal encoding error).
func u32(n int, what string) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("segstore: %s (%d) exceeds the format's 32-bit limit", what, n)
	}
	return uint32(n), nil
}

// Save writes es to path as a single segstore file. The write is atomic: it
// is staged in a temporary file in the same directory, fsynced, and moved
// into place with os.Rename, with the containing directory fsynced
// afterward so the rename itself is durable. On any error the temporary
// file is removed and path is left untouched.
//
// Save refuses to write a set that is not fully loaded (see
// EntrySet.FullyLoaded) unless EntrySet.AllowPartialSave was called, since a
// partial save silently drops the unresolved half of each incomplete entry.
func Save(es *EntrySet, path string, opts ...Option) (err error) {
	o := applyOptions(opts)

	if !es.partial && !es.FullyLoaded() {
		err = fmt.Errorf("segstore: entry set is not fully loaded; call AllowPartialSave to save anyway")
		o.logger.LogSave(context.Background(), path, len(es.entries), err)
		return err
	}

	buf, err := encode(es, o)
	if err != nil {
		o.logger.LogSave(context.Background(), path, len(es.entries), err)
		return err
	}

	if err = atomicWrite(o.fsys, path, buf); err != nil {
		err = fmt.Errorf("%w: %v", ErrIO, err)
		o.logger.LogSave(context.Background(), path, len(es.entries), err)
		return err
	}

	o.logger.LogSave(context.Background(), path, len(es.entries), nil)
	return nil
}

// SaveRemote encodes es exactly as Save does, then uploads the result to
// name in store. For an S3Store, cloudstore.S3Store.Create streams the body
// through the AWS SDK's multipart manager.Uploader, so the whole encoded
// file never needs to sit in the destination's memory at once.
func SaveRemote(ctx context.Context, es *EntrySet, store cloudstore.Store, name string, opts ...Option) (err error) {
	o := applyOptions(opts)

	if !es.partial && !es.FullyLoaded() {
		err = fmt.Errorf("segstore: entry set is not fully loaded; call AllowPartialSave to save anyway")
		o.logger.LogSave(ctx, name, len(es.entries), err)
		return err
	}

	buf, err := encode(es, o)
	if err != nil {
		o.logger.LogSave(ctx, name, len(es.entries), err)
		return err
	}

	if err = cloudstore.Put(ctx, store, name, buf); err != nil {
		err = fmt.Errorf("%w: %v", ErrIO, err)
		o.logger.LogSave(ctx, name, len(es.entries), err)
		return err
	}

	o.logger.LogSave(ctx, name, len(es.entries), nil)
	return nil
}

func encode(es *EntrySet, o *options) ([]byte, error) {
	entries := es.Entries()

	iidWriter := wire.NewWriter()
	iidLocByKey := make(map[uint32]wire.BufLoc, len(entries))
	for _, e := range entries {
		if e.IID == nil {
			iidLocByKey[e.Key] = wire.BufLoc{}
			continue
		}
		before := iidWriter.Len()
		rec := wire.EncodeIIDRecord(wire.IIDRecord{Key: e.Key, Domain: e.IID.Domain, Address: e.IID.Address})
		iidWriter.PutBytes(rec)
		offset, err := u32(before, "iid block offset")
		if err != nil {
			return nil, err
		}
		length, err := u32(len(rec), "iid record length")
		if err != nil {
			return nil, err
		}
		iidLocByKey[e.Key] = wire.BufLoc{Offset: offset, Length: length}
	}

	segWriter := wire.NewWriter()
	segLocByKey := make(map[uint32]wire.BufLoc, len(entries))
	for _, e := range entries {
		if e.Seg == nil {
			segLocByKey[e.Key] = wire.BufLoc{}
			continue
		}
		before := segWriter.Len()
		rec := wire.EncodeSegment(wire.SegmentRecord{
			Key:     e.Key,
			BBox:    e.Seg.BBox,
			Area:    e.Seg.Area,
			Regions: toWireRegions(e.Seg.Regions),
		})
		segWriter.PutBytes(rec)
		offset, err := u32(before, "segment block offset")
		if err != nil {
			return nil, err
		}
		length, err := u32(len(rec), "segment record length")
		if err != nil {
			return nil, err
		}
		segLocByKey[e.Key] = wire.BufLoc{Offset: offset, Length: length}
	}

	var metaBytes []byte
	if md := es.Metadata(); md != nil {
		b, err := o.codec.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("segstore: encode metadata: %w", err)
		}
		mw := wire.NewWriter()
		if err := mw.PutString(b); err != nil {
			return nil, fmt.Errorf("segstore: encode metadata: %w", err)
		}
		metaBytes = mw.Bytes()
	}

	groupsBytes, err := wire.EncodeGroups(es.Groups(), es.groups)
	if err != nil {
		return nil, err
	}

	const headerLen = wire.HeaderSize
	lutLen := len(entries) * wire.LUTRecordSize
	lutOffset := headerLen
	iidOffset := lutOffset + lutLen
	iidBytes := iidWriter.Bytes()
	metaOffset := iidOffset + len(iidBytes)
	groupsOffset := metaOffset + len(metaBytes)
	segsOffset := groupsOffset + len(groupsBytes)
	segBytes := segWriter.Bytes()

	lutOffsetU32, err := u32(lutOffset, "lut offset")
	if err != nil {
		return nil, err
	}
	lutLenU32, err := u32(lutLen, "lut length")
	if err != nil {
		return nil, err
	}
	iidOffsetU32, err := u32(iidOffset, "iid block offset")
	if err != nil {
		return nil, err
	}
	iidBytesLenU32, err := u32(len(iidBytes), "iid block length")
	if err != nil {
		return nil, err
	}
	metaOffsetU32, err := u32(metaOffset, "metadata block offset")
	if err != nil {
		return nil, err
	}
	metaBytesLenU32, err := u32(len(metaBytes), "metadata block length")
	if err != nil {
		return nil, err
	}
	groupsOffsetU32, err := u32(groupsOffset, "groups block offset")
	if err != nil {
		return nil, err
	}
	groupsBytesLenU32, err := u32(len(groupsBytes), "groups block length")
	if err != nil {
		return nil, err
	}
	segsOffsetU32, err := u32(segsOffset, "segment block offset")
	if err != nil {
		return nil, err
	}
	segBytesLenU32, err := u32(len(segBytes), "segment block length")
	if err != nil {
		return nil, err
	}

	lutWriter := wire.NewWriter()
	for _, e := range entries {
		iidLoc := iidLocByKey[e.Key]
		segLoc := segLocByKey[e.Key]
		if e.Seg != nil {
			segLoc.Offset += segsOffsetU32
		}
		lutWriter.PutBytes(wire.EncodeLUTRecord(wire.LUTRecord{Key: e.Key, IID: iidLoc, Seg: segLoc}))
	}

	hdr := wire.Header{
		Version: wire.Version,
		RFormat: 0,
		LUT:     wire.BufLoc{Offset: lutOffsetU32, Length: lutLenU32},
		IIDs:    wire.BufLoc{Offset: iidOffsetU32, Length: iidBytesLenU32},
		Meta:    wire.BufLoc{Offset: metaOffsetU32, Length: metaBytesLenU32},
		Groups:  wire.BufLoc{Offset: groupsOffsetU32, Length: groupsBytesLenU32},
		Segs:    wire.BufLoc{Offset: segsOffsetU32, Length: segBytesLenU32},
	}

	out := make([]byte, 0, segsOffset+len(segBytes))
	out = append(out, wire.EncodeHeader(hdr)...)
	out = append(out, lutWriter.Bytes()...)
	out = append(out, iidBytes...)
	out = append(out, metaBytes...)
	out = append(out, groupsBytes...)
	out = append(out, segBytes...)
	return out, nil
}

func atomicWrite(fsys fs.FileSystem, path string, data []byte) error {
	dir := filepath.Dir(path)

	var f fs.File
	var tmpPath string
	for attempt := 0; ; attempt++ {
		tmpPath = filepath.Join(dir, fs.TempName(".segstore-", ".tmp"))
		var err error
		f, err = fsys.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) || attempt > 8 {
			return err
		}
	}
	defer func() {
		if tmpPath != "" {
			_ = fsys.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		return err
	}
	tmpPath = "" // renamed away; nothing left to clean up

	if dirFile, err := os.Open(dir); err == nil {
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}
	return nil
}
