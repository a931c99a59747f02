package segstore

import (
	"github.com/segstore/segstore/codec"
	"github.com/segstore/segstore/internal/fs"
)

type options struct {
	logger     *Logger
	codec      codec.Codec
	strictArea bool
	precision  Precision
	autoFill   bool
	fsys       fs.FileSystem
}

func defaultOptions() *options {
	return &options{
		logger:     NoopLogger(),
		codec:      codec.Default,
		strictArea: false,
		precision:  PrecisionExact,
		autoFill:   false,
		fsys:       fs.Default,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Option configures Open or Save.
type Option func(*options)

// WithLogger sets the structured logger used for Open/Fetch/Save/Close
// events. The default is a no-op logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCodec sets the codec used to decode/encode the opaque metadata
// document: Save marshals the value given to EntrySet.SetMetadata with it,
// and Reader.Metadata unmarshals with it. The on-disk metadata block is a
// length-prefixed byte string holding the codec's output; both built-in
// codecs emit JSON.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithStrictArea makes the reader recompute each segment's area from its
// region masks on load and fail with ErrCorrupt on mismatch. Off by default
// because it forces a full mask decode per segment.
func WithStrictArea() Option {
	return func(o *options) { o.strictArea = true }
}

// WithPrecision sets the precision Reader.Region and Reader.ComputeOverlap
// use. Segment.Intersects takes its precision as an argument and does not
// consult this option.
func WithPrecision(p Precision) Option {
	return func(o *options) { o.precision = p }
}

// WithAutoFill makes At load every segment that is not yet materialized
// before answering, instead of returning ErrNotLoaded. LookFor does not
// depend on it: it always loads any IIDs it still needs.
func WithAutoFill() Option {
	return func(o *options) { o.autoFill = true }
}

// WithFileSystem overrides the filesystem Save and OpenRemote's local
// download step use to stage and rename files. It exists mainly so tests
// can inject fs.FaultyFS to exercise atomic-write failure paths; production
// callers should leave this unset, which uses fs.Default.
func WithFileSystem(f fs.FileSystem) Option {
	return func(o *options) {
		if f != nil {
			o.fsys = f
		}
	}
}
