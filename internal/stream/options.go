package stream

import (
	"strings"

	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/segment"
)

const (
	defaultMinimumSegmentSizeBytes = 16 * 1024 * 1024
	defaultMaximumSizeBytes        = 128 * 1024 * 1024
)

// Options configures a Stream's segment sizing, retention, and the
// embedded key-value store it shares with its persistent iterators.
type Options struct {
	// Identifier names the stream's directory-like namespace within
	// the shared FileSystem; segment filenames and the embedded KV
	// identifier are not otherwise qualified by it, so it exists
	// purely for the caller's own bookkeeping across multiple streams
	// sharing one FileSystem. Trimmed; empty means "default".
	Identifier string

	// MinimumSegmentSizeBytes is the size a segment must reach before
	// append starts a new one.
	MinimumSegmentSizeBytes int64

	// MaximumSizeBytes bounds the stream's total size across all live
	// segments; append either evicts the oldest segments or fails,
	// depending on AppendOptions.RemoveOldestSegmentsIfFull.
	MaximumSizeBytes int64

	// FullCorruptionCheckOnOpen verifies every record's payload CRC
	// during the open-time recovery scan of every segment.
	FullCorruptionCheckOnOpen bool

	// KVOptions configures the embedded key-value store used for
	// persistent iterator checkpoints.
	KVOptions []kv.OptionFunc
}

// OptionFunc mutates an Options value being built up by OpenOrCreate.
type OptionFunc func(*Options)

func defaultOptions() Options {
	return Options{
		MinimumSegmentSizeBytes: defaultMinimumSegmentSizeBytes,
		MaximumSizeBytes:        defaultMaximumSizeBytes,
	}
}

// WithIdentifier sets the caller-facing name for this stream.
func WithIdentifier(id string) OptionFunc {
	return func(o *Options) {
		id = strings.TrimSpace(id)
		if id != "" {
			o.Identifier = id
		}
	}
}

// WithMinimumSegmentSizeBytes overrides the segment roll-over
// threshold. Values not greater than the record header size are
// rejected as nonsensical and ignored.
func WithMinimumSegmentSizeBytes(n int64) OptionFunc {
	return func(o *Options) {
		if n > segment.RecordHeaderSize {
			o.MinimumSegmentSizeBytes = n
		}
	}
}

// WithMaximumSizeBytes overrides the stream's total retained size.
func WithMaximumSizeBytes(n int64) OptionFunc {
	return func(o *Options) {
		if n > segment.RecordHeaderSize {
			o.MaximumSizeBytes = n
		}
	}
}

// WithFullCorruptionCheckOnOpen enables a full payload-CRC scan during
// every segment's open-time recovery.
func WithFullCorruptionCheckOnOpen(enabled bool) OptionFunc {
	return func(o *Options) { o.FullCorruptionCheckOnOpen = enabled }
}

// WithKVOptions appends options forwarded to the embedded KV store.
func WithKVOptions(opts ...kv.OptionFunc) OptionFunc {
	return func(o *Options) { o.KVOptions = append(o.KVOptions, opts...) }
}

// AppendOptions controls a single append call.
type AppendOptions struct {
	// SyncOnAppend calls fsync (or equivalent) after writing the
	// record.
	SyncOnAppend bool

	// RemoveOldestSegmentsIfFull evicts the oldest segments to make
	// room when the stream is at capacity, instead of failing with
	// StreamFull.
	RemoveOldestSegmentsIfFull bool
}

// DefaultAppendOptions matches §6.4: sync disabled, eviction enabled.
func DefaultAppendOptions() AppendOptions {
	return AppendOptions{SyncOnAppend: false, RemoveOldestSegmentsIfFull: true}
}

// IteratorOptions is reserved for future per-iterator configuration;
// it carries no fields today.
type IteratorOptions struct{}
