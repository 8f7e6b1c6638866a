package edgestore

import (
	"strings"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/stream"
)

const (
	defaultDataDir      = "/var/lib/edgestore"
	defaultKVSubdir     = "kv"
	defaultStreamSubdir = "stream"
)

// Options configures an Instance's on-disk layout and the embedded KV
// store and stream it opens.
type Options struct {
	// DataDir is the root directory this instance's files live under.
	// The KV store and the stream are each rooted at their own
	// subdirectory of DataDir so their identifiers never collide.
	DataDir string

	// KVSubdir and StreamSubdir name the two subdirectories of DataDir.
	KVSubdir     string
	StreamSubdir string

	// Logger receives structured log calls from every component. A nil
	// Logger defaults to a production zap logger named after the service
	// passed to NewInstance.
	Logger corelog.Logger

	// KVOptions configures the client-facing key-value store.
	KVOptions []kv.OptionFunc

	// StreamOptions configures the record stream (and, transitively,
	// its own private embedded key-value store used for iterator
	// checkpoints).
	StreamOptions []stream.OptionFunc
}

// OptionFunc mutates an Options value being built up by NewInstance.
type OptionFunc func(*Options)

func defaultOptions() Options {
	return Options{DataDir: defaultDataDir, KVSubdir: defaultKVSubdir, StreamSubdir: defaultStreamSubdir}
}

// WithDataDir overrides the instance's root directory.
func WithDataDir(dir string) OptionFunc {
	return func(o *Options) {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			o.DataDir = dir
		}
	}
}

// WithLogger overrides the default production logger.
func WithLogger(log corelog.Logger) OptionFunc {
	return func(o *Options) { o.Logger = log }
}

// WithKVOptions appends options forwarded to the client-facing KV
// store.
func WithKVOptions(opts ...kv.OptionFunc) OptionFunc {
	return func(o *Options) { o.KVOptions = append(o.KVOptions, opts...) }
}

// WithStreamOptions appends options forwarded to the stream.
func WithStreamOptions(opts ...stream.OptionFunc) OptionFunc {
	return func(o *Options) { o.StreamOptions = append(o.StreamOptions, opts...) }
}
