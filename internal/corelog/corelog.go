// Package corelog defines the levelled logging contract consumed by the
// storage core (the KV store, segments, streams, and iterators) and a
// couple of small implementations of it.
//
// The core never imports a concrete logging library directly; it only
// depends on the Logger interface here, so host code can swap in zap,
// a test spy, or anything else that satisfies it.
package corelog

// Logger is a capability interface for structured, levelled logging.
// Methods take alternating key/value pairs, mirroring the SugaredLogger
// style used throughout the wider codebase.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// Nop is a Logger that discards everything. Useful as a zero-value
// default so callers never need a nil check.
type Nop struct{}

func (Nop) Debugw(string, ...any) {}
func (Nop) Infow(string, ...any)  {}
func (Nop) Warnw(string, ...any)  {}
func (Nop) Errorw(string, ...any) {}
