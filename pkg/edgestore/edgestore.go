// Package edgestore is the client-facing facade: a single Instance pairs
// a durable key-value store with a durable record stream, each rooted
// at its own subdirectory so their on-disk identifiers never collide.
package edgestore

import (
	"context"
	"path/filepath"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/posixfs"
	"github.com/iamNilotpal/edgestore/internal/segment"
	"github.com/iamNilotpal/edgestore/internal/stream"
)

// Instance is the single entry point clients use: it owns a key-value
// store and a record stream, and the logger both were opened with.
type Instance struct {
	log    corelog.Logger
	kv     *kv.Store
	stream *stream.Stream
}

// NewInstance opens (or creates) an Instance under the configured data
// directory. service names the logger so log lines from multiple
// instances in the same process can be told apart.
func NewInstance(ctx context.Context, service string, opts ...OptionFunc) (*Instance, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.Logger
	if log == nil {
		zapLog, err := corelog.NewDefaultZap(service)
		if err != nil {
			return nil, err
		}
		log = zapLog
	}

	kvFS, err := posixfs.New(filepath.Join(o.DataDir, o.KVSubdir))
	if err != nil {
		return nil, err
	}
	kvStore, err := kv.Open(kvFS, log, o.KVOptions...)
	if err != nil {
		return nil, err
	}

	streamFS, err := posixfs.New(filepath.Join(o.DataDir, o.StreamSubdir))
	if err != nil {
		return nil, err
	}
	st, err := stream.OpenOrCreate(streamFS, log, o.StreamOptions...)
	if err != nil {
		return nil, err
	}

	return &Instance{log: log, kv: kvStore, stream: st}, nil
}

// Set stores value under key, overwriting any prior value.
func (i *Instance) Set(ctx context.Context, key string, value []byte) error {
	return i.kv.Put(key, value)
}

// Get returns the current value stored under key.
func (i *Instance) Get(ctx context.Context, key string) ([]byte, error) {
	return i.kv.Get(key)
}

// Delete removes key and its value.
func (i *Instance) Delete(ctx context.Context, key string) error {
	return i.kv.Remove(key)
}

// Keys returns a snapshot of every live key in the key-value store.
func (i *Instance) Keys(ctx context.Context) []string {
	return i.kv.ListKeys()
}

// Compact reclaims space in the key-value store left behind by
// overwrites and deletions.
func (i *Instance) Compact(ctx context.Context) error {
	return i.kv.Compact()
}

// Append writes payload to the stream and returns its assigned
// sequence number.
func (i *Instance) Append(ctx context.Context, payload []byte, timestampMs int64) (uint64, error) {
	return i.stream.Append(payload, timestampMs, stream.DefaultAppendOptions())
}

// ReadRecord returns the record at sequenceNumber.
func (i *Instance) ReadRecord(ctx context.Context, sequenceNumber uint64) (segment.Record, error) {
	return i.stream.Read(sequenceNumber, segment.DefaultReadOptions())
}

// RemoveOlderRecords evicts stream segments entirely older than
// olderThanTimestampMs, returning the number of bytes reclaimed.
func (i *Instance) RemoveOlderRecords(ctx context.Context, olderThanTimestampMs int64) int64 {
	return i.stream.RemoveOlderRecords(olderThanTimestampMs)
}

// Subscribe returns a durable, checkpointable cursor over the stream,
// identified by name. Reopening with the same name resumes from the
// last checkpoint set.
func (i *Instance) Subscribe(ctx context.Context, name string) *stream.Cursor {
	return i.stream.OpenOrCreateIterator(name, stream.IteratorOptions{})
}

// Unsubscribe forgets the named cursor's checkpoint.
func (i *Instance) Unsubscribe(ctx context.Context, name string) error {
	return i.stream.DeleteIterator(name)
}

// FirstSequenceNumber returns the oldest sequence number still
// retained by the stream.
func (i *Instance) FirstSequenceNumber() uint64 { return i.stream.FirstSequenceNumber() }

// NextSequenceNumber returns the sequence number the next Append will
// assign.
func (i *Instance) NextSequenceNumber() uint64 { return i.stream.NextSequenceNumber() }

// StreamSizeBytes returns the stream's current total size on disk.
func (i *Instance) StreamSizeBytes() int64 { return i.stream.CurrentSizeBytes() }

// KVSizeBytes returns the key-value store's current size on disk.
func (i *Instance) KVSizeBytes() int64 { return i.kv.CurrentSizeBytes() }

// Close releases both the key-value store's and the stream's file
// handles.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if err := i.kv.Close(); err != nil {
		firstErr = err
	}
	if err := i.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
