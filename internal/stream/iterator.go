package stream

import (
	"encoding/binary"

	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/kverrors"
	"github.com/iamNilotpal/edgestore/internal/segment"
	"github.com/iamNilotpal/edgestore/internal/streamerrors"
)

// persistentIterator is the in-memory record of a named iterator's
// last-known position, backed by a checkpoint persisted in the
// embedded key-value store under its own identifier: an 8-byte
// big-endian sequence number.
type persistentIterator struct {
	identifier     string
	sequenceNumber uint64
}

// newPersistentIterator loads identifier's checkpoint from kvStore, if
// any, and seeds the iterator's position at the larger of start and
// the stored checkpoint.
func newPersistentIterator(kvStore *kv.Store, identifier string, start uint64) *persistentIterator {
	seq := start
	if stored, err := kvStore.Get(identifier); err == nil && len(stored) == 8 {
		if v := binary.BigEndian.Uint64(stored); v > seq {
			seq = v
		}
	}
	return &persistentIterator{identifier: identifier, sequenceNumber: seq}
}

// Cursor is a live handle into a Stream positioned at a sequence
// number. It holds a plain reference to the stream rather than a true
// weak pointer; dereferencing after the stream is closed reports
// StreamClosed instead of touching freed state.
type Cursor struct {
	stream         *Stream
	identifier     string
	sequenceNumber uint64
	timestampMs    int64
	hasTimestamp   bool
	byteOffsetHint int64
}

// CheckpointableRecord is a record read through a Cursor, capable of
// persisting its own sequence number as the iterator's checkpoint.
type CheckpointableRecord struct {
	segment.Record
	stream     *Stream
	identifier string
}

// Checkpoint persists this record's sequence number (plus one, the
// next unread position) as the iterator's durable checkpoint.
func (r CheckpointableRecord) Checkpoint() error {
	return r.stream.SetCheckpoint(r.identifier, r.SequenceNumber)
}

// OpenOrCreateIterator returns a Cursor for identifier. If the
// iterator is already known in memory, the cursor starts at
// max(FirstSequenceNumber, iterator's current position); otherwise a
// new persistentIterator is constructed from its stored checkpoint (if
// any) and registered.
func (s *Stream) OpenOrCreateIterator(identifier string, _ IteratorOptions) *Cursor {
	s.iteratorsMu.Lock()
	defer s.iteratorsMu.Unlock()

	first := s.firstSeq.Load()

	if it, ok := s.iterators[identifier]; ok {
		seq := it.sequenceNumber
		if first > seq {
			seq = first
		}
		return &Cursor{stream: s, identifier: identifier, sequenceNumber: seq}
	}

	it := newPersistentIterator(s.kvStore, identifier, first)
	s.iterators[identifier] = it

	seq := it.sequenceNumber
	if first > seq {
		seq = first
	}
	return &Cursor{stream: s, identifier: identifier, sequenceNumber: seq}
}

// DeleteIterator forgets identifier's in-memory state and removes its
// persisted checkpoint. A missing checkpoint is not an error.
func (s *Stream) DeleteIterator(identifier string) error {
	s.iteratorsMu.Lock()
	delete(s.iterators, identifier)
	s.iteratorsMu.Unlock()

	if err := s.kvStore.Remove(identifier); err != nil {
		if kverrors.Matches(err, kverrors.KeyNotFound) {
			return nil
		}
		return streamerrors.New(streamerrors.WriteError, "DeleteIterator", "failed to remove checkpoint").WithCause(err)
	}
	return nil
}

// SetCheckpoint persists sequenceNumber+1 (the next unread position)
// as identifier's durable checkpoint, and updates the in-memory
// iterator if one is registered.
func (s *Stream) SetCheckpoint(identifier string, sequenceNumber uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sequenceNumber+1)
	if err := s.kvStore.Put(identifier, buf); err != nil {
		return streamerrors.New(streamerrors.WriteError, "SetCheckpoint", "failed to persist checkpoint").WithCause(err)
	}

	s.iteratorsMu.Lock()
	if it, ok := s.iterators[identifier]; ok {
		it.sequenceNumber = sequenceNumber + 1
	}
	s.iteratorsMu.Unlock()
	return nil
}

// Get dereferences the cursor: it reads the record at the cursor's
// current sequence number, allowing later records to be substituted
// across a corrupted gap, and advances the cursor's byte-offset hint
// on success. Calling Get after the owning stream has closed returns
// StreamClosed.
func (c *Cursor) Get() (CheckpointableRecord, error) {
	if c.stream.closed.Load() {
		return CheckpointableRecord{}, streamerrors.New(streamerrors.StreamClosed, "Get", "stream is closed").WithSequenceNumber(int64(c.sequenceNumber))
	}

	rec, err := c.stream.Read(c.sequenceNumber, segment.ReadOptions{
		CheckForCorruption:    true,
		MayReturnLaterRecords: true,
		SuggestedStart:        c.byteOffsetHint,
	})
	if err != nil {
		return CheckpointableRecord{}, err
	}

	c.sequenceNumber = rec.SequenceNumber
	c.timestampMs = rec.TimestampMs
	c.hasTimestamp = true
	c.byteOffsetHint = rec.Offset

	return CheckpointableRecord{Record: rec, stream: c.stream, identifier: c.identifier}, nil
}

// Next pre-increments the cursor's sequence number by one and resets
// its cached timestamp, since the new position hasn't been read yet.
func (c *Cursor) Next() {
	c.sequenceNumber++
	c.hasTimestamp = false
	c.timestampMs = 0
}

// SequenceNumber returns the cursor's current position.
func (c *Cursor) SequenceNumber() uint64 { return c.sequenceNumber }

// AtEnd always reports false: streams are treated as unbounded, so a
// cursor is never considered to have reached a terminal "end" marker.
func (c *Cursor) AtEnd() bool { return false }
