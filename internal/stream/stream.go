// Package stream implements an append-only record stream: an ordered
// sequence of segments holding framed records, bounded in total size by
// evicting the oldest segments, with an embedded key-value store used
// only to persist named iterator checkpoints.
package stream

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/segment"
	"github.com/iamNilotpal/edgestore/internal/storagefs"
	"github.com/iamNilotpal/edgestore/internal/streamerrors"
)

// Stream is a single ordered, size-bounded sequence of records backed
// by one or more segment files and an embedded key-value store shared
// with its persistent iterators.
//
// firstSeq, nextSeq, and currentSize are atomics so the public
// observers can be read without taking segmentsMu; every mutation
// still happens with segmentsMu held, matching the single-writer
// discipline the rest of the package assumes.
type Stream struct {
	fs  storagefs.FileSystem
	log corelog.Logger
	opt Options

	kvStore *kv.Store

	segmentsMu sync.Mutex
	segments   []*segment.Segment

	iteratorsMu sync.Mutex
	iterators   map[string]*persistentIterator

	firstSeq    atomic.Uint64
	nextSeq     atomic.Uint64
	currentSize atomic.Int64

	closed atomic.Bool
}

// OpenOrCreate opens the embedded KV store and every `*.log` segment
// present in fs, sorts them by base sequence number, and derives
// first/next sequence numbers and the current size from them.
func OpenOrCreate(fs storagefs.FileSystem, log corelog.Logger, opts ...OptionFunc) (*Stream, error) {
	if fs == nil {
		return nil, streamerrors.New(streamerrors.InvalidArguments, "OpenOrCreate", "file system implementation is required")
	}
	if log == nil {
		log = corelog.Nop{}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	kvStore, err := kv.Open(fs, log, o.KVOptions...)
	if err != nil {
		return nil, streamerrors.New(streamerrors.ReadError, "OpenOrCreate", "failed to open embedded key-value store").WithCause(err)
	}

	names, err := fs.List()
	if err != nil {
		return nil, streamerrors.Wrap("OpenOrCreate", err)
	}

	type based struct {
		base uint64
		name string
	}
	var found []based
	for _, n := range names {
		base, ok := segment.ParseFilename(n)
		if !ok {
			continue
		}
		found = append(found, based{base: base, name: n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].base < found[j].base })

	s := &Stream{fs: fs, log: log, opt: o, kvStore: kvStore, iterators: make(map[string]*persistentIterator)}

	for _, f := range found {
		seg, err := segment.Open(fs, log, f.name, f.base, o.FullCorruptionCheckOnOpen)
		if err != nil {
			return nil, err
		}
		s.segments = append(s.segments, seg)
	}

	if len(s.segments) > 0 {
		last := s.segments[len(s.segments)-1]
		highest, _ := last.HighestSequenceNumber()
		s.nextSeq.Store(highest + 1)
		s.firstSeq.Store(s.segments[0].BaseSequenceNumber())

		var size int64
		for _, seg := range s.segments {
			size += seg.TotalBytes()
		}
		s.currentSize.Store(size)
	}

	return s, nil
}

// FirstSequenceNumber returns the oldest sequence number still
// retained.
func (s *Stream) FirstSequenceNumber() uint64 { return s.firstSeq.Load() }

// NextSequenceNumber returns the sequence number the next Append will
// assign.
func (s *Stream) NextSequenceNumber() uint64 { return s.nextSeq.Load() }

// CurrentSizeBytes returns the sum of every live segment's logical
// length.
func (s *Stream) CurrentSizeBytes() int64 { return s.currentSize.Load() }

// Append writes payload as a new record, evicting or rejecting per
// opts when the stream is at capacity, and returns its assigned
// sequence number.
func (s *Stream) Append(payload []byte, timestampMs int64, opts AppendOptions) (uint64, error) {
	s.segmentsMu.Lock()
	defer s.segmentsMu.Unlock()

	maxRecordSize := s.opt.MaximumSizeBytes - segment.RecordHeaderSize
	if int64(len(payload)) > maxRecordSize {
		return 0, streamerrors.New(streamerrors.RecordTooLarge, "Append", "payload exceeds maximum size")
	}

	recordSize := segment.RecordHeaderSize + int64(len(payload))
	if s.currentSize.Load()+recordSize > s.opt.MaximumSizeBytes {
		if !opts.RemoveOldestSegmentsIfFull {
			return 0, streamerrors.New(streamerrors.StreamFull, "Append", "stream is at capacity")
		}
		for s.currentSize.Load()+recordSize > s.opt.MaximumSizeBytes && len(s.segments) > 0 {
			s.evictOldestLocked()
		}
	}

	if len(s.segments) == 0 || s.segments[len(s.segments)-1].TotalBytes() >= s.opt.MinimumSegmentSizeBytes {
		seg, err := segment.Open(s.fs, s.log, segment.FormatFilename(s.nextSeq.Load()), s.nextSeq.Load(), s.opt.FullCorruptionCheckOnOpen)
		if err != nil {
			return 0, err
		}
		s.segments = append(s.segments, seg)
	}

	seq := s.nextSeq.Add(1) - 1
	last := s.segments[len(s.segments)-1]
	written, err := last.Append(payload, timestampMs, seq, opts.SyncOnAppend)
	if err != nil {
		return 0, err
	}
	s.currentSize.Add(written)
	return seq, nil
}

// evictOldestLocked removes the oldest segment, updating
// currentSize/firstSeq. segmentsMu must be held.
func (s *Stream) evictOldestLocked() {
	oldest := s.segments[0]
	s.currentSize.Add(-oldest.TotalBytes())
	highest, _ := oldest.HighestSequenceNumber()
	oldest.Remove()

	s.segments = s.segments[1:]
	if len(s.segments) == 0 {
		s.firstSeq.Store(highest + 1)
	} else {
		s.firstSeq.Store(s.segments[0].BaseSequenceNumber())
	}
}

// Read resolves sequenceNumber to a record, walking segments in order
// and falling through to later segments when opts.MayReturnLaterRecords
// is set and the current segment can't satisfy the exact request.
func (s *Stream) Read(sequenceNumber uint64, opts segment.ReadOptions) (segment.Record, error) {
	if sequenceNumber < s.firstSeq.Load() || sequenceNumber >= s.nextSeq.Load() {
		return segment.Record{}, streamerrors.New(streamerrors.RecordNotFound, "Read", "sequence number not retained").WithSequenceNumber(int64(sequenceNumber))
	}

	s.segmentsMu.Lock()
	defer s.segmentsMu.Unlock()

	findExact := true
	for _, seg := range s.segments {
		base := seg.BaseSequenceNumber()
		highest, _ := seg.HighestSequenceNumber()
		haveExact := sequenceNumber >= base && sequenceNumber <= highest

		if sequenceNumber < base && opts.MayReturnLaterRecords {
			findExact = false
		}

		if !haveExact && findExact {
			continue
		}

		rec, err := seg.Read(sequenceNumber, opts)
		if err == nil {
			return rec, nil
		}
		if opts.MayReturnLaterRecords && (streamerrors.Matches(err, streamerrors.RecordNotFound) ||
			streamerrors.Matches(err, streamerrors.RecordDataCorrupted) ||
			streamerrors.Matches(err, streamerrors.HeaderDataCorrupted)) {
			findExact = false
			opts.SuggestedStart = 0
			continue
		}
		return segment.Record{}, err
	}

	return segment.Record{}, streamerrors.New(streamerrors.RecordNotFound, "Read", "sequence number not retained").WithSequenceNumber(int64(sequenceNumber))
}

// RemoveOlderRecords evicts every segment whose latest record
// timestamp is strictly before olderThanTimestampMs, stopping at the
// first segment that isn't entirely expired. It returns the number of
// bytes reclaimed.
func (s *Stream) RemoveOlderRecords(olderThanTimestampMs int64) int64 {
	s.segmentsMu.Lock()
	defer s.segmentsMu.Unlock()

	var removed int64
	for len(s.segments) > 0 {
		oldest := s.segments[0]
		latest, ok := oldest.LatestTimestampMs()
		if !ok || latest >= olderThanTimestampMs {
			break
		}
		removed += oldest.TotalBytes()
		s.evictOldestLocked()
	}
	return removed
}

// Close releases every open segment file handle and the embedded KV
// store's handle. Any cursor obtained before Close reports
// StreamClosed on its next dereference.
func (s *Stream) Close() error {
	s.closed.Store(true)

	s.segmentsMu.Lock()
	defer s.segmentsMu.Unlock()

	var firstErr error
	for _, seg := range s.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.kvStore.Close(); err != nil && firstErr == nil {
		firstErr = streamerrors.New(streamerrors.WriteError, "Close", "failed to close embedded key-value store").WithCause(err)
	}
	return firstErr
}
