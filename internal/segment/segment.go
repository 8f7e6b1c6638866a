// Package segment implements a single stream log segment: a file
// holding framed records that share a base sequence number, an
// open-time recovery scan that rebuilds the segment's extent, and the
// append/read/remove operations a Stream drives it with.
package segment

import (
	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/fserrors"
	"github.com/iamNilotpal/edgestore/internal/framing"
	"github.com/iamNilotpal/edgestore/internal/storagefs"
	"github.com/iamNilotpal/edgestore/internal/streamerrors"
)

// ReadOptions controls how Read resolves a sequence number against the
// records actually present in the segment.
type ReadOptions struct {
	// CheckForCorruption verifies the payload's CRC before returning it.
	CheckForCorruption bool

	// MayReturnLaterRecords allows Read to return the first record at
	// or after sequenceNumber instead of failing when the exact
	// sequence number was never written (e.g. it fell in a gap left by
	// a corrupted record).
	MayReturnLaterRecords bool

	// SuggestedStart is a byte-offset hint for where to begin scanning;
	// 0 means start from the beginning of the file.
	SuggestedStart int64
}

// DefaultReadOptions matches the documented defaults: corruption is
// checked, later records are not substituted, and scanning starts from
// the beginning of the file.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{CheckForCorruption: true}
}

// Record is a single decoded stream record, with its absolute sequence
// number and the byte offsets its header and payload start at.
type Record struct {
	SequenceNumber uint64
	TimestampMs    int64
	Payload        []byte

	// Offset is the byte position the record's header starts at —
	// the natural SuggestedStart hint for a subsequent Read.
	Offset int64

	// PayloadOffset is the byte position the record's payload starts
	// at, informational only.
	PayloadOffset int64
}

// Segment owns exactly one log file and the records appended to it.
// Not safe for concurrent use; the owning Stream serializes access.
type Segment struct {
	fs  storagefs.FileSystem
	log corelog.Logger

	file     storagefs.File
	filename string

	base    uint64
	highest uint64
	hasAny  bool

	latestTimestampMs int64
	totalBytes        int64
}

// Open opens (or creates) the segment file identified by filename,
// recovering its extent by scanning records from offset 0. fullCheck
// additionally verifies every record's payload CRC during recovery.
func Open(fs storagefs.FileSystem, log corelog.Logger, filename string, base uint64, fullCheck bool) (*Segment, error) {
	if log == nil {
		log = corelog.Nop{}
	}

	file, err := fs.OpenOrCreate(filename)
	if err != nil {
		return nil, streamerrors.Wrap("Open", err)
	}

	s := &Segment{fs: fs, log: log, file: file, filename: filename, base: base}
	if err := s.recover(fullCheck); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Segment) recover(fullCheck bool) error {
	var off int64

	size, err := s.fs.Size(s.file)
	if err != nil {
		return streamerrors.Wrap("Open", err)
	}

	for {
		headerBuf, err := s.fs.Read(s.file, off, off+recordHeaderSize)
		if err != nil {
			if fserrors.CodeOf(err) == fserrors.EndOfFile {
				break
			}
			return streamerrors.Wrap("Open", err)
		}

		h, ok := decodeRecordHeader(headerBuf)
		if !ok {
			s.log.Warnw("segment: discarding record with invalid header during recovery", "offset", off, "segment", s.filename)
			break
		}

		// A record whose payload runs past the end of the file is a torn
		// tail: stop here so the truncate below drops it.
		if off+h.recordSize() > size {
			break
		}

		if fullCheck {
			payloadBuf, err := s.fs.Read(s.file, off+recordHeaderSize, off+h.recordSize())
			if err != nil {
				if fserrors.CodeOf(err) == fserrors.EndOfFile {
					break
				}
				return streamerrors.Wrap("Open", err)
			}
			if int64(framing.CRC32(recordCRCInput(h.timestamp, h.payloadLength, payloadBuf)...)) != h.crc {
				s.log.Warnw("segment: discarding record with invalid payload CRC during recovery", "offset", off, "segment", s.filename)
				break
			}
		}

		abs := s.base + uint64(h.relativeSequenceNumber)
		if !s.hasAny || abs > s.highest {
			s.highest = abs
			s.hasAny = true
		}
		s.latestTimestampMs = h.timestamp

		off += h.recordSize()
	}

	if err := s.fs.Truncate(s.file, off); err != nil {
		return streamerrors.Wrap("Open", err)
	}
	s.totalBytes = off
	return nil
}

// BaseSequenceNumber returns the segment's fixed base.
func (s *Segment) BaseSequenceNumber() uint64 { return s.base }

// HighestSequenceNumber returns the sequence number of the last valid
// record, and whether the segment holds any records at all.
func (s *Segment) HighestSequenceNumber() (uint64, bool) { return s.highest, s.hasAny }

// TotalBytes returns the segment's logical length after recovery or
// the last successful append.
func (s *Segment) TotalBytes() int64 { return s.totalBytes }

// LatestTimestampMs returns the timestamp of the last valid record,
// and whether the segment holds any records at all.
func (s *Segment) LatestTimestampMs() (int64, bool) { return s.latestTimestampMs, s.hasAny }

// Filename returns the on-disk identifier this segment was opened
// with.
func (s *Segment) Filename() string { return s.filename }

// Append writes a new record for sequenceNumber, which must be
// expressible as base+relative in an int32. On any append, flush, or
// sync failure the file is truncated back to TotalBytes() and the
// segment's counters are left unchanged.
func (s *Segment) Append(payload []byte, timestampMs int64, sequenceNumber uint64, sync bool) (int64, error) {
	rel := int64(sequenceNumber) - int64(s.base)

	crc := int64(framing.CRC32(recordCRCInput(timestampMs, int32(len(payload)), payload)...))
	h := recordHeader{
		magic:                  recordMagic,
		relativeSequenceNumber: int32(rel),
		bytePosition:           int32(s.totalBytes),
		crc:                    crc,
		timestamp:              timestampMs,
		payloadLength:          int32(len(payload)),
	}

	if err := s.fs.Append(s.file, encodeRecordHeader(h)); err != nil {
		return 0, s.rollback(err)
	}
	if len(payload) > 0 {
		if err := s.fs.Append(s.file, payload); err != nil {
			return 0, s.rollback(err)
		}
	}
	if err := s.fs.Flush(s.file); err != nil {
		return 0, s.rollback(err)
	}
	if sync {
		if err := s.fs.Sync(s.file); err != nil {
			return 0, s.rollback(err)
		}
	}

	written := h.recordSize()
	s.totalBytes += written
	if !s.hasAny || sequenceNumber > s.highest {
		s.highest = sequenceNumber
		s.hasAny = true
	}
	s.latestTimestampMs = timestampMs
	return written, nil
}

func (s *Segment) rollback(cause error) error {
	if err := s.fs.Truncate(s.file, s.totalBytes); err != nil {
		s.log.Warnw("segment: failed to truncate after append failure", "error", err, "segment", s.filename)
	}
	return streamerrors.Wrap("Append", cause)
}

// Read resolves sequenceNumber against this segment's records per
// opts, returning RecordNotFound, HeaderDataCorrupted, or
// RecordDataCorrupted as appropriate.
func (s *Segment) Read(sequenceNumber uint64, opts ReadOptions) (Record, error) {
	off := opts.SuggestedStart
	expectedRel := int64(sequenceNumber) - int64(s.base)

	headerBuf, err := s.fs.Read(s.file, off, off+recordHeaderSize)
	if err != nil && off != 0 {
		off = 0
		headerBuf, err = s.fs.Read(s.file, off, off+recordHeaderSize)
	}

	for {
		if err != nil {
			if fserrors.CodeOf(err) == fserrors.EndOfFile {
				return Record{}, streamerrors.New(streamerrors.RecordNotFound, "Read", "sequence number not present").WithSequenceNumber(int64(sequenceNumber))
			}
			return Record{}, streamerrors.Wrap("Read", err)
		}

		h, ok := decodeRecordHeader(headerBuf)
		if !ok {
			return Record{}, streamerrors.New(streamerrors.HeaderDataCorrupted, "Read", "record header magic mismatch").WithSequenceNumber(int64(sequenceNumber))
		}

		if h.relativeSequenceNumber > int32(expectedRel) && !opts.MayReturnLaterRecords {
			return Record{}, streamerrors.New(streamerrors.RecordNotFound, "Read", "sequence number not present").WithSequenceNumber(int64(sequenceNumber))
		}

		if h.relativeSequenceNumber == int32(expectedRel) || (h.relativeSequenceNumber > int32(expectedRel) && opts.MayReturnLaterRecords) {
			payloadStart := off + recordHeaderSize
			payload, err := s.fs.Read(s.file, payloadStart, payloadStart+int64(h.payloadLength))
			if err != nil {
				return Record{}, streamerrors.Wrap("Read", err)
			}
			if opts.CheckForCorruption {
				if int64(framing.CRC32(recordCRCInput(h.timestamp, h.payloadLength, payload)...)) != h.crc {
					return Record{}, streamerrors.New(streamerrors.RecordDataCorrupted, "Read", "payload CRC mismatch").WithSequenceNumber(int64(sequenceNumber))
				}
			}
			return Record{
				SequenceNumber: s.base + uint64(h.relativeSequenceNumber),
				TimestampMs:    h.timestamp,
				Payload:        payload,
				Offset:         off,
				PayloadOffset:  payloadStart,
			}, nil
		}

		off += h.recordSize()
		headerBuf, err = s.fs.Read(s.file, off, off+recordHeaderSize)
	}
}

// Remove closes and deletes the segment's file. A failure to remove
// is logged but never returned: the segment is considered gone from
// the stream's point of view regardless.
func (s *Segment) Remove() {
	if err := s.fs.Close(s.file); err != nil {
		s.log.Warnw("segment: failed to close before remove", "error", err, "segment", s.filename)
	}
	if err := s.fs.Remove(s.filename); err != nil {
		s.log.Warnw("segment: failed to remove file", "error", err, "segment", s.filename)
	}
}

// Close releases the segment's file handle without removing it.
func (s *Segment) Close() error {
	if err := s.fs.Close(s.file); err != nil {
		return streamerrors.Wrap("Close", err)
	}
	return nil
}
