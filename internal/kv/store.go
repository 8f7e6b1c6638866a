// Package kv implements a log-structured, append-only key-value store:
// a single active file holding header-prefixed entries, an in-memory
// key->offset index rebuilt by scanning that file at open, and
// whole-file shadow compaction to reclaim space from overwrites and
// tombstones.
package kv

import (
	"sync"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/fserrors"
	"github.com/iamNilotpal/edgestore/internal/framing"
	"github.com/iamNilotpal/edgestore/internal/kverrors"
	"github.com/iamNilotpal/edgestore/internal/storagefs"
)

const maxKeyLength = 65535
const maxValueLength = 1 << 31

// Store is a single log-structured key-value file with an in-memory
// index. Every public method is serialized by mu; different Stores are
// independent.
type Store struct {
	mu  sync.Mutex
	fs  storagefs.FileSystem
	log corelog.Logger
	opt Options

	file storagefs.File
	idx  *indexState

	bytePosition int64
	addedBytes   int64
}

// Open validates options, performs crash-recovery swap, and scans the
// active file to rebuild the index.
func Open(fs storagefs.FileSystem, log corelog.Logger, opts ...OptionFunc) (*Store, error) {
	if fs == nil {
		return nil, kverrors.New(kverrors.InvalidArguments, "Open", "file system implementation is required")
	}
	if log == nil {
		log = corelog.Nop{}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Identifier == "" {
		return nil, kverrors.New(kverrors.InvalidArguments, "Open", "identifier must not be empty")
	}

	shadowName := o.Identifier + "s"
	names, err := fs.List()
	if err != nil {
		return nil, kverrors.Wrap("Open", err)
	}

	hasIdentifier, hasShadow := false, false
	for _, n := range names {
		switch n {
		case o.Identifier:
			hasIdentifier = true
		case shadowName:
			hasShadow = true
		}
	}

	// Crash-recovery swap: a shadow left over from a compaction that
	// died partway through is either stale (identifier exists; discard
	// it) or the only surviving copy (identifier is gone; promote it).
	if hasIdentifier {
		if hasShadow {
			if err := fs.Remove(shadowName); err != nil {
				return nil, kverrors.Wrap("Open", err)
			}
		}
	} else if hasShadow {
		if err := fs.Rename(shadowName, o.Identifier); err != nil {
			return nil, kverrors.Wrap("Open", err)
		}
	}

	file, err := fs.OpenOrCreate(o.Identifier)
	if err != nil {
		return nil, kverrors.Wrap("Open", err)
	}

	s := &Store{fs: fs, log: log, opt: o, file: file}
	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// recover scans the active file from offset 0, rebuilding the index and
// truncating any unreadable or corrupted tail.
func (s *Store) recover() error {
	idx := newIndexState()
	var off, added int64

	size, err := s.fs.Size(s.file)
	if err != nil {
		return kverrors.Wrap("Open", err)
	}

	for {
		headerBuf, err := s.fs.Read(s.file, off, off+headerSize)
		if err != nil {
			if fserrors.CodeOf(err) == fserrors.EndOfFile {
				break
			}
			return kverrors.Wrap("Open", err)
		}

		h, ok := decodeHeader(headerBuf)
		if !ok {
			s.log.Warnw("kv: discarding entry with invalid header during recovery", "offset", off)
			break
		}

		// An entry whose key or value runs past the end of the file is a
		// torn tail: stop here so the truncate below drops it.
		if off+h.entrySize() > size {
			break
		}

		keyBuf, err := s.fs.Read(s.file, off+headerSize, off+headerSize+int64(h.keyLength))
		if err != nil {
			if fserrors.CodeOf(err) == fserrors.EndOfFile {
				break
			}
			return kverrors.Wrap("Open", err)
		}

		if s.opt.FullCorruptionCheckOnOpen {
			valueBuf, err := s.fs.Read(
				s.file,
				off+headerSize+int64(h.keyLength),
				off+h.entrySize(),
			)
			if err != nil {
				if fserrors.CodeOf(err) == fserrors.EndOfFile {
					break
				}
				return kverrors.Wrap("Open", err)
			}
			if framing.CRC32(crcInput(h.flags, h.keyLength, h.valueLength, valueBuf)...) != h.crc32 {
				s.log.Warnw("kv: discarding entry with invalid value CRC during recovery", "offset", off)
				break
			}
		}

		key := string(keyBuf)
		entrySize := h.entrySize()
		if h.isTombstone() {
			if idx.remove(key) {
				added += entrySize
			}
		} else if idx.set(key, off) {
			added += entrySize
		}

		off += entrySize
	}

	if err := s.fs.Truncate(s.file, off); err != nil {
		return kverrors.Wrap("Open", err)
	}

	s.idx = idx
	s.bytePosition = off
	s.addedBytes = added
	return nil
}

// Put appends a new entry for key, or overwrites the offset the index
// points to if key already exists. On any failure the file is
// truncated back to its pre-call length and the index is left
// untouched.
func (s *Store) Put(key string, value []byte) error {
	if key == "" {
		return kverrors.New(kverrors.InvalidArguments, "Put", "key must not be empty")
	}
	if len(key) >= maxKeyLength {
		return kverrors.New(kverrors.InvalidArguments, "Put", "Key length exceeds maximum").WithKey(key)
	}
	if len(value) >= maxValueLength {
		return kverrors.New(kverrors.InvalidArguments, "Put", "Value length exceeds maximum").WithKey(key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	crc := framing.CRC32(crcInput(0, uint16(len(key)), uint32(len(value)), value)...)
	h := entryHeader{magic: magicAndVersion, flags: 0, keyLength: uint16(len(key)), crc32: crc, valueLength: uint32(len(value))}

	offset := s.bytePosition
	if err := s.writeEntry("Put", h, []byte(key), value); err != nil {
		return err
	}

	existed := s.idx.set(key, offset)
	s.bytePosition += h.entrySize()
	if existed {
		s.addedBytes += h.entrySize()
	}

	return s.maybeCompact()
}

// Get returns the current value for key, verifying its CRC.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, ok := s.idx.get(key)
	if !ok {
		return nil, kverrors.New(kverrors.KeyNotFound, "Get", "key not found").WithKey(key)
	}

	headerBuf, err := s.fs.Read(s.file, offset, offset+headerSize)
	if err != nil {
		return nil, kverrors.Wrap("Get", err).WithKey(key)
	}
	h, ok := decodeHeader(headerBuf)
	if !ok {
		return nil, kverrors.New(kverrors.HeaderCorrupted, "Get", "header magic mismatch").WithKey(key).WithOffset(offset)
	}

	valueStart := offset + headerSize + int64(h.keyLength)
	value, err := s.fs.Read(s.file, valueStart, valueStart+int64(h.valueLength))
	if err != nil {
		return nil, kverrors.Wrap("Get", err).WithKey(key)
	}

	if framing.CRC32(crcInput(h.flags, h.keyLength, h.valueLength, value)...) != h.crc32 {
		return nil, kverrors.New(kverrors.DataCorrupted, "Get", "value CRC mismatch").WithKey(key).WithOffset(offset)
	}
	return value, nil
}

// Remove erases key from the index and appends a tombstone entry.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldOffset, ok := s.idx.get(key)
	if !ok {
		return kverrors.New(kverrors.KeyNotFound, "Remove", "key not found").WithKey(key)
	}
	s.idx.remove(key)

	crc := framing.CRC32(crcInput(flagTombstone, uint16(len(key)), 0, nil)...)
	h := entryHeader{magic: magicAndVersion, flags: flagTombstone, keyLength: uint16(len(key)), crc32: crc, valueLength: 0}

	if err := s.writeEntry("Remove", h, []byte(key), nil); err != nil {
		// Restore the index to its pre-call state.
		s.idx.set(key, oldOffset)
		return err
	}

	s.bytePosition += h.entrySize()
	s.addedBytes += h.entrySize()

	return s.maybeCompact()
}

// ListKeys returns a snapshot of every live key, in insertion order.
func (s *Store) ListKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.keys()
}

// CurrentSizeBytes returns the active file's logical length.
func (s *Store) CurrentSizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytePosition
}

// Close releases the active file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Close(s.file); err != nil {
		return kverrors.Wrap("Close", err)
	}
	return nil
}

// Compact rewrites the active file so it contains exactly one live
// entry per key, in index order, discarding tombstones and
// unreferenced bytes.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *Store) maybeCompact() error {
	if s.opt.CompactAfter > 0 && s.addedBytes > int64(s.opt.CompactAfter) {
		return s.compactLocked()
	}
	return nil
}

func (s *Store) compactLocked() error {
	shadowName := s.opt.Identifier + "s"

	if err := s.fs.Remove(shadowName); err != nil && fserrors.CodeOf(err) != fserrors.NotFound {
		return kverrors.Wrap("Compact", err)
	}

	shadow, err := s.fs.OpenOrCreate(shadowName)
	if err != nil {
		return kverrors.Wrap("Compact", err)
	}

	newIdx := newIndexState()
	var shadowOffset int64

	for _, key := range s.idx.keys() {
		oldOffset, _ := s.idx.get(key)

		headerBuf, err := s.fs.Read(s.file, oldOffset, oldOffset+headerSize)
		if err != nil {
			s.fs.Close(shadow)
			s.fs.Remove(shadowName)
			return kverrors.Wrap("Compact", err)
		}
		h, ok := decodeHeader(headerBuf)
		if !ok {
			s.log.Warnw("kv: compaction dropping key with corrupted header", "key", key)
			continue
		}

		rest, err := s.fs.Read(s.file, oldOffset+headerSize, oldOffset+h.entrySize())
		if err != nil {
			s.fs.Close(shadow)
			s.fs.Remove(shadowName)
			return kverrors.Wrap("Compact", err)
		}
		value := rest[h.keyLength:]
		if framing.CRC32(crcInput(h.flags, h.keyLength, h.valueLength, value)...) != h.crc32 {
			s.log.Warnw("kv: compaction dropping key with corrupted value", "key", key)
			continue
		}

		entry := append(encodeHeader(h), rest...)
		if err := s.fs.Append(shadow, entry); err != nil {
			s.fs.Close(shadow)
			s.fs.Remove(shadowName)
			return kverrors.Wrap("Compact", err)
		}

		newIdx.set(key, shadowOffset)
		shadowOffset += h.entrySize()
	}

	if err := s.fs.Flush(shadow); err != nil {
		return kverrors.Wrap("Compact", err)
	}
	if err := s.fs.Sync(shadow); err != nil {
		return kverrors.Wrap("Compact", err)
	}
	if err := s.fs.Close(s.file); err != nil {
		return kverrors.Wrap("Compact", err)
	}
	if err := s.fs.Close(shadow); err != nil {
		return kverrors.Wrap("Compact", err)
	}

	if err := s.fs.Rename(shadowName, s.opt.Identifier); err != nil {
		return kverrors.Wrap("Compact", err)
	}

	file, err := s.fs.OpenOrCreate(s.opt.Identifier)
	if err != nil {
		return kverrors.Wrap("Compact", err)
	}

	s.file = file
	s.idx = newIdx
	s.bytePosition = shadowOffset
	s.addedBytes = 0
	return nil
}

// writeEntry appends header, key, and value, flushing after each. Any
// failure truncates the file back to bytePosition (the length before
// this call began) and leaves the index untouched. op labels the
// resulting error with the caller's operation name (Put or Remove).
func (s *Store) writeEntry(op string, h entryHeader, key, value []byte) error {
	if err := s.appendAndFlush(encodeHeader(h)); err != nil {
		return s.rollback(op, err)
	}
	if err := s.appendAndFlush(key); err != nil {
		return s.rollback(op, err)
	}
	if len(value) > 0 {
		if err := s.appendAndFlush(value); err != nil {
			return s.rollback(op, err)
		}
	}
	return nil
}

func (s *Store) appendAndFlush(b []byte) error {
	if err := s.fs.Append(s.file, b); err != nil {
		return err
	}
	return s.fs.Flush(s.file)
}

func (s *Store) rollback(op string, cause error) error {
	if err := s.fs.Truncate(s.file, s.bytePosition); err != nil {
		s.log.Warnw("kv: failed to truncate after write failure", "error", err)
	}
	return kverrors.Wrap(op, cause)
}
