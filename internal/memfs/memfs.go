// Package memfs is an in-memory storagefs.FileSystem, useful both for
// fast unit tests and as a real deployment option for edge processes
// that don't need durability at all (e.g. a pure cache layer in front
// of the file-backed store).
//
// It only reimplements the FileSystem contract — the KV store and
// Stream run unmodified on top of it, so recovery, CRC checks, and
// compaction all behave identically to the POSIX backend; only
// durability differs (Sync is a no-op, nothing survives process exit).
package memfs

import (
	"sort"
	"sync"

	"github.com/iamNilotpal/edgestore/internal/fserrors"
	"github.com/iamNilotpal/edgestore/internal/storagefs"
)

// FS is a storagefs.FileSystem backed entirely by process memory.
type FS struct {
	mu    sync.Mutex
	files map[string]*buffer
}

type buffer struct {
	mu   sync.Mutex
	data []byte
}

func New() *FS {
	return &FS{files: make(map[string]*buffer)}
}

type file struct {
	id string
	b  *buffer
}

func (h *file) ID() string { return h.id }

func (fs *FS) OpenOrCreate(id string) (storagefs.File, error) {
	if id == "" {
		return nil, fserrors.New(fserrors.InvalidArguments, "OpenOrCreate", id, nil)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[id]
	if !ok {
		b = &buffer{}
		fs.files[id] = b
	}
	return &file{id: id, b: b}, nil
}

func (fs *FS) Read(handle storagefs.File, begin, end int64) ([]byte, error) {
	if end < begin {
		return nil, fserrors.New(fserrors.InvalidArguments, "Read", handle.ID(), nil)
	}
	if end == begin {
		return []byte{}, nil
	}

	h := handle.(*file)
	h.b.mu.Lock()
	defer h.b.mu.Unlock()

	if end > int64(len(h.b.data)) {
		return nil, fserrors.New(fserrors.EndOfFile, "Read", handle.ID(), nil)
	}
	out := make([]byte, end-begin)
	copy(out, h.b.data[begin:end])
	return out, nil
}

func (fs *FS) Append(handle storagefs.File, data []byte) error {
	h := handle.(*file)
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	h.b.data = append(h.b.data, data...)
	return nil
}

func (fs *FS) Flush(storagefs.File) error { return nil }

// Sync is a deliberate no-op: memfs offers no durability at all, so
// there is nothing to persist to stable storage.
func (fs *FS) Sync(storagefs.File) error { return nil }

func (fs *FS) Truncate(handle storagefs.File, length int64) error {
	h := handle.(*file)
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	if length < 0 {
		return fserrors.New(fserrors.InvalidArguments, "Truncate", handle.ID(), nil)
	}
	if int64(len(h.b.data)) <= length {
		// Growing past the current length pads with zero bytes, matching
		// POSIX truncate(2) semantics.
		grown := make([]byte, length)
		copy(grown, h.b.data)
		h.b.data = grown
		return nil
	}
	h.b.data = h.b.data[:length]
	return nil
}

func (fs *FS) Rename(oldID, newID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[oldID]
	if !ok {
		return fserrors.New(fserrors.NotFound, "Rename", oldID, nil)
	}
	delete(fs.files, oldID)
	fs.files[newID] = b
	return nil
}

func (fs *FS) Remove(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[id]; !ok {
		return fserrors.New(fserrors.NotFound, "Remove", id, nil)
	}
	delete(fs.files, id)
	return nil
}

func (fs *FS) List() ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ids := make([]string, 0, len(fs.files))
	for id := range fs.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (fs *FS) Close(storagefs.File) error { return nil }

func (fs *FS) Size(handle storagefs.File) (int64, error) {
	h := handle.(*file)
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	return int64(len(h.b.data)), nil
}
