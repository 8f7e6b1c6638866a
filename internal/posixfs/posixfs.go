// Package posixfs is the production storagefs.FileSystem, backed by
// ordinary POSIX files under a root directory. Files are opened
// O_CREATE|O_RDWR|O_APPEND and classified on failure; reads go through
// ReadAt so they never disturb the append position concurrent writers
// rely on, and writes go through the kernel's atomic seek-to-end-then-
// write rather than a tracked offset, so a reopened file with existing
// content is never clobbered from offset 0.
package posixfs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	nfatomic "github.com/natefinch/atomic"

	"github.com/iamNilotpal/edgestore/internal/fserrors"
	"github.com/iamNilotpal/edgestore/internal/storagefs"
)

// FS is a storagefs.FileSystem rooted at a directory on the local
// filesystem.
type FS struct {
	dir string
}

// New creates (if necessary) and returns a FS rooted at dir.
func New(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fserrors.New(fserrors.WriteError, "mkdir", dir, err)
	}
	return &FS{dir: dir}, nil
}

// Dir returns the root directory this FS is rooted at.
func (fs *FS) Dir() string { return fs.dir }

func (fs *FS) path(id string) string { return filepath.Join(fs.dir, id) }

// file is the storagefs.File handle. Append and Truncate hold a write
// mutex for the duration of one call, so a single write is never
// interleaved with another on the same handle; a header and payload
// written by separate Appends are kept together only by the caller's
// own locking. Read uses ReadAt and needs no lock.
type file struct {
	id string
	f  *os.File
	mu sync.Mutex
}

func (h *file) ID() string { return h.id }

func (fs *FS) OpenOrCreate(id string) (storagefs.File, error) {
	if id == "" {
		return nil, fserrors.New(fserrors.InvalidArguments, "OpenOrCreate", id, nil)
	}
	f, err := os.OpenFile(fs.path(id), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, classifyOpenError(err, id)
	}
	return &file{id: id, f: f}, nil
}

func (fs *FS) Read(handle storagefs.File, begin, end int64) ([]byte, error) {
	if end < begin {
		return nil, fserrors.New(fserrors.InvalidArguments, "Read", handle.ID(), nil)
	}
	if end == begin {
		return []byte{}, nil
	}

	h := handle.(*file)
	buf := make([]byte, end-begin)
	n, err := h.f.ReadAt(buf, begin)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fserrors.New(fserrors.EndOfFile, "Read", handle.ID(), err)
		}
		return nil, fserrors.New(fserrors.ReadError, "Read", handle.ID(), err)
	}
	if int64(n) < end-begin {
		return nil, fserrors.New(fserrors.EndOfFile, "Read", handle.ID(), io.ErrUnexpectedEOF)
	}
	return buf, nil
}

func (fs *FS) Append(handle storagefs.File, data []byte) error {
	h := handle.(*file)
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.f.Write(data)
	if err != nil {
		return classifyWriteError(err, handle.ID())
	}
	if n < len(data) {
		// A short write without an error is treated as a full failure:
		// the caller truncates back to its last known-good length.
		return fserrors.New(fserrors.WriteError, "Append", handle.ID(), io.ErrShortWrite)
	}
	return nil
}

func (fs *FS) Flush(handle storagefs.File) error {
	// os.File writes go straight to the kernel; there is no userspace
	// buffer to push, so this is a no-op for the POSIX implementation.
	return nil
}

func (fs *FS) Sync(handle storagefs.File) error {
	h := handle.(*file)
	if err := h.f.Sync(); err != nil {
		return fserrors.New(fserrors.WriteError, "Sync", handle.ID(), err)
	}
	return nil
}

func (fs *FS) Truncate(handle storagefs.File, length int64) error {
	h := handle.(*file)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.f.Truncate(length); err != nil {
		return fserrors.New(fserrors.WriteError, "Truncate", handle.ID(), err)
	}
	return nil
}

func (fs *FS) Rename(oldID, newID string) error {
	if err := nfatomic.ReplaceFile(fs.path(oldID), fs.path(newID)); err != nil {
		if os.IsNotExist(err) {
			return fserrors.New(fserrors.NotFound, "Rename", oldID, err)
		}
		return fserrors.New(fserrors.WriteError, "Rename", oldID, err)
	}
	return nil
}

func (fs *FS) Remove(id string) error {
	if err := os.Remove(fs.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fserrors.New(fserrors.NotFound, "Remove", id, err)
		}
		return fserrors.New(fserrors.WriteError, "Remove", id, err)
	}
	return nil
}

func (fs *FS) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fserrors.New(fserrors.ReadError, "List", fs.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

func (fs *FS) Close(handle storagefs.File) error {
	h := handle.(*file)
	if err := h.f.Close(); err != nil {
		return fserrors.New(fserrors.WriteError, "Close", handle.ID(), err)
	}
	return nil
}

func (fs *FS) Size(handle storagefs.File) (int64, error) {
	h := handle.(*file)
	info, err := h.f.Stat()
	if err != nil {
		return 0, fserrors.New(fserrors.ReadError, "Size", handle.ID(), err)
	}
	return info.Size(), nil
}

func classifyOpenError(err error, id string) error {
	if os.IsPermission(err) {
		return fserrors.New(fserrors.WriteError, "OpenOrCreate", id, err)
	}
	return fserrors.New(fserrors.ReadError, "OpenOrCreate", id, err)
}

func classifyWriteError(err error, id string) error {
	if isDiskFull(err) {
		return fserrors.New(fserrors.DiskFull, "Append", id, err)
	}
	return fserrors.New(fserrors.WriteError, "Append", id, err)
}
