// Package storagefs defines the filesystem capability interface the KV
// store and the stream consume. Production code uses the POSIX
// implementation in internal/posixfs; tests and in-process callers that
// don't need real files use internal/memfs; test doubles that need to
// inject faults implement FileSystem directly.
package storagefs

import "github.com/iamNilotpal/edgestore/internal/fserrors"

// File is an opened handle. It carries no behavior of its own; every
// operation goes through the FileSystem that produced it.
type File interface {
	// ID returns the identifier the file was opened or created with.
	ID() string
}

// FileSystem is the set of operations the core storage components need
// from durable (or simulated) storage.
type FileSystem interface {
	// OpenOrCreate opens an existing file for read/write/append, or
	// creates a new empty one if it doesn't exist.
	OpenOrCreate(id string) (File, error)

	// Read returns exactly end-begin bytes from the file. end < begin
	// is InvalidArguments; end == begin returns an empty, non-nil
	// slice; reading past the end of the file is EndOfFile.
	Read(f File, begin, end int64) ([]byte, error)

	// Append writes data at the current end of the file. A partial
	// write is reported as a full error, never a short return.
	Append(f File, data []byte) error

	// Flush pushes any userspace buffers to the OS. Implementations
	// that don't buffer may treat this as a no-op.
	Flush(f File) error

	// Sync asks the OS to persist the file to stable storage
	// (fdatasync or equivalent). Best-effort: a failure here is still
	// reported, but callers should not expect perfect durability
	// guarantees from every backing store (e.g. memfs is never
	// durable).
	Sync(f File) error

	// Truncate sets the file's length, flushing first on buffered
	// implementations.
	Truncate(f File, length int64) error

	// Rename is atomic on POSIX; memfs simulates the same
	// all-or-nothing semantics.
	Rename(oldID, newID string) error

	// Remove deletes a file by identifier. Removing a file that
	// doesn't exist is NotFound.
	Remove(id string) error

	// List returns every identifier currently present.
	List() ([]string, error)

	// Close releases the handle. memfs treats a repeated Close as a
	// no-op; posixfs reports an error for a handle already closed.
	Close(f File) error

	// Size returns the current length of the file without a Read.
	Size(f File) (int64, error)
}

// NewInvalidArguments is a convenience constructor for the one
// validation rule every Read must enforce (end < begin). memfs and
// posixfs build the same error with fserrors.New directly.
func NewInvalidArguments(op, id string) error {
	return fserrors.New(fserrors.InvalidArguments, op, id, nil)
}
