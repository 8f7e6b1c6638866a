// Package storagefstest provides a fault-injecting storagefs.FileSystem
// spy, used by KV and stream tests that exercise partial-write and
// flush-failure recovery paths that are awkward to trigger against a
// real filesystem.
package storagefstest

import (
	"sync"

	"github.com/iamNilotpal/edgestore/internal/storagefs"
)

// Spy wraps a real storagefs.FileSystem and can be told to fail the
// next N calls to a given method.
type Spy struct {
	inner storagefs.FileSystem

	mu      sync.Mutex
	calls   []string
	failing map[string]int // method -> remaining failures
	failErr map[string]error
}

func Wrap(inner storagefs.FileSystem) *Spy {
	return &Spy{inner: inner, failing: make(map[string]int), failErr: make(map[string]error)}
}

// FailNext arranges for the next n calls to method to return err
// instead of delegating to the wrapped FileSystem.
func (s *Spy) FailNext(method string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[method] = n
	s.failErr[method] = err
}

func (s *Spy) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Spy) shouldFail(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method)
	if n := s.failing[method]; n > 0 {
		s.failing[method] = n - 1
		return s.failErr[method]
	}
	return nil
}

func (s *Spy) OpenOrCreate(id string) (storagefs.File, error) {
	if err := s.shouldFail("OpenOrCreate"); err != nil {
		return nil, err
	}
	return s.inner.OpenOrCreate(id)
}

func (s *Spy) Read(f storagefs.File, begin, end int64) ([]byte, error) {
	if err := s.shouldFail("Read"); err != nil {
		return nil, err
	}
	return s.inner.Read(f, begin, end)
}

func (s *Spy) Append(f storagefs.File, data []byte) error {
	if err := s.shouldFail("Append"); err != nil {
		return err
	}
	return s.inner.Append(f, data)
}

func (s *Spy) Flush(f storagefs.File) error {
	if err := s.shouldFail("Flush"); err != nil {
		return err
	}
	return s.inner.Flush(f)
}

func (s *Spy) Sync(f storagefs.File) error {
	if err := s.shouldFail("Sync"); err != nil {
		return err
	}
	return s.inner.Sync(f)
}

func (s *Spy) Truncate(f storagefs.File, length int64) error {
	if err := s.shouldFail("Truncate"); err != nil {
		return err
	}
	return s.inner.Truncate(f, length)
}

func (s *Spy) Rename(oldID, newID string) error {
	if err := s.shouldFail("Rename"); err != nil {
		return err
	}
	return s.inner.Rename(oldID, newID)
}

func (s *Spy) Remove(id string) error {
	if err := s.shouldFail("Remove"); err != nil {
		return err
	}
	return s.inner.Remove(id)
}

func (s *Spy) List() ([]string, error) {
	if err := s.shouldFail("List"); err != nil {
		return nil, err
	}
	return s.inner.List()
}

func (s *Spy) Close(f storagefs.File) error {
	if err := s.shouldFail("Close"); err != nil {
		return err
	}
	return s.inner.Close(f)
}

func (s *Spy) Size(f storagefs.File) (int64, error) {
	if err := s.shouldFail("Size"); err != nil {
		return 0, err
	}
	return s.inner.Size(f)
}
