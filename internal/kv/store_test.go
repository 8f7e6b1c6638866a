package kv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/kv"
	"github.com/iamNilotpal/edgestore/internal/kverrors"
	"github.com/iamNilotpal/edgestore/internal/memfs"
	"github.com/iamNilotpal/edgestore/internal/posixfs"
)

func TestHappyPath(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()

	store, err := kv.Open(fs, log, kv.WithCompactAfter(0))
	require.NoError(t, err)

	require.NoError(t, store.Put("key", []byte("value")))
	require.Equal(t, []string{"key"}, store.ListKeys())

	v, err := store.Get("key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	require.NoError(t, store.Compact())

	require.NoError(t, store.Close())

	store2, err := kv.Open(fs, log, kv.WithCompactAfter(0))
	require.NoError(t, err)
	v, err = store2.Get("key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
}

// TestPosixReopenThenPutPreservesExistingEntries runs the happy-path
// reopen scenario against the real POSIX filesystem instead of memfs.
// A process restart reopens the active file via fs.OpenOrCreate on an
// already non-empty file; a Put right after must append past the
// existing entries, not overwrite them from offset 0.
func TestPosixReopenThenPutPreservesExistingEntries(t *testing.T) {
	log := corelog.NewSpy()
	fs, err := posixfs.New(t.TempDir())
	require.NoError(t, err)

	store, err := kv.Open(fs, log, kv.WithIdentifier("m"))
	require.NoError(t, err)
	require.NoError(t, store.Put("a", []byte("v1")))
	require.NoError(t, store.Close())

	store2, err := kv.Open(fs, log, kv.WithIdentifier("m"))
	require.NoError(t, err)
	require.NoError(t, store2.Put("b", []byte("v2")))

	va, err := store2.Get("a")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), va)

	vb, err := store2.Get("b")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), vb)
}

// TestPosixPutImmediatelyAfterCompact runs compactLocked's rename +
// reopen sequence against the real POSIX filesystem: Compact renames
// the shadow file over the active identifier and reopens it via
// fs.OpenOrCreate, and a Put right after must append past the
// just-compacted content rather than overwrite it.
func TestPosixPutImmediatelyAfterCompact(t *testing.T) {
	fs, err := posixfs.New(t.TempDir())
	require.NoError(t, err)

	store, err := kv.Open(fs, corelog.NewSpy(), kv.WithIdentifier("m"))
	require.NoError(t, err)

	require.NoError(t, store.Put("a", []byte("v1")))
	require.NoError(t, store.Put("a", []byte("v2")))
	require.NoError(t, store.Compact())

	require.NoError(t, store.Put("b", []byte("v3")))

	v, err := store.Get("a")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	v, err = store.Get("b")
	require.NoError(t, err)
	require.Equal(t, []byte("v3"), v)
}

func TestArgumentValidation(t *testing.T) {
	fs := memfs.New()
	store, err := kv.Open(fs, corelog.NewSpy())
	require.NoError(t, err)

	err = store.Put("", []byte("x"))
	require.ErrorContains(t, err, "empty")

	bigKey := make([]byte, 65535)
	for i := range bigKey {
		bigKey[i] = 'a'
	}
	err = store.Put(string(bigKey), []byte("x"))
	require.ErrorContains(t, err, "Key length")

	bigValue := make([]byte, 1<<31)
	err = store.Put("a", bigValue)
	require.ErrorContains(t, err, "Value length")
}

func TestShadowRecovery(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()

	store, err := kv.Open(fs, log, kv.WithIdentifier("m"))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put("a", []byte("123456789")))
	}
	require.NoError(t, store.Close())

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	require.NoError(t, fs.Truncate(f, 150))
	require.NoError(t, fs.Rename("m", "ms"))

	store2, err := kv.Open(fs, log, kv.WithIdentifier("m"))
	require.NoError(t, err)
	require.Contains(t, store2.ListKeys(), "a")
}

func TestMidFileValueCorruption(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()

	store, err := kv.Open(fs, log, kv.WithIdentifier("m"))
	require.NoError(t, err)

	// All ten entries are the same size (12-byte header + 4-byte key +
	// 6-byte value = 22 bytes), so corrupting the trailing bytes of the
	// file corrupts exactly the last entry's value.
	for i := 0; i < 10; i++ {
		key := "key" + string(rune('0'+i))
		require.NoError(t, store.Put(key, []byte("value"+string(rune('0'+i)))))
	}

	_, err = store.Get("key9")
	require.NoError(t, err)

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	size, err := fs.Size(f)
	require.NoError(t, err)

	corrupt := make([]byte, 5)
	for i := range corrupt {
		corrupt[i] = 0xFF
	}
	require.NoError(t, fs.Truncate(f, size-5))
	require.NoError(t, fs.Append(f, corrupt))

	_, err = store.Get("key9")
	require.Error(t, err)
	require.Equal(t, kverrors.DataCorrupted, err.(*kverrors.Error).Code())

	require.NoError(t, store.Close())

	store2, err := kv.Open(fs, log, kv.WithIdentifier("m"), kv.WithFullCorruptionCheckOnOpen(true))
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		key := "key" + string(rune('0'+i))
		_, err := store2.Get(key)
		require.NoError(t, err)
	}
	_, err = store2.Get("key9")
	require.Error(t, err)
}

func TestCompactionDropsCorruptedDuplicates(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()

	store, err := kv.Open(fs, log, kv.WithIdentifier("m"), kv.WithCompactAfter(0))
	require.NoError(t, err)

	require.NoError(t, store.Put("a", []byte("v1"))) // offset 0,  15 bytes
	require.NoError(t, store.Put("b", []byte("v1"))) // offset 15, 15 bytes
	require.NoError(t, store.Put("a", []byte("v2"))) // offset 30, 15 bytes (live "a")
	require.NoError(t, store.Put("b", []byte("v2"))) // offset 45, 15 bytes (live "b")

	// Flip the magic byte of "a"'s live entry (its most recent write, at
	// offset 30), corrupting the header compaction will actually read.
	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	size, err := fs.Size(f)
	require.NoError(t, err)
	raw, err := fs.Read(f, 0, size)
	require.NoError(t, err)
	raw[30] = 0x00
	require.NoError(t, fs.Truncate(f, 0))
	require.NoError(t, fs.Append(f, raw))

	require.NoError(t, store.Compact())

	_, err = store.Get("a")
	require.Error(t, err)
	require.Equal(t, kverrors.KeyNotFound, err.(*kverrors.Error).Code())

	v, err := store.Get("b")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

// TestPutImmediatelyAfterCompact confirms a write landing right after
// compaction finishes sees the store's post-compaction state — the
// active file and index Compact just swapped in, not any pre-compaction
// leftovers. Put and Compact share the same store-wide mutex, so there
// is no genuinely concurrent "in-flight compaction" window to race;
// this is the serialized equivalent of that scenario.
func TestPutImmediatelyAfterCompact(t *testing.T) {
	fs := memfs.New()
	store, err := kv.Open(fs, corelog.NewSpy(), kv.WithIdentifier("m"))
	require.NoError(t, err)

	require.NoError(t, store.Put("a", []byte("v1")))
	require.NoError(t, store.Put("a", []byte("v2")))
	require.NoError(t, store.Compact())

	require.NoError(t, store.Put("b", []byte("v3")))

	v, err := store.Get("a")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	v, err = store.Get("b")
	require.NoError(t, err)
	require.Equal(t, []byte("v3"), v)

	require.ElementsMatch(t, []string{"a", "b"}, store.ListKeys())
}

func TestCurrentSizeBytesAndListKeys(t *testing.T) {
	fs := memfs.New()
	store, err := kv.Open(fs, corelog.NewSpy())
	require.NoError(t, err)

	require.Equal(t, int64(0), store.CurrentSizeBytes())
	require.NoError(t, store.Put("a", []byte("1")))
	require.Greater(t, store.CurrentSizeBytes(), int64(0))
	require.Equal(t, []string{"a"}, store.ListKeys())
}

func TestRemoveAndGetKeyNotFound(t *testing.T) {
	fs := memfs.New()
	store, err := kv.Open(fs, corelog.NewSpy())
	require.NoError(t, err)

	_, err = store.Get("missing")
	require.Error(t, err)
	require.Equal(t, kverrors.KeyNotFound, err.(*kverrors.Error).Code())

	require.NoError(t, store.Put("k", []byte("v")))
	require.NoError(t, store.Remove("k"))

	_, err = store.Get("k")
	require.Error(t, err)
	require.Equal(t, kverrors.KeyNotFound, err.(*kverrors.Error).Code())

	err = store.Remove("k")
	require.Error(t, err)
	require.Equal(t, kverrors.KeyNotFound, err.(*kverrors.Error).Code())
}
