package posixfs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/edgestore/internal/posixfs"
)

func TestAppendAndRead(t *testing.T) {
	fs, err := posixfs.New(t.TempDir())
	require.NoError(t, err)

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)

	require.NoError(t, fs.Append(f, []byte("hello")))
	require.NoError(t, fs.Append(f, []byte("world")))

	got, err := fs.Read(f, 0, 10)
	require.NoError(t, err)
	require.Equal(t, []byte("helloworld"), got)
}

// TestReopenThenAppendPreservesExistingData guards against writing a
// reopened file from offset 0: closing a file with existing content and
// opening it again by identifier (as Store.Open and Stream.OpenOrCreate
// both do on every process restart) must leave prior bytes intact, with
// new writes landing after them rather than overwriting from the start.
func TestReopenThenAppendPreservesExistingData(t *testing.T) {
	dir := t.TempDir()
	fs, err := posixfs.New(dir)
	require.NoError(t, err)

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	require.NoError(t, fs.Append(f, []byte("first-entry")))
	require.NoError(t, fs.Close(f))

	f2, err := fs.OpenOrCreate("m")
	require.NoError(t, err)

	size, err := fs.Size(f2)
	require.NoError(t, err)
	require.Equal(t, int64(len("first-entry")), size)

	require.NoError(t, fs.Append(f2, []byte("second-entry")))

	got, err := fs.Read(f2, 0, int64(len("first-entrysecond-entry")))
	require.NoError(t, err)
	require.Equal(t, []byte("first-entrysecond-entry"), got)
}

func TestTruncateThenAppendContinuesFromNewEnd(t *testing.T) {
	fs, err := posixfs.New(t.TempDir())
	require.NoError(t, err)

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	require.NoError(t, fs.Append(f, []byte("0123456789")))
	require.NoError(t, fs.Truncate(f, 5))
	require.NoError(t, fs.Append(f, []byte("ABCDE")))

	got, err := fs.Read(f, 0, 10)
	require.NoError(t, err)
	require.Equal(t, []byte("01234ABCDE"), got)
}

func TestListAndRemove(t *testing.T) {
	dir := t.TempDir()
	fs, err := posixfs.New(dir)
	require.NoError(t, err)

	f, err := fs.OpenOrCreate("m")
	require.NoError(t, err)
	require.NoError(t, fs.Append(f, []byte("x")))

	names, err := fs.List()
	require.NoError(t, err)
	require.Contains(t, names, "m")

	require.NoError(t, fs.Remove("m"))
	names, err = fs.List()
	require.NoError(t, err)
	require.NotContains(t, names, "m")

	require.Equal(t, dir, fs.Dir())
	require.NoFileExists(t, filepath.Join(dir, "m"))
}
