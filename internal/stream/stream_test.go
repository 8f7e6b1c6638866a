package stream_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/internal/memfs"
	"github.com/iamNilotpal/edgestore/internal/posixfs"
	"github.com/iamNilotpal/edgestore/internal/segment"
	"github.com/iamNilotpal/edgestore/internal/stream"
	"github.com/iamNilotpal/edgestore/internal/streamerrors"
)

func TestAppendAndRead(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()

	st, err := stream.OpenOrCreate(fs, log)
	require.NoError(t, err)

	seq0, err := st.Append([]byte("first"), 1000, stream.DefaultAppendOptions())
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq0)

	seq1, err := st.Append([]byte("second"), 2000, stream.DefaultAppendOptions())
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq1)

	rec, err := st.Read(seq1, segment.DefaultReadOptions())
	require.NoError(t, err)

	want := segment.Record{SequenceNumber: 1, TimestampMs: 2000, Payload: []byte("second")}
	if diff := cmp.Diff(want, rec, cmpopts.IgnoreFields(segment.Record{}, "Offset", "PayloadOffset")); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, uint64(0), st.FirstSequenceNumber())
	require.Equal(t, uint64(2), st.NextSequenceNumber())
}

func TestReadOutOfRange(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy())
	require.NoError(t, err)

	_, err = st.Append([]byte("x"), 0, stream.DefaultAppendOptions())
	require.NoError(t, err)

	_, err = st.Read(5, segment.DefaultReadOptions())
	require.Error(t, err)
	require.True(t, streamerrors.Matches(err, streamerrors.RecordNotFound))
}

// TestPosixRestartThenAppendPreservesExistingRecords runs the
// process-restart path against the real POSIX filesystem: OpenOrCreate
// reopens every existing segment file via fs.OpenOrCreate, and an
// Append right after must land past the segment's recovered records,
// not overwrite them from offset 0.
func TestPosixRestartThenAppendPreservesExistingRecords(t *testing.T) {
	dir := t.TempDir()
	fs, err := posixfs.New(dir)
	require.NoError(t, err)
	log := corelog.NewSpy()

	st, err := stream.OpenOrCreate(fs, log)
	require.NoError(t, err)
	seq0, err := st.Append([]byte("before-restart"), 1000, stream.DefaultAppendOptions())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := stream.OpenOrCreate(fs, log)
	require.NoError(t, err)
	seq1, err := st2.Append([]byte("after-restart"), 2000, stream.DefaultAppendOptions())
	require.NoError(t, err)
	require.Equal(t, seq0+1, seq1)

	rec0, err := st2.Read(seq0, segment.DefaultReadOptions())
	require.NoError(t, err)
	require.Equal(t, []byte("before-restart"), rec0.Payload)

	rec1, err := st2.Read(seq1, segment.DefaultReadOptions())
	require.NoError(t, err)
	require.Equal(t, []byte("after-restart"), rec1.Payload)
}

func TestSegmentRollover(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy(), stream.WithMinimumSegmentSizeBytes(segment.RecordHeaderSize+10))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := st.Append([]byte("0123456789"), int64(i), stream.DefaultAppendOptions())
		require.NoError(t, err)
	}

	names, err := fs.List()
	require.NoError(t, err)
	var logFiles int
	for _, n := range names {
		if _, ok := segment.ParseFilename(n); ok {
			logFiles++
		}
	}
	require.Greater(t, logFiles, 1)
}

func TestAppendEvictsOldestWhenFull(t *testing.T) {
	fs := memfs.New()
	recordSize := segment.RecordHeaderSize + 10
	st, err := stream.OpenOrCreate(
		fs, corelog.NewSpy(),
		stream.WithMinimumSegmentSizeBytes(1),
		stream.WithMaximumSizeBytes(recordSize*2),
	)
	require.NoError(t, err)

	opts := stream.DefaultAppendOptions()
	for i := 0; i < 4; i++ {
		_, err := st.Append([]byte("0123456789"), int64(i), opts)
		require.NoError(t, err)
	}

	require.LessOrEqual(t, st.CurrentSizeBytes(), recordSize*2)
	require.Greater(t, st.FirstSequenceNumber(), uint64(0))

	_, err = st.Read(0, segment.DefaultReadOptions())
	require.Error(t, err)
	require.True(t, streamerrors.Matches(err, streamerrors.RecordNotFound))
}

func TestAppendRejectsWhenFullAndEvictionDisabled(t *testing.T) {
	fs := memfs.New()
	recordSize := segment.RecordHeaderSize + 10
	st, err := stream.OpenOrCreate(
		fs, corelog.NewSpy(),
		stream.WithMinimumSegmentSizeBytes(1),
		stream.WithMaximumSizeBytes(recordSize+5),
	)
	require.NoError(t, err)

	opts := stream.AppendOptions{RemoveOldestSegmentsIfFull: false}
	_, err = st.Append([]byte("0123456789"), 0, opts)
	require.NoError(t, err)

	_, err = st.Append([]byte("0123456789"), 1, opts)
	require.Error(t, err)
	require.True(t, streamerrors.Matches(err, streamerrors.StreamFull))
}

func TestRemoveOlderRecords(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy(), stream.WithMinimumSegmentSizeBytes(segment.RecordHeaderSize+1))
	require.NoError(t, err)

	_, err = st.Append([]byte("old"), 1000, stream.DefaultAppendOptions())
	require.NoError(t, err)
	_, err = st.Append([]byte("new"), 5000, stream.DefaultAppendOptions())
	require.NoError(t, err)

	removed := st.RemoveOlderRecords(3000)
	require.Greater(t, removed, int64(0))
	require.Equal(t, uint64(1), st.FirstSequenceNumber())

	_, err = st.Read(1, segment.DefaultReadOptions())
	require.NoError(t, err)
}

func TestIteratorCheckpointRoundTrip(t *testing.T) {
	fs := memfs.New()
	log := corelog.NewSpy()
	st, err := stream.OpenOrCreate(fs, log)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := st.Append([]byte("v"), int64(i), stream.DefaultAppendOptions())
		require.NoError(t, err)
	}

	cur := st.OpenOrCreateIterator("reader-a", stream.IteratorOptions{})
	rec, err := cur.Get()
	require.NoError(t, err)
	require.Equal(t, uint64(0), rec.SequenceNumber)
	require.NoError(t, rec.Checkpoint())

	require.NoError(t, st.Close())

	st2, err := stream.OpenOrCreate(fs, log)
	require.NoError(t, err)
	cur2 := st2.OpenOrCreateIterator("reader-a", stream.IteratorOptions{})
	require.Equal(t, uint64(1), cur2.SequenceNumber())
}

func TestCursorNextAdvancesPosition(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := st.Append([]byte("v"), int64(i), stream.DefaultAppendOptions())
		require.NoError(t, err)
	}

	cur := st.OpenOrCreateIterator("reader-b", stream.IteratorOptions{})
	_, err = cur.Get()
	require.NoError(t, err)
	cur.Next()

	rec, err := cur.Get()
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.SequenceNumber)
}

func TestDeleteIteratorIsIdempotent(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy())
	require.NoError(t, err)

	require.NoError(t, st.DeleteIterator("never-created"))

	st.OpenOrCreateIterator("reader-c", stream.IteratorOptions{})
	require.NoError(t, st.DeleteIterator("reader-c"))
	require.NoError(t, st.DeleteIterator("reader-c"))
}

func TestCursorAfterCloseReturnsStreamClosed(t *testing.T) {
	fs := memfs.New()
	st, err := stream.OpenOrCreate(fs, corelog.NewSpy())
	require.NoError(t, err)
	_, err = st.Append([]byte("v"), 0, stream.DefaultAppendOptions())
	require.NoError(t, err)

	cur := st.OpenOrCreateIterator("reader-d", stream.IteratorOptions{})
	require.NoError(t, st.Close())

	_, err = cur.Get()
	require.Error(t, err)
	require.True(t, streamerrors.Matches(err, streamerrors.StreamClosed))
}

func TestCursorDereferenceAfterRetentionEviction(t *testing.T) {
	fs := memfs.New()
	recordSize := segment.RecordHeaderSize + 10
	st, err := stream.OpenOrCreate(
		fs, corelog.NewSpy(),
		stream.WithMinimumSegmentSizeBytes(1),
		stream.WithMaximumSizeBytes(recordSize*2),
	)
	require.NoError(t, err)

	opts := stream.DefaultAppendOptions()
	_, err = st.Append([]byte("0123456789"), 0, opts)
	require.NoError(t, err)

	cur := st.OpenOrCreateIterator("reader-e", stream.IteratorOptions{})

	_, err = st.Append([]byte("0123456789"), 1, opts)
	require.NoError(t, err)
	_, err = st.Append([]byte("0123456789"), 2, opts)
	require.NoError(t, err)

	require.Greater(t, st.FirstSequenceNumber(), uint64(0))

	_, err = cur.Get()
	require.Error(t, err)
	require.True(t, streamerrors.Matches(err, streamerrors.RecordNotFound))

	caughtUp := st.OpenOrCreateIterator("reader-e", stream.IteratorOptions{})
	require.Equal(t, st.FirstSequenceNumber(), caughtUp.SequenceNumber())
}
