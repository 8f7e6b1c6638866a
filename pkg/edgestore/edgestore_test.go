package edgestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/edgestore/internal/corelog"
	"github.com/iamNilotpal/edgestore/pkg/edgestore"
)

func newInstance(t *testing.T, opts ...edgestore.OptionFunc) *edgestore.Instance {
	t.Helper()
	dir := t.TempDir()
	base := append([]edgestore.OptionFunc{
		edgestore.WithDataDir(dir),
		edgestore.WithLogger(corelog.NewSpy()),
	}, opts...)

	inst, err := edgestore.NewInstance(context.Background(), "edgestore-test", base...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(context.Background()) })
	return inst
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	inst := newInstance(t)

	require.NoError(t, inst.Set(ctx, "k", []byte("v")))
	v, err := inst.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, inst.Delete(ctx, "k"))
	_, err = inst.Get(ctx, "k")
	require.Error(t, err)
}

func TestAppendAndReadRecord(t *testing.T) {
	ctx := context.Background()
	inst := newInstance(t)

	seq, err := inst.Append(ctx, []byte("payload"), 1234)
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)

	rec, err := inst.ReadRecord(ctx, seq)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), rec.Payload)
	require.Equal(t, int64(1234), rec.TimestampMs)
}

func TestSubscribeCheckpointSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	inst, err := edgestore.NewInstance(ctx, "edgestore-test", edgestore.WithDataDir(dir), edgestore.WithLogger(corelog.NewSpy()))
	require.NoError(t, err)

	_, err = inst.Append(ctx, []byte("a"), 0)
	require.NoError(t, err)
	_, err = inst.Append(ctx, []byte("b"), 1)
	require.NoError(t, err)

	cur := inst.Subscribe(ctx, "reader")
	rec, err := cur.Get()
	require.NoError(t, err)
	require.NoError(t, rec.Checkpoint())
	require.NoError(t, inst.Close(ctx))

	inst2, err := edgestore.NewInstance(ctx, "edgestore-test", edgestore.WithDataDir(dir), edgestore.WithLogger(corelog.NewSpy()))
	require.NoError(t, err)
	defer inst2.Close(ctx)

	cur2 := inst2.Subscribe(ctx, "reader")
	require.Equal(t, uint64(1), cur2.SequenceNumber())
}

func TestKVAndStreamRootedInSeparateSubdirs(t *testing.T) {
	dir := t.TempDir()
	inst := newInstance(t, edgestore.WithDataDir(dir))
	_ = inst

	require.DirExists(t, filepath.Join(dir, "kv"))
	require.DirExists(t, filepath.Join(dir, "stream"))

	kvEntries, err := os.ReadDir(filepath.Join(dir, "kv"))
	require.NoError(t, err)
	require.NotEmpty(t, kvEntries)
}
