package framing

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC32MatchesConcatenation(t *testing.T) {
	a := []byte("hello, ")
	b := []byte("world")
	c := []byte("!")

	got := CRC32(a, b, c)
	want := crc32.ChecksumIEEE([]byte("hello, world!"))

	require.Equal(t, want, got)
}

func TestCRC32EmptySpans(t *testing.T) {
	require.Equal(t, crc32.ChecksumIEEE(nil), CRC32())
	require.Equal(t, crc32.ChecksumIEEE(nil), CRC32(nil, []byte{}))
}

func TestBigEndianRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	PutUint64BE(buf, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), Uint64BE(buf))
	require.Equal(t, byte(0x01), buf[0], "big-endian: most significant byte first")

	buf32 := make([]byte, 4)
	PutInt32BE(buf32, -1)
	require.Equal(t, int32(-1), Int32BE(buf32))
}
