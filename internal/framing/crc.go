// Package framing holds the low-level encode/decode primitives shared by
// the KV store and the stream: CRC-32 over discontiguous byte spans and
// big-endian integer helpers. Nothing here is specific to either format;
// both layer their own header layouts on top.
package framing

import "hash/crc32"

// CRC32 returns the IEEE CRC-32 (the same polynomial zlib/gzip use) of
// the concatenation of spans, without copying them into an intermediate
// buffer. Order matters: it must match the order the format's spec
// requires.
func CRC32(spans ...[]byte) uint32 {
	sum := crc32.NewIEEE()
	for _, s := range spans {
		// hash.Hash.Write never returns an error.
		_, _ = sum.Write(s)
	}
	return sum.Sum32()
}

// CRC32Of is an alias for CRC32 taking a pre-built slice of spans,
// useful when the caller already has a [][]byte rather than wanting to
// spread it as variadic arguments.
func CRC32Of(spans [][]byte) uint32 {
	sum := crc32.NewIEEE()
	for _, s := range spans {
		_, _ = sum.Write(s)
	}
	return sum.Sum32()
}
