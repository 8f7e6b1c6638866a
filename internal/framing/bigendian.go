package framing

import "encoding/binary"

// PutUint32BE / Uint32BE / PutUint64BE / Uint64BE wrap encoding/binary's
// BigEndian codec. They exist so call sites read as framing operations
// rather than reaching into encoding/binary directly, and so a single
// place documents that stream records are big-endian regardless of host
// byte order.

func PutUint32BE(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }
func Uint32BE(src []byte) uint32       { return binary.BigEndian.Uint32(src) }

func PutUint64BE(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }
func Uint64BE(src []byte) uint64       { return binary.BigEndian.Uint64(src) }

func PutInt32BE(dst []byte, v int32) { binary.BigEndian.PutUint32(dst, uint32(v)) }
func Int32BE(src []byte) int32       { return int32(binary.BigEndian.Uint32(src)) }

func PutInt64BE(dst []byte, v int64) { binary.BigEndian.PutUint64(dst, uint64(v)) }
func Int64BE(src []byte) int64       { return int64(binary.BigEndian.Uint64(src)) }

// HostEndian is the machine's native byte order. The KV header is
// written in host byte order on purpose: KV files are not portable
// across differently-endian hosts, and that is accepted rather than
// worked around.
var HostEndian binary.ByteOrder = binary.NativeEndian
