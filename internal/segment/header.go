package segment

import "github.com/iamNilotpal/edgestore/internal/framing"

// RecordHeaderSize is the fixed on-disk width of a record header:
// 4 + 4 + 4 + 8 + 8 + 4. Exported so callers sizing a maximum record
// against a maximum segment/stream size don't have to duplicate it.
const RecordHeaderSize = 32

const recordHeaderSize = RecordHeaderSize

// recordMagic is the fixed 4-byte value every valid record header
// starts with.
const recordMagic uint32 = 0xAAAAAA01

// recordHeader is the 32-byte big-endian prefix of every stream record.
type recordHeader struct {
	magic                  uint32
	relativeSequenceNumber int32
	bytePosition           int32
	crc                    int64
	timestamp              int64
	payloadLength          int32
}

func (h recordHeader) recordSize() int64 {
	return recordHeaderSize + int64(h.payloadLength)
}

func encodeRecordHeader(h recordHeader) []byte {
	buf := make([]byte, recordHeaderSize)
	framing.PutUint32BE(buf[0:4], h.magic)
	framing.PutInt32BE(buf[4:8], h.relativeSequenceNumber)
	framing.PutInt32BE(buf[8:12], h.bytePosition)
	framing.PutInt64BE(buf[12:20], h.crc)
	framing.PutInt64BE(buf[20:28], h.timestamp)
	framing.PutInt32BE(buf[28:32], h.payloadLength)
	return buf
}

func decodeRecordHeader(buf []byte) (recordHeader, bool) {
	if len(buf) < recordHeaderSize {
		return recordHeader{}, false
	}
	h := recordHeader{
		magic:                  framing.Uint32BE(buf[0:4]),
		relativeSequenceNumber: framing.Int32BE(buf[4:8]),
		bytePosition:           framing.Int32BE(buf[8:12]),
		crc:                    framing.Int64BE(buf[12:20]),
		timestamp:              framing.Int64BE(buf[20:28]),
		payloadLength:          framing.Int32BE(buf[28:32]),
	}
	return h, h.magic == recordMagic
}

// recordCRCInput returns the spans the record CRC is computed over:
// big-endian timestamp, big-endian payload length, then the raw
// payload bytes.
func recordCRCInput(timestamp int64, payloadLength int32, payload []byte) [][]byte {
	tsBuf := make([]byte, 8)
	framing.PutInt64BE(tsBuf, timestamp)
	lenBuf := make([]byte, 4)
	framing.PutInt32BE(lenBuf, payloadLength)
	return [][]byte{tsBuf, lenBuf, payload}
}
