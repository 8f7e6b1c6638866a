// Package streamerrors implements the closed error enumeration for the
// record stream (segments, retention, iterators), mirroring kverrors'
// shape but carrying stream-specific codes.
package streamerrors

import (
	"errors"
	"fmt"

	"github.com/iamNilotpal/edgestore/internal/fserrors"
)

// Code enumerates every outcome a stream operation can report.
type Code int

const (
	NoError Code = iota
	RecordNotFound
	RecordTooLarge
	StreamFull
	HeaderDataCorrupted
	RecordDataCorrupted
	StreamClosed
	ReadError
	WriteError
	InvalidArguments
	DiskFull
	Unknown
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "NoError"
	case RecordNotFound:
		return "RecordNotFound"
	case RecordTooLarge:
		return "RecordTooLarge"
	case StreamFull:
		return "StreamFull"
	case HeaderDataCorrupted:
		return "HeaderDataCorrupted"
	case RecordDataCorrupted:
		return "RecordDataCorrupted"
	case StreamClosed:
		return "StreamClosed"
	case ReadError:
		return "ReadError"
	case WriteError:
		return "WriteError"
	case InvalidArguments:
		return "InvalidArguments"
	case DiskFull:
		return "DiskFull"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type stream, segment, and iterator
// operations return.
type Error struct {
	code          Code
	op            string
	message       string
	sequenceNum   int64
	hasSequence   bool
	segmentBase   int64
	hasSegment    bool
	cause         error
	details       map[string]any
}

func New(code Code, op, msg string) *Error {
	return &Error{code: code, op: op, message: msg}
}

func (e *Error) WithCause(err error) *Error { e.cause = err; return e }

func (e *Error) WithSequenceNumber(seq int64) *Error {
	e.sequenceNum, e.hasSequence = seq, true
	return e
}

func (e *Error) WithSegmentBase(base int64) *Error {
	e.segmentBase, e.hasSegment = base, true
	return e
}

func (e *Error) WithDetail(k string, v any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[k] = v
	return e
}

func (e *Error) Code() Code { return e.code }

func (e *Error) SequenceNumber() (int64, bool) { return e.sequenceNum, e.hasSequence }
func (e *Error) SegmentBase() (int64, bool)    { return e.segmentBase, e.hasSegment }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("stream: %s: %s: %s: %v", e.op, e.code, e.message, e.cause)
	}
	return fmt.Sprintf("stream: %s: %s: %s", e.op, e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Matches reports whether err is a *Error carrying the given code.
func Matches(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}

// FromFileError maps a shared file-system error code onto the stream
// enum.
func FromFileError(fsCode fserrors.Code) Code {
	switch fsCode {
	case fserrors.None:
		return NoError
	case fserrors.ReadError:
		return ReadError
	case fserrors.WriteError:
		return WriteError
	case fserrors.EndOfFile:
		return RecordNotFound
	case fserrors.InvalidArguments:
		return InvalidArguments
	case fserrors.DiskFull:
		return DiskFull
	case fserrors.NotFound:
		return RecordNotFound
	default:
		return Unknown
	}
}

// Wrap converts a file-system error into a stream *Error, preserving
// the original as the cause.
func Wrap(op string, fsErr error) *Error {
	code := FromFileError(fserrors.CodeOf(fsErr))
	return New(code, op, "file operation failed").WithCause(fsErr)
}
