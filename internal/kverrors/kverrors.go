// Package kverrors implements the closed error enumeration for the
// key-value store, using a base-error plus fluent-detail pattern so
// callers can attach a key or byte offset without changing the
// constructor signature.
package kverrors

import (
	"errors"
	"fmt"

	"github.com/iamNilotpal/edgestore/internal/fserrors"
)

// Code enumerates every outcome a KV operation can report. This is a
// closed set.
type Code int

const (
	NoError Code = iota
	KeyNotFound
	ReadError
	WriteError
	HeaderCorrupted
	DataCorrupted
	EndOfFile
	InvalidArguments
	DiskFull
	Unknown
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "NoError"
	case KeyNotFound:
		return "KeyNotFound"
	case ReadError:
		return "ReadError"
	case WriteError:
		return "WriteError"
	case HeaderCorrupted:
		return "HeaderCorrupted"
	case DataCorrupted:
		return "DataCorrupted"
	case EndOfFile:
		return "EndOfFile"
	case InvalidArguments:
		return "InvalidArguments"
	case DiskFull:
		return "DiskFull"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every fallible KV operation returns.
// It embeds the operation's code plus enough context (key, byte offset)
// to diagnose a failure without re-deriving it from logs.
type Error struct {
	code    Code
	op      string
	message string
	key     string
	offset  int64
	cause   error
	details map[string]any
}

// New constructs an *Error. op is the calling operation's name, like
// "Put", "Get", "Compact"; msg is a human-readable description.
func New(code Code, op, msg string) *Error {
	return &Error{code: code, op: op, message: msg}
}

func (e *Error) WithCause(err error) *Error   { e.cause = err; return e }
func (e *Error) WithKey(key string) *Error    { e.key = key; return e }
func (e *Error) WithOffset(off int64) *Error  { e.offset = off; return e }
func (e *Error) WithDetail(k string, v any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[k] = v
	return e
}

func (e *Error) Code() Code   { return e.code }
func (e *Error) Key() string  { return e.key }
func (e *Error) Offset() int64 { return e.offset }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("kv: %s: %s: %s: %v", e.op, e.code, e.message, e.cause)
	}
	return fmt.Sprintf("kv: %s: %s: %s", e.op, e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Matches reports whether err wraps a *Error carrying the given code.
// Code itself is not an error value, so errors.Is cannot compare
// against it; consumers use Matches instead.
func Matches(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}

// FromFileError maps a shared file-system error code onto the KV enum.
func FromFileError(fsCode fserrors.Code) Code {
	switch fsCode {
	case fserrors.None:
		return NoError
	case fserrors.ReadError:
		return ReadError
	case fserrors.WriteError:
		return WriteError
	case fserrors.EndOfFile:
		return EndOfFile
	case fserrors.InvalidArguments:
		return InvalidArguments
	case fserrors.DiskFull:
		return DiskFull
	case fserrors.NotFound:
		// The file layer's NotFound means "no such file"; at the KV
		// layer that's a storage-level condition, never a missing key
		// (KeyNotFound is reported from the index, not the file system).
		return ReadError
	default:
		return Unknown
	}
}

// Wrap converts a file-system error into a KV *Error, preserving the
// original as the cause.
func Wrap(op string, fsErr error) *Error {
	code := FromFileError(fserrors.CodeOf(fsErr))
	return New(code, op, "file operation failed").WithCause(fsErr)
}
