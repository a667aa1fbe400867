package store

import "fmt"

// Code identifies one of the store's error categories. Store operations on
// missing keys return "absent" (a bool/ok return), never an error; Code is
// reserved for real failures.
type Code int

const (
	CodeInvalidArgument Code = iota
	CodeTooLarge
	CodeNotFound
	CodeShardCountMismatch
	CodeIncompatibleVersion
	CodeDecodeError
	CodeIoError
	CodeAlreadyRunning
	CodeNotRunning
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeTooLarge:
		return "TooLarge"
	case CodeNotFound:
		return "NotFound"
	case CodeShardCountMismatch:
		return "ShardCountMismatch"
	case CodeIncompatibleVersion:
		return "IncompatibleVersion"
	case CodeDecodeError:
		return "DecodeError"
	case CodeIoError:
		return "IoError"
	case CodeAlreadyRunning:
		return "AlreadyRunning"
	case CodeNotRunning:
		return "NotRunning"
	case CodeInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced by this repository's storage
// layer. It carries a Code plus the structured fields a handler needs to
// render a precise message without parsing strings.
type Error struct {
	Code Code
	Msg  string

	// TooLarge fields
	Kind  string // "key" or "value"
	Size  int64
	Limit int64

	// ShardCountMismatch fields
	ImageShards int
	StoreShards int

	// IncompatibleVersion field
	FoundVersion byte

	Cause error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is a *Error with the same Code, so callers can
// write errors.Is(err, store.ErrNotFound("")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func ErrInvalidArgument(reason string) *Error {
	return &Error{Code: CodeInvalidArgument, Msg: reason}
}

func ErrTooLarge(kind string, size, limit int64) *Error {
	return &Error{
		Code:  CodeTooLarge,
		Msg:   fmt.Sprintf("%s exceeds limit (size=%d, limit=%d)", kind, size, limit),
		Kind:  kind,
		Size:  size,
		Limit: limit,
	}
}

func ErrNotFound(reason string) *Error {
	return &Error{Code: CodeNotFound, Msg: reason}
}

func ErrShardCountMismatch(imageShards, storeShards int) *Error {
	return &Error{
		Code:        CodeShardCountMismatch,
		Msg:         fmt.Sprintf("snapshot has %d shards, store has %d", imageShards, storeShards),
		ImageShards: imageShards,
		StoreShards: storeShards,
	}
}

func ErrIncompatibleVersion(found byte) *Error {
	return &Error{Code: CodeIncompatibleVersion, Msg: fmt.Sprintf("unknown snapshot version 0x%02x", found), FoundVersion: found}
}

func ErrDecodeError(reason string) *Error {
	return &Error{Code: CodeDecodeError, Msg: reason}
}

func ErrIoError(cause error) *Error {
	return &Error{Code: CodeIoError, Msg: cause.Error(), Cause: cause}
}

func ErrAlreadyRunning(what string) *Error {
	return &Error{Code: CodeAlreadyRunning, Msg: what}
}

func ErrNotRunning(what string) *Error {
	return &Error{Code: CodeNotRunning, Msg: what}
}

func ErrInternal(reason string) *Error {
	return &Error{Code: CodeInternal, Msg: reason}
}
