package domain

import "errors"

// Sentinel errors classifying failures. Use errors.Is to test the kind.
var (
	// ErrIO indicates a local cache read/write failure
	ErrIO = errors.New("cache unavailable")

	// ErrParse indicates malformed JSON or image data
	ErrParse = errors.New("malformed data")

	// ErrNetwork indicates the remote source could not be reached or answered badly
	ErrNetwork = errors.New("remote source unreachable")

	// ErrNotFound indicates the remote source has no such record
	ErrNotFound = errors.New("record not found")
)

// Error attaches a failure kind and the operation to an underlying cause.
type Error struct {
	Kind error  // One of the sentinels above
	Op   string // e.g. "read image 25"
	Err  error
}

// NewError wraps err with a kind and operation. Returns nil if err is nil.
func NewError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
