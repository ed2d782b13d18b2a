package remote

import (
	"errors"
	"fmt"
)

// Error represents a domain error raised by the remote layer or by the
// client-side filesystem built on top of it.
//
// Callers distinguish error categories with IsCode (or the Is* helpers)
// rather than by message. The message stays human readable and carries the
// service-specific sub-reason (e.g. "Invalid input!") when there is one.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the remote path related to the error (if applicable)
	Path string

	// Segment is the path element that failed to resolve (ErrNotFound only)
	Segment string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Path != "" {
		msg = msg + ": " + e.Path
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so sentinel comparisons
// like errors.Is(err, &Error{Code: ErrNotFound}) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a remote error.
type ErrorCode int

const (
	// ErrNotFound indicates a path or id does not resolve to any remote item
	ErrNotFound ErrorCode = iota

	// ErrNotAFolder indicates an operation required a folder-category item
	// but found a leaf
	ErrNotAFolder

	// ErrTargetExists indicates a move/rename target already exists as a
	// conflicting item
	ErrTargetExists

	// ErrService indicates the service reported a transport or API failure
	ErrService

	// ErrSchema indicates a response was missing expected fields
	ErrSchema

	// ErrUploadFailed indicates the content upload step did not succeed
	ErrUploadFailed

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: ".." above the root, mkdir without a parent, mv onto itself
	ErrInvalidArgument

	// ErrNoContent indicates a file item has neither a download URL nor
	// inline data
	ErrNoContent
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrNotAFolder:
		return "not a folder"
	case ErrTargetExists:
		return "target exists"
	case ErrService:
		return "remote service error"
	case ErrSchema:
		return "schema error"
	case ErrUploadFailed:
		return "upload failed"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNoContent:
		return "no content"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// NewError builds an *Error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds the error returned when a path segment is missing from
// its containing folder.
func NotFound(segment, containing string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s does not exist in %s", segment, containing),
		Segment: segment,
	}
}

// AsServiceError classifies an arbitrary error coming from a Service
// implementation. Errors that are already *Error pass through; anything
// else becomes ErrService.
func AsServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Code: ErrService, Message: op + " failed", Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsNotFound(err error) bool     { return IsCode(err, ErrNotFound) }
func IsNotAFolder(err error) bool   { return IsCode(err, ErrNotAFolder) }
func IsTargetExists(err error) bool { return IsCode(err, ErrTargetExists) }
