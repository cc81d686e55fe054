// Package merr defines the coded errors Medulla reports over RPC and the CLI.
package merr

import (
	"errors"
	"fmt"
)

// Application error codes, in the JSON-RPC implementation-defined range.
const (
	CodeEntityNotFound         = -32001
	CodeEntityTypeInvalid      = -32002
	CodeValidationFailed       = -32003
	CodeRelationTargetNotFound = -32004
	CodeResourceNotFound       = -32005
	CodeInvalidResourceURI     = -32006
	CodeStorageError           = -32010
	CodeInternalError          = -32011
)

var (
	// ErrNotInitialized is returned when no .medulla directory can be found.
	ErrNotInitialized = errors.New("Not in a medulla project. Run 'medulla init' first.")

	// ErrAlreadyInitialized is returned by init on an existing project.
	ErrAlreadyInitialized = errors.New("medulla project already initialized")
)

// Error is a coded domain error. Code selects the RPC error code, Message is
// human-readable, Data carries optional structured detail.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	wrapped error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.wrapped }

// From coerces err into a coded Error, wrapping uncoded errors as internal.
func From(err error) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	return Internal(err)
}

// CodeOf extracts the application code from err, defaulting to
// CodeInternalError for uncoded errors.
func CodeOf(err error) int {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return CodeInternalError
}

func coded(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// EntityNotFound reports a lookup miss for the given id or reference.
func EntityNotFound(ref string) *Error {
	return coded(CodeEntityNotFound, "entity not found: %s", ref)
}

// EntityTypeInvalid reports an unknown entity type name.
func EntityTypeInvalid(name string) *Error {
	return coded(CodeEntityTypeInvalid, "invalid entity type: %q", name)
}

// Validation reports a failed validation with the offending field.
func Validation(field, format string, args ...any) *Error {
	e := coded(CodeValidationFailed, format, args...)
	e.Data = map[string]any{"field": field}
	return e
}

// RelationTargetNotFound reports a relation endpoint that does not exist.
func RelationTargetNotFound(id string) *Error {
	return coded(CodeRelationTargetNotFound, "relation target not found: %s", id)
}

// ResourceNotFound reports a read of a nonexistent resource URI.
func ResourceNotFound(uri string) *Error {
	return coded(CodeResourceNotFound, "resource not found: %s", uri)
}

// InvalidResourceURI reports a malformed medulla:// URI.
func InvalidResourceURI(uri string) *Error {
	return coded(CodeInvalidResourceURI, "invalid resource URI: %s", uri)
}

// Storage wraps a persistence failure.
func Storage(err error) *Error {
	e := coded(CodeStorageError, "storage error: %v", err)
	e.wrapped = err
	return e
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	e := coded(CodeInternalError, "internal error: %v", err)
	e.wrapped = err
	return e
}
