package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the boundary the error occurred
type Phase string

const (
	PhaseHandle   Phase = "handle"   // handle table lookups and lifecycle
	PhaseEntity   Phase = "entity"   // polygon operations
	PhaseArray    Phase = "array"    // owned array bridge
	PhaseString   Phase = "string"   // owned string bridge
	PhaseCallback Phase = "callback" // host-supplied functions
	PhaseGuest    Phase = "guest"    // WebAssembly guest surface
	PhaseScript   Phase = "script"   // scripted host
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle     Kind = "invalid_handle"
	KindHandleClosed      Kind = "handle_closed"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindNilPointer        Kind = "nil_pointer"
	KindAllocatorMismatch Kind = "allocator_mismatch"
	KindAllocation        Kind = "allocation"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindNotInitialized    Kind = "not_initialized"
	KindMissingExport     Kind = "missing_export"
	KindUnknownAllocation Kind = "unknown_allocation"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the structured error type used throughout geobridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the entry point name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a zero or never-issued handle
func InvalidHandle(phase Phase, op string, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Op:     op,
		Detail: fmt.Sprintf("handle %#x was never issued", handle),
		Value:  handle,
	}
}

// HandleClosed creates an error for a handle that was already destroyed
func HandleClosed(phase Phase, op string, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindHandleClosed,
		Op:     op,
		Detail: fmt.Sprintf("handle %#x is closed", handle),
		Value:  handle,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, op string, index int64, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, op, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Op:     op,
		Detail: fmt.Sprintf("%s is null", what),
	}
}

// AllocatorMismatch creates an error for a block handed to the wrong free
func AllocatorMismatch(phase Phase, op string, want, got fmt.Stringer) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocatorMismatch,
		Op:     op,
		Detail: fmt.Sprintf("block owned by %s allocator, freed through %s", got, want),
		Value:  got,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// InvalidIdentifier creates an error for identifier text that is not a canonical UUID
func InvalidIdentifier(text string, cause error) *Error {
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindInvalidIdentifier,
		Op:     "generate_identifier",
		Detail: fmt.Sprintf("identifier %q is not a canonical UUID", text),
		Value:  text,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, op, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Op:     op,
		Detail: fmt.Sprintf("%s not initialized", what),
	}
}

// MissingExport creates an error for a guest that lacks a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("guest does not export %q", name),
		Value:  name,
	}
}

// UnknownAllocation creates an error for a free of a block the core never handed out
func UnknownAllocation(phase Phase, op string, ptr any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownAllocation,
		Op:     op,
		Detail: fmt.Sprintf("block %v was not allocated by the core", ptr),
		Value:  ptr,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithOp returns a copy of err attributed to op. Other errors pass through.
func WithOp(err error, op string) error {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return err
	}
	c := *e
	c.Op = op
	return &c
}
