// Package errors provides structured error types for geobridge.
//
// Errors are categorized by Phase (which part of the boundary rejected the
// call) and Kind (error category). The Error type carries the entry point
// that failed, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEntity, errors.KindOutOfBounds).
//		Op("polygon_remove").
//		Value(index).
//		Detail("index %d out of bounds (length %d)", index, n).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseHandle, "polygon_length", h)
//	err := errors.OutOfBounds(errors.PhaseEntity, "polygon_remove", -1, 3)
//
// Library packages return these errors. The boundary layers decide how fatal
// they are: the C library aborts the process, the wasm host traps the guest.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
