// Package errors provides structured error types for the wasm-object library.
//
// Errors are categorized by Phase (which lifecycle step failed) and Kind
// (error category). The Error type carries the class name, the header or
// allocation address involved, the Go payload type and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindConstructor).
//		Class("Counter").
//		Addr(header).
//		Cause(cause).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseAlloc, 64, 8)
//	err := errors.TypeMismatch(errors.PhaseAccess, "Counter", "*main.Counter", "*main.Timer")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on phase and kind only, so a bare &Error{Phase, Kind} works as a
// target.
package errors
