package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the object lifecycle the error occurred
type Phase string

const (
	PhaseRegister  Phase = "register"  // class registration
	PhaseAlloc     Phase = "alloc"     // runtime allocator calls
	PhaseConstruct Phase = "construct" // header init and constructor
	PhaseAccess    Phase = "access"    // state and property access
	PhaseClone     Phase = "clone"     // deep clone
	PhaseRefcount  Phase = "refcount"  // duplicate and release
	PhaseTeardown  Phase = "teardown"  // store removal
	PhaseRuntime   Phase = "runtime"   // runtime memory operations
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation   Kind = "allocation"
	KindConstructor  Kind = "constructor"
	KindTypeMismatch Kind = "type_mismatch"
	KindNotFound     Kind = "not_found"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindInvalidInput Kind = "invalid_input"
	KindRegistration Kind = "registration"
	KindReleased     Kind = "released"
	KindDestroyed    Kind = "destroyed"
	KindUnsupported  Kind = "unsupported"
	KindHook         Kind = "hook_failed"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	GoType string
	Detail string
	Addr   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Class != "" {
		b.WriteString(" in class ")
		b.WriteString(e.Class)
	}

	if e.Addr != 0 {
		fmt.Fprintf(&b, " at 0x%x", e.Addr)
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Class sets the class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Addr sets the linear-memory address involved
func (b *Builder) Addr(addr uint32) *Builder {
	b.err.Addr = addr
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
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

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// ConstructorFailed wraps an error raised by a runtime constructor
func ConstructorFailed(class string, header uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindConstructor,
		Class:  class,
		Addr:   header,
		Detail: "constructor raised an error",
		Cause:  cause,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, class, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Class:  class,
		GoType: want,
		Detail: fmt.Sprintf("state slot holds %s", got),
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds memory error
func OutOfBounds(phase Phase, addr, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Addr:   addr,
		Detail: fmt.Sprintf("access of %d bytes out of bounds", length),
		Value:  length,
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

// Registration creates a class registration error
func Registration(class string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Class:  class,
		Detail: "class registration rejected",
		Cause:  cause,
	}
}

// Destroyed reports use of a header whose object was already torn down
func Destroyed(phase Phase, header uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDestroyed,
		Addr:   header,
		Detail: "object already destroyed",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
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
