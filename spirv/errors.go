package spirv

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes shader compilation errors.
type ErrorKind uint8

const (
	// ErrMalformedBinary indicates a bad magic number, a truncated stream,
	// or an inconsistent instruction word count.
	ErrMalformedBinary ErrorKind = iota

	// ErrUnsupportedFeature indicates an execution model, capability,
	// storage class, type width, or opcode outside the supported set.
	ErrUnsupportedFeature

	// ErrStructuralViolation indicates a dangling or duplicate id, a
	// decoration on an unknown target, or an incomplete block layout.
	ErrStructuralViolation

	// ErrEntryPointMissing indicates zero or several entry points, or an
	// entry point that does not name a function.
	ErrEntryPointMissing
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedBinary:
		return "MalformedBinary"
	case ErrUnsupportedFeature:
		return "UnsupportedFeature"
	case ErrStructuralViolation:
		return "StructuralViolation"
	case ErrEntryPointMissing:
		return "EntryPointMissing"
	default:
		return "Unknown"
	}
}

// Error represents a failure to decode or lower a shader module.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Module is the name the module was compiled under.
	Module string

	// Offset is the word offset of the offending instruction, or -1.
	Offset int

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := "spirv"
	if e.Module != "" {
		prefix = e.Module
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at word %d: %s", prefix, e.Kind, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Kind, e.Message)
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &Error{Kind: ErrUnsupportedFeature}) matches any
// unsupported-feature error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t == e || (t.Kind == e.Kind && t.Message == "")
}

// NewError creates an error of the given kind without an offset.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Offset:  -1,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of err if it wraps an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
