package interp

import (
	"errors"
	"fmt"

	"github.com/szx/vkswr/il"
)

// ErrFatal is wrapped by every execution failure.
var ErrFatal = errors.New("interpreter fatal")

// ExecError reports the instruction an invocation failed on.
type ExecError struct {
	// PC is the index of the failing instruction, or -1 when the failure
	// happened while setting up stage inputs.
	PC int

	// Instruction is the failing instruction, or nil.
	Instruction il.Instruction

	// Err is the underlying failure. It wraps ErrFatal.
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Instruction == nil {
		return fmt.Sprintf("interp: %v", e.Err)
	}
	return fmt.Sprintf("interp: pc %d (%s): %v", e.PC, il.FormatInstruction(e.Instruction), e.Err)
}

// Unwrap returns the underlying failure.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// fatalf creates an error wrapping ErrFatal.
func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}
