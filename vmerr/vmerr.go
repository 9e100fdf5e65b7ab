// Package vmerr defines the sentinel and typed errors shared by grid,
// compiler, vm and debugger, following the teacher's
// package-level-sentinel-error style (mos6502.go's
// var invalidInstruction = errors.New(...)).
package vmerr

import "fmt"

// ErrHalted is returned when an operation is attempted against a VM or
// Debugger that has already run off the edge of the program (no valid
// exit found after all 8 routing attempts).
var ErrHalted = fmt.Errorf("pietvm: halted")

// ErrInvalidInput is returned when InChar/InNum input is requested but
// the supplied input buffer does not contain a parseable value.
var ErrInvalidInput = fmt.Errorf("pietvm: invalid input")

// ErrStackUnderflow names the condition of an operation that requires
// more operands than are currently on the stack. opsem treats underflow
// as a silent no-op per spec.md, so no function in this module returns
// it.
var ErrStackUnderflow = fmt.Errorf("pietvm: stack underflow")

// ErrDivisionByZero names the condition of a Div/Mod whose divisor is
// zero. As with ErrStackUnderflow, opsem treats this as a no-op, so no
// function in this module returns it.
var ErrDivisionByZero = fmt.Errorf("pietvm: division by zero")

// ErrNoActiveBreakpoint names a resume request made while the debugger
// is not paused at a breakpoint. The debugger's Run and RunSteps do not
// return it: they resume from any pc.
var ErrNoActiveBreakpoint = fmt.Errorf("pietvm: no active breakpoint")

// ErrWaitingForInput is returned when Step/Run is called while the
// executor is suspended awaiting InChar/InNum input.
var ErrWaitingForInput = fmt.Errorf("pietvm: waiting for input")

// ExecutionTimeoutError is returned when a VM or Debugger run exceeds its
// configured maximum step count, carrying the count for diagnostics.
type ExecutionTimeoutError struct {
	Steps int
}

func (e ExecutionTimeoutError) Error() string {
	return fmt.Sprintf("pietvm: execution timeout after %d steps", e.Steps)
}

// OutOfBoundsError is returned (or panicked, per grid.Grid.ColorAt) when
// a coordinate lies outside the grid.
type OutOfBoundsError struct {
	X, Y int
}

func (e OutOfBoundsError) Error() string {
	return fmt.Sprintf("pietvm: (%d,%d) out of bounds", e.X, e.Y)
}

// InvalidColorError is returned when strict palette mode encounters a
// pixel whose RGB triple is not one of the 20 canonical Piet colors.
type InvalidColorError struct {
	R, G, B uint8
}

func (e InvalidColorError) Error() string {
	return fmt.Sprintf("pietvm: invalid color rgb(%d,%d,%d)", e.R, e.G, e.B)
}
