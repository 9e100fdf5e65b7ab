// Package debugger implements a bytecode/index-driven Piet executor: it
// walks a precompiled bytecode.Program using the instruction index as
// its program counter instead of recomputing routing on every step, and
// adds breakpoints, tracing and I/O-wait suspension on top. It shares
// opsem's stack semantics with vm so the two executors can never
// disagree, and its breakpoint/step/run surface is grounded on
// gintendo.go/console/bus.go's BIOS() REPL (set breakpoint, step, run,
// reset, inspect).
package debugger

import (
	"fmt"

	"github.com/bdwalton/pietvm/bytecode"
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/internal/plog"
	"github.com/bdwalton/pietvm/opsem"
	"github.com/bdwalton/pietvm/palette"
	"github.com/bdwalton/pietvm/pietio"
	"github.com/bdwalton/pietvm/vmerr"
)

// DefaultMaxSteps bounds Run's step count as a watchdog.
const DefaultMaxSteps = 10_000_000

// Options configures a Debugger.
type Options struct {
	MaxSteps int
	Logger   *plog.Logger
}

// Debugger is a bytecode-driven Piet executor with breakpoint and trace
// support.
type Debugger struct {
	prog *bytecode.Program

	pc          int
	stack       opsem.Stack
	halted      bool
	waiting     bool
	waitingKind pietio.Kind
	steps       int

	maxSteps int

	breakpoints map[int]bool
	trace       []string

	input  []pietio.Value
	output []pietio.Value

	log *plog.Logger
}

// New constructs a Debugger over prog, starting at prog.EntryIndex.
func New(prog *bytecode.Program, opts Options) *Debugger {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := opts.Logger
	if logger == nil {
		logger = plog.Nop()
	}
	return &Debugger{
		prog:        prog,
		pc:          prog.EntryIndex,
		maxSteps:    maxSteps,
		breakpoints: make(map[int]bool),
		log:         logger,
	}
}

// Snapshot is a point-in-time view of Debugger state.
type Snapshot struct {
	PC      int
	Pos     grid.Position
	DP      grid.Direction
	CC      grid.CodelChooser
	Stack   []int64
	Halted  bool
	Waiting bool
	Steps   int
}

// Snapshot returns the debugger's current state.
func (d *Debugger) Snapshot() Snapshot {
	stack := make([]int64, len(d.stack))
	copy(stack, d.stack)
	rich := d.prog.Metadata(d.pc)
	return Snapshot{
		PC:      d.pc,
		Pos:     rich.Pos,
		DP:      rich.DP,
		CC:      rich.CC,
		Stack:   stack,
		Halted:  d.halted,
		Waiting: d.waiting,
		Steps:   d.steps,
	}
}

// Reset returns the debugger to the program's entry instruction with an
// empty stack and empty I/O buffers. Breakpoints are preserved.
func (d *Debugger) Reset() {
	d.pc = d.prog.EntryIndex
	d.stack = nil
	d.halted = false
	d.waiting = false
	d.steps = 0
	d.trace = nil
	d.input = nil
	d.output = nil
}

// SetBreakpoint arms a breakpoint at instruction index pc.
func (d *Debugger) SetBreakpoint(pc int) {
	d.breakpoints[pc] = true
}

// ClearBreakpoint disarms a breakpoint at instruction index pc.
func (d *Debugger) ClearBreakpoint(pc int) {
	delete(d.breakpoints, pc)
}

// Breakpoints returns the currently armed breakpoint indices.
func (d *Debugger) Breakpoints() []int {
	out := make([]int, 0, len(d.breakpoints))
	for pc := range d.breakpoints {
		out = append(out, pc)
	}
	return out
}

// IsWaitingForInput reports whether Step/Run is suspended awaiting
// ProvideInput/ProvideInputChar.
func (d *Debugger) IsWaitingForInput() bool { return d.waiting }

// WaitingKind reports which kind of input is pending when
// IsWaitingForInput is true: Number for a suspended InNum, Char for a
// suspended InChar. ok is false if the debugger isn't waiting.
func (d *Debugger) WaitingKind() (kind pietio.Kind, ok bool) {
	if !d.waiting {
		return 0, false
	}
	return d.waitingKind, true
}

// Halted reports whether execution has run off the edge of the program.
func (d *Debugger) Halted() bool { return d.halted }

// ProvideInput queues a number for the next pending InNum and clears any
// waiting suspension.
func (d *Debugger) ProvideInput(n int64) {
	d.input = append(d.input, pietio.NumberValue(n))
	d.waiting = false
}

// ProvideInputChar queues a character for the next pending InChar and
// clears any waiting suspension.
func (d *Debugger) ProvideInputChar(r rune) {
	d.input = append(d.input, pietio.CharValue(r))
	d.waiting = false
}

// Ink returns the values written via OutNum/OutChar so far.
func (d *Debugger) Ink() []pietio.Value {
	out := make([]pietio.Value, len(d.output))
	copy(out, d.output)
	return out
}

// Trace returns one line per executed instruction since the last Reset,
// in execution order.
func (d *Debugger) Trace() []string {
	out := make([]string, len(d.trace))
	copy(out, d.trace)
	return out
}

type debuggerIO struct{ d *Debugger }

func (io debuggerIO) ReadNumber() (int64, error) {
	d := io.d
	if len(d.input) == 0 {
		d.waiting = true
		d.waitingKind = pietio.Number
		return 0, vmerr.ErrWaitingForInput
	}
	val := d.input[0]
	d.input = d.input[1:]
	if val.Kind != pietio.Number {
		return 0, vmerr.ErrInvalidInput
	}
	return val.Num, nil
}

func (io debuggerIO) ReadChar() (rune, error) {
	d := io.d
	if len(d.input) == 0 {
		d.waiting = true
		d.waitingKind = pietio.Char
		return 0, vmerr.ErrWaitingForInput
	}
	val := d.input[0]
	d.input = d.input[1:]
	if val.Kind != pietio.Char {
		return 0, vmerr.ErrInvalidInput
	}
	return val.Ch, nil
}

func (io debuggerIO) WriteNumber(n int64) error {
	io.d.output = append(io.d.output, pietio.NumberValue(n))
	return nil
}

func (io debuggerIO) WriteChar(r rune) error {
	io.d.output = append(io.d.output, pietio.CharValue(r))
	return nil
}

// toPaletteOp converts a bytecode.Op back to the palette.Operation
// opsem.ExecuteOp expects. ok is false for Halt, which opsem never
// executes.
func toPaletteOp(op bytecode.Op) (palette.Operation, bool) {
	if op == bytecode.Halt {
		return 0, false
	}
	return palette.Operation(op), true
}

// Step executes exactly one instruction: it runs the current
// instruction's operation against the stack, then picks the next pc
// from the instruction's Successors, resolving Pointer's 4-way and
// Switch's 2-way dynamic fan-out from the operation's own stack effect
// rather than recomputing routing.
func (d *Debugger) Step() error {
	if d.halted {
		return vmerr.ErrHalted
	}
	if d.waiting {
		return vmerr.ErrWaitingForInput
	}

	inst := d.prog.Instructions[d.pc]
	rich := d.prog.Metadata(d.pc)

	paletteOp, ok := toPaletteOp(inst.Op)
	if !ok {
		d.halted = true
		return vmerr.ErrHalted
	}

	dp, cc := rich.DP, rich.CC
	err := opsem.ExecuteOp(&d.stack, paletteOp, inst.Arg, &dp, &cc, debuggerIO{d})
	if err != nil {
		return err
	}

	next := resolveSuccessor(inst, paletteOp, rich.DP, rich.CC, dp, cc)
	d.trace = append(d.trace, fmt.Sprintf("%d: %v -> %d", d.pc, inst.Op, next))
	d.pc = next
	d.steps++
	d.log.Debugf("step %d: pc=%d %v stack=%v", d.steps, d.pc, inst.Op, []int64(d.stack))
	return nil
}

// resolveSuccessor picks the next instruction index for inst, given the
// DP/CC the instruction started with and the DP/CC opsem.ExecuteOp
// produced. For Pointer/Switch this decodes which of the statically
// enumerated successors the runtime stack value selected; every other
// operation has exactly one successor.
func resolveSuccessor(inst bytecode.Instruction, op palette.Operation, beforeDP grid.Direction, beforeCC grid.CodelChooser, afterDP grid.Direction, afterCC grid.CodelChooser) int {
	switch op {
	case palette.Pointer:
		for k := 0; k < 4; k++ {
			if beforeDP.RotateCW(k) == afterDP {
				return inst.Successors[k]
			}
		}
		return inst.Successors[0]
	case palette.Switch:
		if afterCC != beforeCC {
			return inst.Successors[1]
		}
		return inst.Successors[0]
	default:
		return inst.Successors[0]
	}
}

// Run executes Step repeatedly until the program halts, lands on an
// armed breakpoint, suspends on missing input, or exceeds its step
// budget. A breakpoint at the current pc when Run is called does not
// stop Run immediately (the caller is presumably resuming from exactly
// that breakpoint); it only stops Run once execution lands there again.
func (d *Debugger) Run() error {
	first := true
	for {
		if d.halted {
			return nil
		}
		if d.waiting {
			return vmerr.ErrWaitingForInput
		}
		if !first && d.breakpoints[d.pc] {
			return nil
		}
		if d.steps >= d.maxSteps {
			return vmerr.ExecutionTimeoutError{Steps: d.steps}
		}
		if err := d.Step(); err != nil {
			if err == vmerr.ErrHalted {
				return nil
			}
			return err
		}
		first = false
		if d.breakpoints[d.pc] {
			return nil
		}
	}
}

// RunSteps executes up to n Steps, stopping early on halt, a breakpoint
// landed on mid-run, or input suspension.
func (d *Debugger) RunSteps(n int) error {
	for i := 0; i < n; i++ {
		if d.halted || d.waiting {
			return nil
		}
		if i > 0 && d.breakpoints[d.pc] {
			return nil
		}
		if err := d.Step(); err != nil {
			if err == vmerr.ErrHalted {
				return nil
			}
			return err
		}
		if d.breakpoints[d.pc] {
			return nil
		}
	}
	return nil
}
