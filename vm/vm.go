// Package vm implements the grid-driven Piet executor: a struct-owned
// register/stack machine that recomputes routing on every step rather
// than running against precompiled bytecode, grounded on the teacher's
// mos6502 cpu struct and its step() method (register/stack state owned
// directly on the struct, a cycle-style counter for watchdogging, and a
// String() method for REPL display).
package vm

import (
	"context"
	"fmt"

	"github.com/bdwalton/pietvm/engine"
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/internal/plog"
	"github.com/bdwalton/pietvm/opsem"
	"github.com/bdwalton/pietvm/pietio"
	"github.com/bdwalton/pietvm/vmerr"
)

// DefaultMaxSteps bounds Play's step count as a watchdog against
// infinite loops in a malformed or adversarial program.
const DefaultMaxSteps = 10_000_000

// Options configures a VM.
type Options struct {
	// MaxSteps bounds Play(); 0 selects DefaultMaxSteps.
	MaxSteps int
	// MaxSlide bounds each Stroke's white-region slide; 0 selects
	// router.DefaultMaxSlide.
	MaxSlide int
	// Logger receives optional per-step trace output; nil is silent.
	Logger *plog.Logger
}

// VM is a grid-driven Piet executor. It owns its own position, DP, CC
// and operand stack, and a pending-input queue and output log for
// InNum/InChar/OutNum/OutChar.
type VM struct {
	g *grid.Grid

	pos grid.Position
	dp  grid.Direction
	cc  grid.CodelChooser

	stack opsem.Stack

	halted  bool
	waiting bool
	steps   int

	maxSteps int
	maxSlide int

	input  []pietio.Value
	output []pietio.Value

	log *plog.Logger
}

// New constructs a VM over an already-built Grid, positioned at the
// grid's top-left codel with DP=Right, CC=Left, per spec.md's initial
// state.
func New(g *grid.Grid, opts Options) *VM {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := opts.Logger
	if logger == nil {
		logger = plog.Nop()
	}
	return &VM{
		g:        g,
		pos:      grid.Position{X: 0, Y: 0},
		dp:       grid.Right,
		cc:       grid.CCLeft,
		maxSteps: maxSteps,
		maxSlide: opts.MaxSlide,
		log:      logger,
	}
}

// Paint builds a Grid from a raw RGBA buffer and returns a fresh VM over
// it, combining grid.New and vm.New the way an interpreter's "load and
// run" entry point usually wants to.
func Paint(rgba []byte, width, height, codelSize int, gridOpts grid.Options, vmOpts Options) (*VM, error) {
	g, err := grid.New(rgba, width, height, codelSize, gridOpts)
	if err != nil {
		return nil, err
	}
	return New(g, vmOpts), nil
}

// Snapshot is a point-in-time view of VM state, safe to retain after the
// VM continues executing (the Stack is a defensive copy).
type Snapshot struct {
	Pos     grid.Position
	DP      grid.Direction
	CC      grid.CodelChooser
	Stack   []int64
	Halted  bool
	Waiting bool
	Steps   int
}

// Snapshot returns the VM's current state.
func (v *VM) Snapshot() Snapshot {
	stack := make([]int64, len(v.stack))
	copy(stack, v.stack)
	return Snapshot{
		Pos:     v.pos,
		DP:      v.dp,
		CC:      v.cc,
		Stack:   stack,
		Halted:  v.halted,
		Waiting: v.waiting,
		Steps:   v.steps,
	}
}

// SetMaxSteps overrides the watchdog step budget for subsequent Play
// calls.
func (v *VM) SetMaxSteps(n int) {
	if n <= 0 {
		n = DefaultMaxSteps
	}
	v.maxSteps = n
}

// Reset returns the VM to its initial state (top-left codel, DP=Right,
// CC=Left, empty stack, empty I/O buffers) without rebuilding the grid.
func (v *VM) Reset() {
	v.pos = grid.Position{X: 0, Y: 0}
	v.dp = grid.Right
	v.cc = grid.CCLeft
	v.stack = nil
	v.halted = false
	v.waiting = false
	v.steps = 0
	v.input = nil
	v.output = nil
}

// Input queues a number for the next InNum read.
func (v *VM) Input(n int64) {
	v.input = append(v.input, pietio.NumberValue(n))
	v.waiting = false
}

// InputChar queues a character for the next InChar read.
func (v *VM) InputChar(r rune) {
	v.input = append(v.input, pietio.CharValue(r))
	v.waiting = false
}

// Ink returns the values the program has written via OutNum/OutChar so
// far, in emission order.
func (v *VM) Ink() []pietio.Value {
	out := make([]pietio.Value, len(v.output))
	copy(out, v.output)
	return out
}

// InkString renders Ink as the program would print it to a terminal:
// numbers as decimal text, characters literally.
func (v *VM) InkString() string {
	var sb []byte
	for _, val := range v.output {
		sb = append(sb, val.String()...)
	}
	return string(sb)
}

// Halted reports whether the program has run off the edge of the grid.
func (v *VM) Halted() bool { return v.halted }

// Waiting reports whether the VM is suspended awaiting InNum/InChar
// input via Input/InputChar.
func (v *VM) Waiting() bool { return v.waiting }

// PreviewStroke reports what the next Stroke would do without mutating
// VM state, for debug UIs that want to show the pending operation.
func (v *VM) PreviewStroke() engine.Outcome {
	return engine.Stroke(v.g, v.pos, v.dp, v.cc, v.maxSlide)
}

// vmIO adapts a VM's pending-input queue and output log to opsem.IOPort.
type vmIO struct{ v *VM }

func (io vmIO) ReadNumber() (int64, error) {
	v := io.v
	if len(v.input) == 0 {
		v.waiting = true
		return 0, vmerr.ErrWaitingForInput
	}
	val := v.input[0]
	v.input = v.input[1:]
	if val.Kind != pietio.Number {
		return 0, vmerr.ErrInvalidInput
	}
	return val.Num, nil
}

func (io vmIO) ReadChar() (rune, error) {
	v := io.v
	if len(v.input) == 0 {
		v.waiting = true
		return 0, vmerr.ErrWaitingForInput
	}
	val := v.input[0]
	v.input = v.input[1:]
	if val.Kind != pietio.Char {
		return 0, vmerr.ErrInvalidInput
	}
	return val.Ch, nil
}

func (io vmIO) WriteNumber(n int64) error {
	io.v.output = append(io.v.output, pietio.NumberValue(n))
	return nil
}

func (io vmIO) WriteChar(r rune) error {
	io.v.output = append(io.v.output, pietio.CharValue(r))
	return nil
}

// Stroke executes exactly one Piet "move": it routes from the VM's
// current state to the next operation (possibly sliding across a white
// region), applies that operation's stack semantics, and commits the
// new position/DP/CC. Per spec.md, Pointer and Switch mutate the
// post-routing DP'/CC' before the commit, so ExecuteOp is applied
// against local copies that are only assigned back to the VM once
// execution has finished.
func (v *VM) Stroke() error {
	if v.halted {
		return vmerr.ErrHalted
	}
	if v.waiting {
		return vmerr.ErrWaitingForInput
	}

	out := engine.Stroke(v.g, v.pos, v.dp, v.cc, v.maxSlide)
	if out.Halted {
		v.halted = true
		return vmerr.ErrHalted
	}

	finalDP, finalCC := out.DP, out.CC
	err := opsem.ExecuteOp(&v.stack, out.Op, out.PushCount, &finalDP, &finalCC, vmIO{v})
	v.steps++
	if err != nil {
		if err == vmerr.ErrWaitingForInput {
			// Execution did not consume a move; retry this exact
			// Stroke once input arrives.
			v.steps--
			return err
		}
		return err
	}

	v.pos, v.dp, v.cc = out.Landing, finalDP, finalCC
	v.log.Debugf("step %d: %v at %v -> %v, dp=%v cc=%v, stack=%v", v.steps, out.Op, out.Landing, v.pos, v.dp, v.cc, []int64(v.stack))
	return nil
}

// Play runs Stroke until the program halts, suspends on missing input,
// exceeds its configured step budget, or ctx is cancelled. Grounded on
// the teacher's cpu.Run(ctx, breaks), which checks ctx.Done() on every
// tick of its own run loop so a BIOS()-installed SIGINT/SIGTERM can stop
// a runaway program; ctx may be context.Background() for a caller that
// has no cancellation source of its own.
func (v *VM) Play(ctx context.Context) error {
	for {
		if v.halted {
			return nil
		}
		if v.waiting {
			return vmerr.ErrWaitingForInput
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if v.steps >= v.maxSteps {
			return vmerr.ExecutionTimeoutError{Steps: v.steps}
		}
		if err := v.Stroke(); err != nil {
			if err == vmerr.ErrHalted {
				return nil
			}
			return err
		}
	}
}

// String renders a one-line debug view, in the teacher's style of giving
// its cpu/ppu types a terse String() for REPL display.
func (v *VM) String() string {
	return fmt.Sprintf("pos=%v dp=%v cc=%v stack=%v steps=%d halted=%v",
		v.pos, v.dp, v.cc, []int64(v.stack), v.steps, v.halted)
}
