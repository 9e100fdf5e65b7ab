// Package bytecode defines the compiled form of a Piet program: a flat
// instruction list plus the debug metadata the debugger and wasmemit
// packages need, mirroring the teacher's opcode struct ({inst, name,
// mode, bytes, cycles}) which likewise pairs a bare executable opcode
// with everything a disassembler wants to know about it.
package bytecode

import (
	"fmt"

	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
)

// Op is a bytecode operation: Nop, the 17 Piet stack operations, and
// Halt, emitted when routing cannot find a valid exit after all 8
// attempts.
type Op uint8

const (
	Nop Op = iota
	Push
	Pop
	Add
	Sub
	Mul
	Div
	Mod
	Not
	Greater
	Pointer
	Switch
	Dup
	Roll
	InNum
	InChar
	OutNum
	OutChar
	Halt
)

var opNames = [...]string{
	Nop: "nop", Push: "push", Pop: "pop", Add: "add", Sub: "sub", Mul: "mul",
	Div: "div", Mod: "mod", Not: "not", Greater: "greater", Pointer: "pointer",
	Switch: "switch", Dup: "dup", Roll: "roll", InNum: "in.num", InChar: "in.char",
	OutNum: "out.num", OutChar: "out.char", Halt: "halt",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// FromPaletteOp converts a palette.Operation (a chromatic-transition
// result) to its bytecode.Op. The two enums share ordinal values for the
// 18 shared operations by construction.
func FromPaletteOp(o palette.Operation) Op {
	return Op(o)
}

// Instruction is one executable bytecode step: an operation plus its
// immediate operand (Push's amount) and successor instruction indices.
//
// Successors holds the possible next-instruction indices: length 1 for
// every operation except Pointer (length 4, indexed by the rotation
// amount mod 4) and Switch (length 2, indexed by whether the popped
// toggle count is odd), and length 0 for Halt.
type Instruction struct {
	Op         Op
	Arg        int
	Successors []int
}

// RichInstruction pairs an Instruction with the source-grid metadata
// that produced it, for the debugger's snapshot view and the CLI's
// compile listing.
type RichInstruction struct {
	Instruction
	Block grid.BlockId
	Pos   grid.Position
	DP    grid.Direction
	CC    grid.CodelChooser
}

// StateKey identifies one exact (position, DP, CC) execution state; it
// is the key of Program.StateIndex.
type StateKey struct {
	Pos grid.Position
	DP  grid.Direction
	CC  grid.CodelChooser
}

// Program is a compiled Piet program: a flat instruction list, its rich
// debug-metadata twin, and an index from exact runtime states to
// instruction indices.
type Program struct {
	Instructions []Instruction
	Rich         []RichInstruction

	// StateIndex maps a (position, DP, CC) state to its instruction
	// index, for every state the BFS compiler actually visited. Only
	// chromatic block-exit states are deduplicated by (block, DP, CC);
	// white-slide entry states are keyed here by their exact entry
	// position, since two different entry codels into the same white
	// region can produce different landings.
	StateIndex map[StateKey]int

	// EntryIndex is the instruction index execution starts at: the
	// state for the grid's top-left codel, DP=Right, CC=Left.
	EntryIndex int
}

// IndexFor looks up the instruction index for an exact runtime state,
// locating an instruction without recomputing routing. (The debugger
// itself advances through Instruction.Successors.) ok is false if this exact state was never
// visited during compilation (should not happen for any state reachable
// from the program's entry state).
func (p *Program) IndexFor(pos grid.Position, dp grid.Direction, cc grid.CodelChooser) (int, bool) {
	idx, ok := p.StateIndex[StateKey{Pos: pos, DP: dp, CC: cc}]
	return idx, ok
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int { return len(p.Instructions) }

// Metadata returns the RichInstruction for instruction index i.
func (p *Program) Metadata(i int) RichInstruction {
	return p.Rich[i]
}
