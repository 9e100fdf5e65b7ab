// Package compiler performs a breadth-first walk of a Grid's reachable
// (position, DP, CC) states, using engine.Stroke to discover each
// state's operation and successors, and flattens the result into a
// bytecode.Program. The dedup-by-key registry this BFS builds is
// generalized from mappers/mapper_basics.go's RegisterMapper pattern:
// "look up an existing entry for this key, or register a new one,"
// exactly what chromatic-block dedup needs.
package compiler

import (
	"github.com/bdwalton/pietvm/bytecode"
	"github.com/bdwalton/pietvm/engine"
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
)

// Options configures compilation.
type Options struct {
	// MaxSlide bounds SlideThroughWhite's step budget during
	// compilation; 0 selects router.DefaultMaxSlide.
	MaxSlide int
}

// dedupKey identifies one BFS-visitable state for the purposes of
// instruction reuse: chromatic states dedup by (block, dp, cc) since
// every codel in a block behaves identically; white states dedup by
// their exact (pos, dp, cc) since SlideThroughWhite's outcome depends
// on the entry codel.
type dedupKey struct {
	chromatic bool
	block     grid.BlockId
	pos       grid.Position
	dp        grid.Direction
	cc        grid.CodelChooser
}

type pendingState struct {
	pos grid.Position
	dp  grid.Direction
	cc  grid.CodelChooser
}

// Compile walks every state reachable from the grid's top-left codel
// (DP=Right, CC=Left) and produces a flattened, deduplicated
// bytecode.Program.
func Compile(g *grid.Grid, opts Options) *bytecode.Program {
	prog := &bytecode.Program{
		StateIndex: make(map[bytecode.StateKey]int),
	}
	assigned := make(map[dedupKey]int)

	var queue []pendingState
	entry := pendingState{pos: grid.Position{X: 0, Y: 0}, dp: grid.Right, cc: grid.CCLeft}
	queue = append(queue, entry)

	// indexOf returns the instruction index for st, assigning and
	// enqueueing a new one the first time st (or its dedup-equivalent
	// state) is encountered.
	var indexOf func(st pendingState) int
	indexOf = func(st pendingState) int {
		key := keyFor(g, st)
		if idx, ok := assigned[key]; ok {
			recordStateIndex(prog, g, st, idx)
			return idx
		}
		idx := len(prog.Instructions)
		assigned[key] = idx
		prog.Instructions = append(prog.Instructions, bytecode.Instruction{})
		prog.Rich = append(prog.Rich, bytecode.RichInstruction{})
		recordStateIndex(prog, g, st, idx)
		queue = append(queue, st)
		return idx
	}

	prog.EntryIndex = indexOf(entry)

	for len(queue) > 0 {
		st := queue[0]
		queue = queue[1:]
		idx := assigned[keyFor(g, st)]

		out := engine.Stroke(g, st.pos, st.dp, st.cc, opts.MaxSlide)
		blockID, _ := g.BlockIDAt(st.pos)

		if out.Halted {
			prog.Instructions[idx] = bytecode.Instruction{Op: bytecode.Halt}
			prog.Rich[idx] = bytecode.RichInstruction{
				Instruction: prog.Instructions[idx],
				Block:       blockID,
				Pos:         st.pos,
				DP:          st.dp,
				CC:          st.cc,
			}
			continue
		}

		op := bytecode.FromPaletteOp(out.Op)
		var successors []int

		switch out.Op {
		case palette.Pointer:
			successors = make([]int, 4)
			for k := 0; k < 4; k++ {
				successors[k] = indexOf(pendingState{pos: out.Landing, dp: out.DP.RotateCW(k), cc: out.CC})
			}
		case palette.Switch:
			successors = make([]int, 2)
			successors[0] = indexOf(pendingState{pos: out.Landing, dp: out.DP, cc: out.CC})
			successors[1] = indexOf(pendingState{pos: out.Landing, dp: out.DP, cc: out.CC.Toggle()})
		default:
			successors = []int{indexOf(pendingState{pos: out.Landing, dp: out.DP, cc: out.CC})}
		}

		inst := bytecode.Instruction{Op: op, Arg: out.PushCount, Successors: successors}
		prog.Instructions[idx] = inst
		prog.Rich[idx] = bytecode.RichInstruction{
			Instruction: inst,
			Block:       blockID,
			Pos:         st.pos,
			DP:          st.dp,
			CC:          st.cc,
		}
	}

	return prog
}

func keyFor(g *grid.Grid, st pendingState) dedupKey {
	blockID, _ := g.BlockIDAt(st.pos)
	if g.BlockInfo(blockID).Color == palette.White {
		return dedupKey{chromatic: false, pos: st.pos, dp: st.dp, cc: st.cc}
	}
	return dedupKey{chromatic: true, block: blockID, dp: st.dp, cc: st.cc}
}

// recordStateIndex populates prog.StateIndex so a debugger's exact
// runtime (pos, dp, cc) can always be looked up directly, even though
// the BFS itself dedups chromatic states at block granularity. For a
// chromatic state this means every codel in the block maps to the same
// instruction index.
func recordStateIndex(prog *bytecode.Program, g *grid.Grid, st pendingState, idx int) {
	blockID, _ := g.BlockIDAt(st.pos)
	block := g.BlockInfo(blockID)
	if block.Color == palette.White {
		prog.StateIndex[bytecode.StateKey{Pos: st.pos, DP: st.dp, CC: st.cc}] = idx
		return
	}
	for _, p := range block.Positions {
		prog.StateIndex[bytecode.StateKey{Pos: p, DP: st.dp, CC: st.cc}] = idx
	}
}
