// Package engine implements the single "take one stroke" step shared by
// the compiler (which uses it to discover successor states during its
// BFS) and the vm (which uses it to execute live, without ever
// materializing bytecode). Keeping this logic in one place is what
// guarantees the two executors can never disagree, the same role the
// teacher's getOperandAddr/branch helpers play shared between gintendo's
// disassembler and its live CPU.
package engine

import (
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
	"github.com/bdwalton/pietvm/router"
)

// Outcome is the result of one Stroke: either a Halt, or an operation to
// execute plus the landing state execution should continue from.
type Outcome struct {
	Halted bool

	Op        palette.Operation
	PushCount int // the size of the block exited; Push's operand

	Landing grid.Position
	DP      grid.Direction
	CC      grid.CodelChooser

	FromBlock grid.BlockId
	ToBlock   grid.BlockId
}

// Stroke executes one Piet "move" from (pos, dp, cc): it finds a valid
// exit from the current block (or, if pos sits on a white codel chain,
// slides across it), and reports the operation encoded by the color
// transition along with the new position/DP/CC. maxSlide bounds
// SlideThroughWhite; 0 selects router.DefaultMaxSlide.
func Stroke(g *grid.Grid, pos grid.Position, dp grid.Direction, cc grid.CodelChooser, maxSlide int) Outcome {
	blockID, _ := g.BlockIDAt(pos)
	block := g.BlockInfo(blockID)

	if block.Color == palette.Black {
		return Outcome{Halted: true}
	}

	if block.Color == palette.White {
		landing, fdp, fcc, ok := router.SlideThroughWhite(g, pos, dp, cc, maxSlide)
		if !ok {
			return Outcome{Halted: true}
		}
		toBlock, _ := g.BlockIDAt(landing)
		return Outcome{
			Op:        palette.Nop,
			Landing:   landing,
			DP:        fdp,
			CC:        fcc,
			FromBlock: blockID,
			ToBlock:   toBlock,
		}
	}

	next, fdp, fcc, ok := router.FindValidExit(g, blockID, dp, cc)
	if !ok {
		return Outcome{Halted: true}
	}

	toBlockID, _ := g.BlockIDAt(next)
	toColor := g.ColorAt(next)

	if toColor == palette.White {
		landing, fdp2, fcc2, ok := router.SlideThroughWhite(g, next, fdp, fcc, maxSlide)
		if !ok {
			return Outcome{Halted: true}
		}
		landedBlock, _ := g.BlockIDAt(landing)
		return Outcome{
			Op:        palette.Nop,
			Landing:   landing,
			DP:        fdp2,
			CC:        fcc2,
			FromBlock: blockID,
			ToBlock:   landedBlock,
		}
	}

	toBlock := g.BlockInfo(toBlockID)
	fromHue, fromLight, _ := block.Color.HueLightness()
	toHue, toLight, _ := toBlock.Color.HueLightness()
	op := palette.OperationFor(fromHue, fromLight, toHue, toLight)

	return Outcome{
		Op:        op,
		PushCount: block.Size(),
		Landing:   next,
		DP:        fdp,
		CC:        fcc,
		FromBlock: blockID,
		ToBlock:   toBlockID,
	}
}
