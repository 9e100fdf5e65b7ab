// Package router implements Piet's exit-finding rules: the 8-attempt
// DP/CC rotation schedule used to leave a chromatic block, and the
// straight-line slide used to cross a white region. Both compiler and vm
// call into this package so the two executors can never disagree about
// routing, the same way the teacher's getOperandAddr is the single
// addressing-mode resolver shared by disassembly and live execution.
package router

import (
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
)

// DefaultMaxSlide bounds SlideThroughWhite's total step count as a
// backstop against pathological white regions; callers may pass their own
// budget (e.g. a VM's configured max steps) instead.
const DefaultMaxSlide = 1 << 20

// FindValidExit looks for a non-black codel reachable by stepping out of
// block in direction dp from the codel chosen by cc. If the immediate
// attempt fails (off-grid, or the neighbor is black), it rotates through
// the standard 8-attempt schedule: CC toggles on even-indexed attempts,
// DP rotates clockwise on odd-indexed attempts. ok is false if all 8
// attempts fail, meaning the program halts at this block.
func FindValidExit(g *grid.Grid, block grid.BlockId, dp grid.Direction, cc grid.CodelChooser) (next grid.Position, finalDP grid.Direction, finalCC grid.CodelChooser, ok bool) {
	curDP, curCC := dp, cc
	for attempt := 0; attempt < 8; attempt++ {
		n, inBounds := g.Exit(block, curDP, curCC)
		if inBounds && g.ColorAt(n) != palette.Black {
			return n, curDP, curCC, true
		}
		if attempt%2 == 0 {
			curCC = curCC.Toggle()
		} else {
			curDP = curDP.RotateCW(1)
		}
	}
	return grid.Position{}, curDP, curCC, false
}

// SlideThroughWhite walks in a straight line from start, crossing white
// codels, until it lands on the first non-white, non-black codel. When
// blocked (off-grid or black ahead) it applies the same 8-attempt
// rotation schedule as FindValidExit; a successful step resets the
// attempt counter. It fails (ok=false) if 8 consecutive attempts are
// blocked without a successful step, or if maxSteps total steps are
// exhausted first.
func SlideThroughWhite(g *grid.Grid, start grid.Position, dp grid.Direction, cc grid.CodelChooser, maxSteps int) (landing grid.Position, finalDP grid.Direction, finalCC grid.CodelChooser, ok bool) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSlide
	}
	pos := start
	curDP, curCC := dp, cc
	attempts := 0

	for total := 0; total < maxSteps; total++ {
		if attempts >= 8 {
			return pos, curDP, curCC, false
		}
		next := pos.Offset(curDP)
		if g.InBounds(next) && g.ColorAt(next) != palette.Black {
			pos = next
			attempts = 0
			if g.ColorAt(pos) != palette.White {
				return pos, curDP, curCC, true
			}
			continue
		}
		if attempts%2 == 0 {
			curCC = curCC.Toggle()
		} else {
			curDP = curDP.RotateCW(1)
		}
		attempts++
	}
	return pos, curDP, curCC, false
}
