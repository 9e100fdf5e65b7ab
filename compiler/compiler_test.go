package compiler

import (
	"testing"

	"github.com/bdwalton/pietvm/bytecode"
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
)

func rgbFor(c palette.Color) [3]uint8 {
	switch c {
	case palette.Black:
		return [3]uint8{0x00, 0x00, 0x00}
	case palette.White:
		return [3]uint8{0xFF, 0xFF, 0xFF}
	case palette.Red:
		return [3]uint8{0xFF, 0x00, 0x00}
	case palette.Yellow:
		return [3]uint8{0xFF, 0xFF, 0x00}
	case palette.DarkBlue:
		return [3]uint8{0x00, 0x00, 0xC0}
	}
	panic("rgbFor: unhandled color in test helper")
}

func buildRGBA(rows [][]palette.Color) (buf []byte, w, h int) {
	h = len(rows)
	w = len(rows[0])
	buf = make([]byte, w*h*4)
	for y, row := range rows {
		for x, c := range row {
			rgb := rgbFor(c)
			i := (y*w + x) * 4
			buf[i], buf[i+1], buf[i+2], buf[i+3] = rgb[0], rgb[1], rgb[2], 0xFF
		}
	}
	return buf, w, h
}

// TestSinglePixelHalts implements Scenario A: a single-codel Black image
// compiles to exactly one Halt instruction.
func TestSinglePixelHalts(t *testing.T) {
	buf, w, h := buildRGBA([][]palette.Color{{palette.Black}})
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})
	if prog.Len() != 1 {
		t.Fatalf("prog.Len() = %d, want 1", prog.Len())
	}
	if prog.Instructions[0].Op != bytecode.Halt {
		t.Fatalf("Instructions[0].Op = %v, want Halt", prog.Instructions[0].Op)
	}
}

// TestRedToYellowCompilesToPush implements Scenario B: Red -> Yellow is
// (Δhue=1, Δlight=0) -> Push, and the program halts immediately after:
// the yellow block wraps below the red codel, so every one of its exits
// leaves the grid.
func TestRedToYellowCompilesToPush(t *testing.T) {
	buf, w, h := buildRGBA([][]palette.Color{
		{palette.Red, palette.Yellow},
		{palette.Yellow, palette.Yellow},
	})
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})
	if prog.Len() != 2 {
		t.Fatalf("prog.Len() = %d, want 2", prog.Len())
	}
	entry := prog.Instructions[prog.EntryIndex]
	if entry.Op != bytecode.Push {
		t.Fatalf("entry.Op = %v, want Push", entry.Op)
	}
	if entry.Arg != 1 {
		t.Fatalf("entry.Arg = %d, want 1 (red block size)", entry.Arg)
	}
	if len(entry.Successors) != 1 {
		t.Fatalf("len(entry.Successors) = %d, want 1", len(entry.Successors))
	}
	next := prog.Instructions[entry.Successors[0]]
	if next.Op != bytecode.Halt {
		t.Fatalf("successor.Op = %v, want Halt", next.Op)
	}
}

// TestEntryOnBlackHalts covers spec.md §4.4 step 1: a program whose
// top-left codel is Black halts immediately, even with valid chromatic
// neighbors right next to it, rather than letting FindValidExit route
// through to a neighbor and compute a bogus operation from Black's
// (nonexistent) hue/lightness.
func TestEntryOnBlackHalts(t *testing.T) {
	buf, w, h := buildRGBA([][]palette.Color{{palette.Black, palette.Red, palette.Red}})
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})
	if prog.Len() != 1 {
		t.Fatalf("prog.Len() = %d, want 1", prog.Len())
	}
	if prog.Instructions[prog.EntryIndex].Op != bytecode.Halt {
		t.Fatalf("entry.Op = %v, want Halt", prog.Instructions[prog.EntryIndex].Op)
	}
}

// TestWhiteSlideIsNop implements Scenario D: a white codel between two
// chromatic blocks compiles to a Nop instruction, regardless of the
// color pair on either side.
func TestWhiteSlideIsNop(t *testing.T) {
	buf, w, h := buildRGBA([][]palette.Color{
		{palette.Red, palette.White, palette.Yellow},
		{palette.Black, palette.Yellow, palette.Yellow},
	})
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})
	entry := prog.Instructions[prog.EntryIndex]
	if entry.Op != bytecode.Nop {
		t.Fatalf("entry.Op = %v, want Nop", entry.Op)
	}
	if len(entry.Successors) != 1 {
		t.Fatalf("len(entry.Successors) = %d, want 1", len(entry.Successors))
	}
	landed := prog.Instructions[entry.Successors[0]]
	if landed.Op != bytecode.Halt {
		t.Fatalf("landed.Op = %v, want Halt (every yellow exit is off-grid or black)", landed.Op)
	}
}

// TestDedupSharesInstructionAcrossBlock implements invariant 4: two
// different entry codels into the same block, with the same DP/CC,
// resolve to the same instruction index.
func TestDedupSharesInstructionAcrossBlock(t *testing.T) {
	rows := [][]palette.Color{
		{palette.Red, palette.Red, palette.Black},
		{palette.Red, palette.Red, palette.Black},
	}
	buf, w, h := buildRGBA(rows)
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})

	idxA, ok := prog.IndexFor(grid.Position{0, 0}, grid.Right, grid.CCLeft)
	if !ok {
		t.Fatal("IndexFor((0,0)) not found")
	}
	idxB, ok := prog.IndexFor(grid.Position{1, 1}, grid.Right, grid.CCLeft)
	if !ok {
		t.Fatal("IndexFor((1,1)) not found")
	}
	if idxA != idxB {
		t.Errorf("IndexFor((0,0)) = %d, IndexFor((1,1)) = %d, want equal (same block/DP/CC)", idxA, idxB)
	}
}

// TestPointerBranchesFourWays implements invariant 3 (every reachable
// state appears exactly once) for the Pointer operation's dynamic
// fan-out: a Pointer instruction must record exactly 4 successors.
// Red (hue0, light1) -> DarkBlue (hue4, light2) is (Δhue=4, Δlight=1),
// which the table maps to Pointer.
func TestPointerBranchesFourWays(t *testing.T) {
	rows := [][]palette.Color{{palette.Red, palette.DarkBlue}}
	buf, w, h := buildRGBA(rows)
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	prog := Compile(g, Options{})
	entry := prog.Instructions[prog.EntryIndex]
	if entry.Op != bytecode.Pointer {
		t.Fatalf("entry.Op = %v, want Pointer", entry.Op)
	}
	if len(entry.Successors) != 4 {
		t.Fatalf("len(entry.Successors) = %d, want 4", len(entry.Successors))
	}
}
