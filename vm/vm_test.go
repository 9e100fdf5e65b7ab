package vm

import (
	"context"
	"testing"

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
	case palette.LightMagenta:
		return [3]uint8{0xFF, 0xC0, 0xFF}
	case palette.LightGreen:
		return [3]uint8{0xC0, 0xFF, 0xC0}
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

func newGrid(t *testing.T, rows [][]palette.Color) *grid.Grid {
	t.Helper()
	buf, w, h := buildRGBA(rows)
	g, err := grid.New(buf, w, h, 1, grid.Options{})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

// TestStrokeThenHalt covers Scenario A/B: a Red->Yellow program pushes
// the red block's size, then halts: the yellow block wraps below the red
// codel, so every one of its exits leaves the grid.
func TestStrokeThenHalt(t *testing.T) {
	g := newGrid(t, [][]palette.Color{
		{palette.Red, palette.Yellow},
		{palette.Yellow, palette.Yellow},
	})
	v := New(g, Options{})

	if err := v.Stroke(); err != nil {
		t.Fatalf("first Stroke: %v", err)
	}
	snap := v.Snapshot()
	if len(snap.Stack) != 1 || snap.Stack[0] != 1 {
		t.Fatalf("stack after first Stroke = %v, want [1]", snap.Stack)
	}

	if err := v.Stroke(); err == nil {
		t.Fatal("second Stroke: want ErrHalted, got nil")
	}
	if !v.Halted() {
		t.Fatal("Halted() = false after running off the grid edge")
	}
}

// TestPlayOutNum implements Scenario F: Red(x5) -> Yellow -> LightMagenta
// pushes 5, prints it via OutNum, then halts: the light magenta block
// wraps below the yellow codel, and every one of its exits is off-grid or
// black.
func TestPlayOutNum(t *testing.T) {
	g := newGrid(t, [][]palette.Color{
		{
			palette.Red, palette.Red, palette.Red, palette.Red, palette.Red,
			palette.Yellow, palette.LightMagenta,
		},
		{
			palette.Black, palette.Black, palette.Black, palette.Black, palette.Black,
			palette.LightMagenta, palette.LightMagenta,
		},
	})
	v := New(g, Options{})

	if err := v.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !v.Halted() {
		t.Fatal("Halted() = false, want true")
	}
	if got := v.InkString(); got != "5" {
		t.Fatalf("InkString() = %q, want %q", got, "5")
	}
	if snap := v.Snapshot(); len(snap.Stack) != 0 {
		t.Fatalf("stack after OutNum = %v, want empty", snap.Stack)
	}
}

// TestInputSuspendsAndResumes covers invariant 7 (I/O suspension is
// observable and resumable): Red -> LightGreen is (Δhue=2, Δlight=2) ->
// InNum. With no input queued the VM suspends; Input() lets the same
// Stroke resume and complete.
func TestInputSuspendsAndResumes(t *testing.T) {
	g := newGrid(t, [][]palette.Color{{palette.Red, palette.LightGreen}})
	v := New(g, Options{})

	if err := v.Stroke(); err == nil {
		t.Fatal("Stroke with no queued input: want an error, got nil")
	}
	if !v.Waiting() {
		t.Fatal("Waiting() = false after an InNum stroke with no input queued")
	}
	if snap := v.Snapshot(); snap.Pos != (grid.Position{0, 0}) {
		t.Fatalf("Pos after suspended Stroke = %v, want unchanged (0,0)", snap.Pos)
	}

	v.Input(42)
	if v.Waiting() {
		t.Fatal("Waiting() = true after Input() supplied a value")
	}
	if err := v.Stroke(); err != nil {
		t.Fatalf("Stroke after Input(): %v", err)
	}
	snap := v.Snapshot()
	if len(snap.Stack) != 1 || snap.Stack[0] != 42 {
		t.Fatalf("stack after resumed InNum = %v, want [42]", snap.Stack)
	}
	if snap.Pos != (grid.Position{1, 0}) {
		t.Fatalf("Pos after resumed Stroke = %v, want (1,0)", snap.Pos)
	}
}
