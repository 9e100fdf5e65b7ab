// Package grid turns a raw RGBA pixel buffer into a codel grid: a
// downsampled color matrix, its flood-filled blocks, and a per-block exit
// table. Grid is built once and is read-only thereafter, the same way
// the teacher's memory type owns a fixed backing store that the CPU only
// ever queries by address.
package grid

import (
	"github.com/bdwalton/pietvm/palette"
	"github.com/bdwalton/pietvm/vmerr"
)

// Direction is Piet's direction pointer.
type Direction uint8

const (
	Right Direction = iota
	Down
	Left
	Up
)

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	case Up:
		return "up"
	}
	return "invalid-direction"
}

// RotateCW rotates d clockwise by n steps (n may be negative or >3; it is
// normalized mod 4 first).
func (d Direction) RotateCW(n int) Direction {
	m := ((n % 4) + 4) % 4
	return Direction((int(d) + m) % 4)
}

// dx, dy returns the unit offset for one step in direction d.
func (d Direction) dx() int {
	switch d {
	case Right:
		return 1
	case Left:
		return -1
	}
	return 0
}

func (d Direction) dy() int {
	switch d {
	case Down:
		return 1
	case Up:
		return -1
	}
	return 0
}

// CodelChooser picks which of a block's extremal codels to exit from
// when more than one ties on the DP axis.
type CodelChooser uint8

const (
	CCLeft CodelChooser = iota
	CCRight
)

func (c CodelChooser) String() string {
	if c == CCLeft {
		return "left"
	}
	return "right"
}

// Toggle swaps Left and Right.
func (c CodelChooser) Toggle() CodelChooser {
	return 1 - c
}

// Position is a zero-based codel coordinate.
type Position struct {
	X, Y int
}

// Offset returns the position one step from p in direction d, without
// any bounds checking.
func (p Position) Offset(d Direction) Position {
	return Position{X: p.X + d.dx(), Y: p.Y + d.dy()}
}

// BlockId identifies a maximal 4-connected same-color region.
type BlockId int

// Block describes one maximal 4-connected same-color region.
type Block struct {
	ID        BlockId
	Color     palette.Color
	Positions []Position
}

// Size returns the number of codels in the block.
func (b Block) Size() int {
	return len(b.Positions)
}

type exitEntry struct {
	pos Position
	ok  bool
}

// Options configures Grid construction.
type Options struct {
	// CodelSize, if > 0, overrides automatic codel-size detection.
	CodelSize int
	// Strict, if true, makes an off-palette pixel an error
	// (vmerr.ErrInvalidColor) instead of silently collapsing to Black.
	Strict bool
}

// Grid is an immutable codel grid: the downsampled color matrix, its
// flood-filled blocks, and the precomputed exit table. It plays the same
// "single source of truth, queried by coordinate" role that the
// teacher's memory type plays for the CPU's address space.
type Grid struct {
	width, height int // in codels
	codelSize     int
	colors        [][]palette.Color // [y][x]
	blockAt       [][]BlockId       // [y][x]
	blocks        []Block
	exits         [][4][2]exitEntry // indexed by BlockId
}

// New builds a Grid from a row-major, top-down RGBA byte buffer of
// pixelWidth x pixelHeight pixels. codelSize of 0 falls back to
// opts.CodelSize; if that is also 0, automatic detection runs (spec.md
// §4.2 step 1). A caller-supplied value is always honored.
func New(rgba []byte, pixelWidth, pixelHeight, codelSize int, opts Options) (*Grid, error) {
	if codelSize <= 0 {
		codelSize = opts.CodelSize
	}
	if codelSize <= 0 {
		codelSize = detectCodelSize(rgba, pixelWidth, pixelHeight)
	}

	gw, gh := pixelWidth/codelSize, pixelHeight/codelSize
	colors := make([][]palette.Color, gh)
	for y := 0; y < gh; y++ {
		colors[y] = make([]palette.Color, gw)
		for x := 0; x < gw; x++ {
			px, py := x*codelSize, y*codelSize
			r, g, b, _ := pixelAt(rgba, pixelWidth, px, py)
			c, ok := palette.ColorFromRGB(r, g, b)
			if !ok {
				if opts.Strict {
					return nil, vmerr.InvalidColorError{R: r, G: g, B: b}
				}
				c = palette.Black
			}
			colors[y][x] = c
		}
	}

	g := &Grid{width: gw, height: gh, codelSize: codelSize, colors: colors}
	g.floodFill()
	g.precomputeExits()
	return g, nil
}

// CodelSize returns the codel size used to build the grid (detected or
// caller-supplied).
func (g *Grid) CodelSize() int { return g.codelSize }

// Width and Height return the grid's dimensions in codels.
func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies within the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// ColorAt returns the color of the codel at p. Callers must ensure p is
// in bounds; this mirrors the teacher's memory.read, which panics on
// out-of-range access rather than silently returning a zero value.
func (g *Grid) ColorAt(p Position) palette.Color {
	if !g.InBounds(p) {
		panic(vmerr.OutOfBoundsError{X: p.X, Y: p.Y})
	}
	return g.colors[p.Y][p.X]
}

// BlockIDAt returns the id of the block containing p.
func (g *Grid) BlockIDAt(p Position) (BlockId, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	return g.blockAt[p.Y][p.X], true
}

// BlockInfo returns the block with the given id.
func (g *Grid) BlockInfo(id BlockId) Block {
	return g.blocks[id]
}

// NumBlocks returns the number of distinct blocks in the grid.
func (g *Grid) NumBlocks() int { return len(g.blocks) }

// Exit returns the precomputed exit-neighbor position for (id, dp, cc),
// per spec.md §4.2 step 4. ok is false if stepping out of the block in
// direction dp would leave the grid.
func (g *Grid) Exit(id BlockId, dp Direction, cc CodelChooser) (Position, bool) {
	e := g.exits[id][dp][cc]
	return e.pos, e.ok
}

func (g *Grid) floodFill() {
	g.blockAt = make([][]BlockId, g.height)
	for y := range g.blockAt {
		g.blockAt[y] = make([]BlockId, g.width)
		for x := range g.blockAt[y] {
			g.blockAt[y][x] = -1
		}
	}

	var queue []Position
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			start := Position{X: x, Y: y}
			if g.blockAt[y][x] != -1 {
				continue
			}
			id := BlockId(len(g.blocks))
			color := g.colors[y][x]
			g.blockAt[y][x] = id
			queue = queue[:0]
			queue = append(queue, start)
			positions := []Position{start}

			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				for _, d := range [...]Direction{Right, Down, Left, Up} {
					n := p.Offset(d)
					if !g.InBounds(n) || g.blockAt[n.Y][n.X] != -1 {
						continue
					}
					if g.colors[n.Y][n.X] != color {
						continue
					}
					g.blockAt[n.Y][n.X] = id
					queue = append(queue, n)
					positions = append(positions, n)
				}
			}

			g.blocks = append(g.blocks, Block{ID: id, Color: color, Positions: positions})
		}
	}
}

func (g *Grid) precomputeExits() {
	g.exits = make([][4][2]exitEntry, len(g.blocks))
	for _, b := range g.blocks {
		for dp := Right; dp <= Up; dp++ {
			for _, cc := range [...]CodelChooser{CCLeft, CCRight} {
				exitCodel := selectExitCodel(b.Positions, dp, cc)
				n := exitCodel.Offset(dp)
				g.exits[b.ID][dp][cc] = exitEntry{pos: n, ok: g.InBounds(n)}
			}
		}
	}
}

// selectExitCodel picks the extremal codel of positions in direction dp,
// tie-broken by cc, per the rules enumerated in spec.md §4.2 step 4.
func selectExitCodel(positions []Position, dp Direction, cc CodelChooser) Position {
	best := positions[0]
	for _, p := range positions[1:] {
		if exitBetter(p, best, dp, cc) {
			best = p
		}
	}
	return best
}

func exitBetter(p, best Position, dp Direction, cc CodelChooser) bool {
	switch dp {
	case Right:
		if p.X != best.X {
			return p.X > best.X
		}
		if cc == CCLeft {
			return p.Y < best.Y
		}
		return p.Y > best.Y
	case Down:
		if p.Y != best.Y {
			return p.Y > best.Y
		}
		if cc == CCLeft {
			return p.X > best.X
		}
		return p.X < best.X
	case Left:
		if p.X != best.X {
			return p.X < best.X
		}
		if cc == CCLeft {
			return p.Y > best.Y
		}
		return p.Y < best.Y
	case Up:
		if p.Y != best.Y {
			return p.Y < best.Y
		}
		if cc == CCLeft {
			return p.X < best.X
		}
		return p.X > best.X
	}
	return false
}

func pixelAt(rgba []byte, stride, x, y int) (r, g, b, a byte) {
	i := (y*stride + x) * 4
	return rgba[i], rgba[i+1], rgba[i+2], rgba[i+3]
}
