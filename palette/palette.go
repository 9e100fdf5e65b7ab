// Package palette maps raw pixel colors onto the 20-value Piet color
// enumeration and derives the operation encoded by a color transition.
package palette

import "fmt"

// Color is one of Piet's 20 standard colors: 18 chromatic colors (6 hues
// times 3 lightnesses) plus White and Black.
type Color uint8

const (
	LightRed Color = iota
	Red
	DarkRed
	LightYellow
	Yellow
	DarkYellow
	LightGreen
	Green
	DarkGreen
	LightCyan
	Cyan
	DarkCyan
	LightBlue
	Blue
	DarkBlue
	LightMagenta
	Magenta
	DarkMagenta
	White
	Black
)

var colorNames = map[Color]string{
	LightRed:     "light red",
	Red:          "red",
	DarkRed:      "dark red",
	LightYellow:  "light yellow",
	Yellow:       "yellow",
	DarkYellow:   "dark yellow",
	LightGreen:   "light green",
	Green:        "green",
	DarkGreen:    "dark green",
	LightCyan:    "light cyan",
	Cyan:         "cyan",
	DarkCyan:     "dark cyan",
	LightBlue:    "light blue",
	Blue:         "blue",
	DarkBlue:     "dark blue",
	LightMagenta: "light magenta",
	Magenta:      "magenta",
	DarkMagenta:  "dark magenta",
	White:        "white",
	Black:        "black",
}

func (c Color) String() string {
	if n, ok := colorNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// Chromatic reports whether c is one of the 18 hue/lightness colors
// (as opposed to White or Black).
func (c Color) Chromatic() bool {
	return c <= DarkMagenta
}

// HueLightness returns c's hue (0..5) and lightness (0..2) axes. ok is
// false for White and Black, which carry neither axis.
func (c Color) HueLightness() (hue, light int, ok bool) {
	if !c.Chromatic() {
		return 0, 0, false
	}
	return int(c) / 3, int(c) % 3, true
}

type rgb struct{ r, g, b uint8 }

// canonical is the standard 20-color Piet palette. Any RGB triple not
// present here is off-palette.
var canonical = map[rgb]Color{
	{0xFF, 0xC0, 0xC0}: LightRed,
	{0xFF, 0x00, 0x00}: Red,
	{0xC0, 0x00, 0x00}: DarkRed,
	{0xFF, 0xFF, 0xC0}: LightYellow,
	{0xFF, 0xFF, 0x00}: Yellow,
	{0xC0, 0xC0, 0x00}: DarkYellow,
	{0xC0, 0xFF, 0xC0}: LightGreen,
	{0x00, 0xFF, 0x00}: Green,
	{0x00, 0xC0, 0x00}: DarkGreen,
	{0xC0, 0xFF, 0xFF}: LightCyan,
	{0x00, 0xFF, 0xFF}: Cyan,
	{0x00, 0xC0, 0xC0}: DarkCyan,
	{0xC0, 0xC0, 0xFF}: LightBlue,
	{0x00, 0x00, 0xFF}: Blue,
	{0x00, 0x00, 0xC0}: DarkBlue,
	{0xFF, 0xC0, 0xFF}: LightMagenta,
	{0xFF, 0x00, 0xFF}: Magenta,
	{0xC0, 0x00, 0xC0}: DarkMagenta,
	{0xFF, 0xFF, 0xFF}: White,
	{0x00, 0x00, 0x00}: Black,
}

// ColorFromRGB maps an RGB triple onto the canonical palette. ok is false
// for any triple outside the standard 20 colors; callers that want the
// conservative "unrecognized is Black" behavior described in spec.md
// should fall back to Black themselves when ok is false.
func ColorFromRGB(r, g, b uint8) (Color, bool) {
	c, ok := canonical[rgb{r, g, b}]
	return c, ok
}

// Operation is one of Piet's 17 stack operations, or the no-op (Nop)
// produced by a zero-delta or black/white-adjacent transition.
type Operation uint8

const (
	Nop Operation = iota
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
)

var opNames = [...]string{
	Nop: "nop", Push: "push", Pop: "pop", Add: "add", Sub: "sub", Mul: "mul",
	Div: "div", Mod: "mod", Not: "not", Greater: "greater", Pointer: "pointer",
	Switch: "switch", Dup: "dup", Roll: "roll", InNum: "in(num)", InChar: "in(char)",
	OutNum: "out(num)", OutChar: "out(char)",
}

func (o Operation) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Operation(%d)", uint8(o))
}

// opsTable is indexed [lightDelta][hueDelta], per spec.md §4.1.
var opsTable = [3][6]Operation{
	{Nop, Push, Pop, Add, Sub, Mul},
	{Div, Mod, Not, Greater, Pointer, Switch},
	{Dup, Roll, InNum, InChar, OutNum, OutChar},
}

// OperationFor returns the operation encoded by moving from
// (fromHue, fromLight) to (toHue, toLight), per the Δhue/Δlight table in
// spec.md §4.1. Hues and lightnesses are taken mod 6 and mod 3
// respectively, so callers may pass unnormalized deltas.
func OperationFor(fromHue, fromLight, toHue, toLight int) Operation {
	dh := ((toHue-fromHue)%6 + 6) % 6
	dl := ((toLight-fromLight)%3 + 3) % 3
	return opsTable[dl][dh]
}
