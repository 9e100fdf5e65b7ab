package opsem

import (
	"errors"
	"math"
	"testing"

	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/palette"
)

type fakeIO struct {
	nums  []int64
	chars []rune
	out   []Value
}

type Value struct {
	Num  int64
	Char rune
	IsCh bool
}

func (f *fakeIO) ReadNumber() (int64, error) {
	if len(f.nums) == 0 {
		return 0, errors.New("no more numbers")
	}
	v := f.nums[0]
	f.nums = f.nums[1:]
	return v, nil
}

func (f *fakeIO) ReadChar() (rune, error) {
	if len(f.chars) == 0 {
		return 0, errors.New("no more chars")
	}
	v := f.chars[0]
	f.chars = f.chars[1:]
	return v, nil
}

func (f *fakeIO) WriteNumber(n int64) error {
	f.out = append(f.out, Value{Num: n})
	return nil
}

func (f *fakeIO) WriteChar(r rune) error {
	f.out = append(f.out, Value{Char: r, IsCh: true})
	return nil
}

func run(t *testing.T, stack Stack, op palette.Operation, pushAmount int, dp grid.Direction, cc grid.CodelChooser, io IOPort) (Stack, grid.Direction, grid.CodelChooser) {
	t.Helper()
	if err := ExecuteOp(&stack, op, pushAmount, &dp, &cc, io); err != nil {
		t.Fatalf("ExecuteOp(%v): %v", op, err)
	}
	return stack, dp, cc
}

func TestPushPop(t *testing.T) {
	s, _, _ := run(t, Stack{}, palette.Push, 7, grid.Right, grid.CCLeft, nil)
	if len(s) != 1 || s[0] != 7 {
		t.Fatalf("Push: stack = %v, want [7]", s)
	}
	s, _, _ = run(t, s, palette.Pop, 0, grid.Right, grid.CCLeft, nil)
	if len(s) != 0 {
		t.Fatalf("Pop: stack = %v, want []", s)
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		op   palette.Operation
		a, b int64
		want int64
	}{
		{palette.Add, 3, 4, 7},
		{palette.Sub, 10, 4, 6},
		{palette.Mul, 3, 4, 12},
		{palette.Div, 7, 2, 3},
		{palette.Div, -7, 2, -3}, // truncation toward zero
		{palette.Mod, 7, 3, 1},
		{palette.Mod, -7, 3, 2}, // Euclidean: always non-negative
		{palette.Greater, 5, 3, 1},
		{palette.Greater, 3, 5, 0},
	}
	for _, tc := range cases {
		s, _, _ := run(t, Stack{tc.a, tc.b}, tc.op, 0, grid.Right, grid.CCLeft, nil)
		if len(s) != 1 || s[0] != tc.want {
			t.Errorf("%v(%d,%d): stack = %v, want [%d]", tc.op, tc.a, tc.b, s, tc.want)
		}
	}
}

// TestArithmeticWraps32 covers spec.md §4.5's wrapping Add/Sub/Mul over a
// signed-32-bit stack (original_source's vm.rs backs its stack with
// Vec<i32> and wrapping_add/wrapping_sub/wrapping_mul): results that
// overflow int32 must wrap rather than grow into a wider range.
func TestArithmeticWraps32(t *testing.T) {
	cases := []struct {
		op   palette.Operation
		a, b int64
		want int64
	}{
		{palette.Add, math.MaxInt32, 1, math.MinInt32},
		{palette.Sub, math.MinInt32, 1, math.MaxInt32},
		{palette.Mul, math.MaxInt32, 2, -2},
	}
	for _, tc := range cases {
		s, _, _ := run(t, Stack{tc.a, tc.b}, tc.op, 0, grid.Right, grid.CCLeft, nil)
		if len(s) != 1 || s[0] != tc.want {
			t.Errorf("%v(%d,%d): stack = %v, want [%d]", tc.op, tc.a, tc.b, s, tc.want)
		}
	}
}

func TestDivModByZeroIsNoop(t *testing.T) {
	for _, op := range []palette.Operation{palette.Div, palette.Mod} {
		s, _, _ := run(t, Stack{5, 0}, op, 0, grid.Right, grid.CCLeft, nil)
		if len(s) != 2 || s[0] != 5 || s[1] != 0 {
			t.Errorf("%v by zero: stack = %v, want [5 0] unchanged", op, s)
		}
	}
}

func TestUnderflowIsNoop(t *testing.T) {
	cases := []palette.Operation{palette.Pop, palette.Add, palette.Sub, palette.Not, palette.Dup, palette.OutNum, palette.OutChar}
	for _, op := range cases {
		s, _, _ := run(t, Stack{}, op, 0, grid.Right, grid.CCLeft, &fakeIO{})
		if len(s) != 0 {
			t.Errorf("%v on empty stack: stack = %v, want []", op, s)
		}
	}
}

func TestNot(t *testing.T) {
	s, _, _ := run(t, Stack{0}, palette.Not, 0, grid.Right, grid.CCLeft, nil)
	if len(s) != 1 || s[0] != 1 {
		t.Errorf("Not(0) = %v, want [1]", s)
	}
	s, _, _ = run(t, Stack{5}, palette.Not, 0, grid.Right, grid.CCLeft, nil)
	if len(s) != 1 || s[0] != 0 {
		t.Errorf("Not(5) = %v, want [0]", s)
	}
}

func TestDup(t *testing.T) {
	s, _, _ := run(t, Stack{9}, palette.Dup, 0, grid.Right, grid.CCLeft, nil)
	if len(s) != 2 || s[0] != 9 || s[1] != 9 {
		t.Errorf("Dup: stack = %v, want [9 9]", s)
	}
}

func TestPointerRotatesDP(t *testing.T) {
	_, dp, _ := run(t, Stack{1}, palette.Pointer, 0, grid.Right, grid.CCLeft, nil)
	if dp != grid.Down {
		t.Errorf("Pointer(1): dp = %v, want Down", dp)
	}
	_, dp, _ = run(t, Stack{-1}, palette.Pointer, 0, grid.Right, grid.CCLeft, nil)
	if dp != grid.Up {
		t.Errorf("Pointer(-1): dp = %v, want Up", dp)
	}
}

func TestSwitchTogglesCC(t *testing.T) {
	_, _, cc := run(t, Stack{1}, palette.Switch, 0, grid.Right, grid.CCLeft, nil)
	if cc != grid.CCRight {
		t.Errorf("Switch(1): cc = %v, want Right", cc)
	}
	_, _, cc = run(t, Stack{2}, palette.Switch, 0, grid.Right, grid.CCLeft, nil)
	if cc != grid.CCLeft {
		t.Errorf("Switch(2): cc = %v, want Left (even count is a no-op)", cc)
	}
}

// TestRoll implements Scenario E (spec.md §8): stack [1 2 3 4 5], roll
// depth 3 times 1 buries the top value 3-deep, i.e. [1 2 5 3 4].
func TestRoll(t *testing.T) {
	s, _, _ := run(t, Stack{1, 2, 3, 4, 5, 3, 1}, palette.Roll, 0, grid.Right, grid.CCLeft, nil)
	want := Stack{1, 2, 5, 3, 4}
	if len(s) != len(want) {
		t.Fatalf("Roll: stack = %v, want %v", s, want)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("Roll: stack = %v, want %v", s, want)
			break
		}
	}
}

func TestRollNegativeTimes(t *testing.T) {
	// depth 3, times -1: opposite direction of the positive-times case.
	s, _, _ := run(t, Stack{1, 2, 3, 4, 5, 3, -1}, palette.Roll, 0, grid.Right, grid.CCLeft, nil)
	want := Stack{1, 2, 4, 5, 3}
	if len(s) != len(want) {
		t.Fatalf("Roll(-1): stack = %v, want %v", s, want)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("Roll(-1): stack = %v, want %v", s, want)
			break
		}
	}
}

func TestRollInvalidDepthIsNoop(t *testing.T) {
	s, _, _ := run(t, Stack{1, 2, -1, 0}, palette.Roll, 0, grid.Right, grid.CCLeft, nil)
	if len(s) != 2 || s[0] != 1 || s[1] != 2 {
		t.Errorf("Roll with negative depth: stack = %v, want [1 2]", s)
	}
}

func TestInOutNum(t *testing.T) {
	io := &fakeIO{nums: []int64{42}}
	s, _, _ := run(t, Stack{}, palette.InNum, 0, grid.Right, grid.CCLeft, io)
	if len(s) != 1 || s[0] != 42 {
		t.Fatalf("InNum: stack = %v, want [42]", s)
	}
	if _, _, _ = run(t, s, palette.OutNum, 0, grid.Right, grid.CCLeft, io); len(io.out) != 1 || io.out[0].Num != 42 {
		t.Errorf("OutNum: io.out = %v, want [42]", io.out)
	}
}

func TestInOutChar(t *testing.T) {
	io := &fakeIO{chars: []rune{'Z'}}
	s, _, _ := run(t, Stack{}, palette.InChar, 0, grid.Right, grid.CCLeft, io)
	if len(s) != 1 || s[0] != int64('Z') {
		t.Fatalf("InChar: stack = %v, want ['Z']", s)
	}
	if _, _, _ = run(t, s, palette.OutChar, 0, grid.Right, grid.CCLeft, io); len(io.out) != 1 || io.out[0].Char != 'Z' {
		t.Errorf("OutChar: io.out = %v, want ['Z']", io.out)
	}
}
