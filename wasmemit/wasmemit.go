// Package wasmemit lowers a compiled bytecode.Program to a binary
// WebAssembly module: linear memory models the operand stack, four
// host-imported functions cover InNum/InChar/OutNum/OutChar, and the
// instruction graph is flattened into a single dispatch loop keyed on a
// program-counter local, one `if pc == N` arm per instruction — a
// direct 1:1 lowering of the bytecode rather than a structured-control
// reconstruction. It hand-rolls the module directly against
// encoding/binary-style byte slices, the same posture ines/ines.go and
// nesformat/header.go take toward the iNES and raw NES header formats;
// no WASM-authoring library appears anywhere in the retrieved corpus
// (see DESIGN.md).
package wasmemit

import (
	"github.com/bdwalton/pietvm/bytecode"
)

// WASM opcodes used by this emitter. Named per the MVP instruction set.
const (
	opBlock     = 0x02
	opLoop      = 0x03
	opIf        = 0x04
	opElse      = 0x05
	opEnd       = 0x0B
	opBr        = 0x0C
	opReturn    = 0x0F
	opCall      = 0x10
	opDrop      = 0x1A
	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opGlobalSet = 0x24
	opI32Load   = 0x28
	opI32Store  = 0x36
	opI32Const  = 0x41
	opI32Eqz    = 0x45
	opI32Eq     = 0x46
	opI32LtS    = 0x48
	opI32GtS    = 0x4A
	opI32Add    = 0x6A
	opI32Sub    = 0x6B
	opI32Mul    = 0x6C
	opI32DivS   = 0x6D
	opI32RemS   = 0x6F

	blockTypeVoid = 0x40

	valI32 = 0x7F
)

// Options configures the module Emit produces, matching SPEC_FULL.md's
// compile_to_wasm(program, options?) surface.
type Options struct {
	// MemoryPages is the linear memory's initial page count (64 KiB
	// each). 0 selects DefaultMemoryPages.
	MemoryPages int
	// MaxMemoryPages is the linear memory's maximum page count. 0
	// selects DefaultMaxMemoryPages.
	MaxMemoryPages int
	// ExportStackPointer additionally exports a mutable global named
	// "stack_pointer" that mirrors memory[0] (the authoritative stack
	// pointer the stack_push/stack_pop/stack_peek helpers maintain),
	// for hosts that want to inspect stack depth without calling
	// stack_size.
	ExportStackPointer bool
	// MainFunctionName is the exported name of the program's entry
	// function. "" selects DefaultMainFunctionName.
	MainFunctionName string
}

// Defaults applied to zero-valued Options fields, the same
// zero-value-selects-default convention grid.Options/vm.Options/
// compiler.Options/debugger.Options all use.
const (
	DefaultMemoryPages      = 1
	DefaultMaxMemoryPages   = 16
	DefaultMainFunctionName = "main"
)

func (o Options) withDefaults() Options {
	if o.MemoryPages <= 0 {
		o.MemoryPages = DefaultMemoryPages
	}
	if o.MaxMemoryPages <= 0 {
		o.MaxMemoryPages = DefaultMaxMemoryPages
	}
	if o.MainFunctionName == "" {
		o.MainFunctionName = DefaultMainFunctionName
	}
	return o
}

// Imported/module-defined function indices, fixed by importSection's
// and functionSection's emission order.
const (
	fnReadChar = iota
	fnReadNumber
	fnWriteChar
	fnWriteNumber
	fnStackPush
	fnStackPop
	fnStackPeek
	fnStackSize
	fnMain
)

// Type indices, fixed by typeSection's emission order.
const (
	typeNiladicResultI32 = iota // () -> i32: read_char, read_number, stack_pop, stack_peek, stack_size
	typeMonadicVoid             // (i32) -> (): write_char, write_number, stack_push
	typeNiladicVoid             // () -> (): main
)

// Emit lowers prog into a complete binary WASM module per opts (the
// zero value selects every default).
func Emit(prog *bytecode.Program, opts Options) []byte {
	opts = opts.withDefaults()

	var mod []byte
	mod = append(mod, 0x00, 0x61, 0x73, 0x6D) // magic "\0asm"
	mod = append(mod, 0x01, 0x00, 0x00, 0x00) // version 1

	mod = append(mod, typeSection()...)
	mod = append(mod, importSection()...)
	mod = append(mod, functionSection()...)
	mod = append(mod, memorySection(opts)...)
	mod = append(mod, globalSection()...)
	mod = append(mod, exportSection(opts)...)
	mod = append(mod, codeSection(prog)...)
	return mod
}

// funcType encodes a (params) -> (results) function type.
func funcType(params, results []byte) []byte {
	t := []byte{0x60}
	t = appendVec(t, params)
	t = appendVec(t, results)
	return t
}

func typeSection() []byte {
	var types []byte
	types = appendULEB128(types, 3) // vec count
	types = append(types, funcType(nil, []byte{valI32})...)
	types = append(types, funcType([]byte{valI32}, nil)...)
	types = append(types, funcType(nil, nil)...)
	return section(1, types)
}

func importDesc(module, name string, typeIdx int) []byte {
	var b []byte
	b = appendName(b, module)
	b = appendName(b, name)
	b = append(b, 0x00) // import kind 0 = func
	b = appendULEB128(b, uint64(typeIdx))
	return b
}

// importSection declares the four host functions in the exact order and
// under the exact names spec.md §4.7 mandates: env.read_char,
// env.read_number, env.write_char, env.write_number.
func importSection() []byte {
	var b []byte
	b = appendULEB128(b, 4)
	b = append(b, importDesc("env", "read_char", typeNiladicResultI32)...)
	b = append(b, importDesc("env", "read_number", typeNiladicResultI32)...)
	b = append(b, importDesc("env", "write_char", typeMonadicVoid)...)
	b = append(b, importDesc("env", "write_number", typeMonadicVoid)...)
	return section(2, b)
}

// functionSection declares the five module-defined functions (the four
// stack helpers, then main), in the order their bodies appear in
// codeSection and matching the fn* index constants.
func functionSection() []byte {
	var b []byte
	b = appendULEB128(b, 5)
	b = appendULEB128(b, typeMonadicVoid)      // stack_push
	b = appendULEB128(b, typeNiladicResultI32) // stack_pop
	b = appendULEB128(b, typeNiladicResultI32) // stack_peek
	b = appendULEB128(b, typeNiladicResultI32) // stack_size
	b = appendULEB128(b, typeNiladicVoid)      // main
	return section(3, b)
}

// memorySection encodes one memory with a real min+max limits pair
// (flag 0x01), so a host can cap growth instead of the module claiming
// unbounded memory.
func memorySection(opts Options) []byte {
	var b []byte
	b = appendULEB128(b, 1) // one memory
	b = append(b, 0x01)     // limits: min and max present
	b = appendULEB128(b, uint64(opts.MemoryPages))
	b = appendULEB128(b, uint64(opts.MaxMemoryPages))
	return section(5, b)
}

// globalSection declares a single mutable i32 global, initialized to 4
// (the first free stack slot, since the stack pointer itself occupies
// memory[0..4)). It mirrors the authoritative stack pointer kept in
// linear memory; exportSection exports it only when
// Options.ExportStackPointer is set.
func globalSection() []byte {
	var b []byte
	b = appendULEB128(b, 1)
	b = append(b, valI32, 0x01) // i32, mutable
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opEnd)
	return section(6, b)
}

func exportSection(opts Options) []byte {
	var entries [][]byte
	entries = append(entries, exportEntry("memory", 0x02, 0))
	entries = append(entries, exportEntry(opts.MainFunctionName, 0x00, fnMain))
	if opts.ExportStackPointer {
		entries = append(entries, exportEntry("stack_pointer", 0x03, 0))
	}

	var b []byte
	b = appendULEB128(b, uint64(len(entries)))
	for _, e := range entries {
		b = append(b, e...)
	}
	return section(7, b)
}

func exportEntry(name string, kind byte, idx int) []byte {
	var b []byte
	b = appendName(b, name)
	b = append(b, kind)
	b = appendULEB128(b, uint64(idx))
	return b
}

func codeSection(prog *bytecode.Program) []byte {
	bodies := [][]byte{
		funcBody(localsDecl(1, valI32), stackPushBody()), // param v=0, local sp=1
		funcBody(localsDecl(1, valI32), stackPopBody()),  // local sp=0
		funcBody(localsDecl(1, valI32), stackPeekBody()), // local sp=0
		funcBody([]byte{0x00}, stackSizeBody()),          // no locals (0 groups)
		funcBody(localsDecl(3, valI32), mainBody(prog)),  // pc=0, a=1, b=2
	}

	var b []byte
	b = appendULEB128(b, uint64(len(bodies)))
	for _, fn := range bodies {
		b = appendVec(b, fn) // byte-length prefix, then locals+body+end
	}
	return section(10, b)
}

func funcBody(locals, body []byte) []byte {
	var fn []byte
	fn = append(fn, locals...)
	fn = append(fn, body...)
	fn = append(fn, opEnd)
	return fn
}

// localsDecl declares a single group of n locals of the given type.
func localsDecl(n int, typ byte) []byte {
	var b []byte
	b = appendULEB128(b, 1) // 1 group
	b = appendULEB128(b, uint64(n))
	b = append(b, typ)
	return b
}

// stackPushBody implements stack_push(param v i32): mem[sp] = v; sp +=
// 4; mem[0] = sp. Local 1 (after param 0) holds sp across the sequence.
func stackPushBody() []byte {
	var b []byte
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32Load, 0x02, 0x00) // sp = mem[0]
	b = append(b, opLocalSet, 1)

	b = append(b, opLocalGet, 1) // addr
	b = append(b, opLocalGet, 0) // value
	b = append(b, opI32Store, 0x02, 0x00)

	b = append(b, opLocalGet, 1)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32Add)
	b = append(b, opLocalSet, 1) // local1 = sp+4

	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opLocalGet, 1)
	b = append(b, opI32Store, 0x02, 0x00) // mem[0] = sp+4

	b = append(b, opLocalGet, 1)
	b = append(b, opGlobalSet, 0)
	return b
}

// stackPopBody implements stack_pop() -> i32: sp -= 4; mem[0] = sp;
// return mem[sp].
func stackPopBody() []byte {
	var b []byte
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32Load, 0x02, 0x00)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32Sub)
	b = append(b, opLocalSet, 0) // local0 = sp-4

	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opLocalGet, 0)
	b = append(b, opI32Store, 0x02, 0x00) // mem[0] = sp-4

	b = append(b, opLocalGet, 0)
	b = append(b, opGlobalSet, 0)

	b = append(b, opLocalGet, 0)
	b = append(b, opI32Load, 0x02, 0x00) // result = mem[sp-4]
	return b
}

// stackPeekBody implements stack_peek() -> i32: return mem[sp-4],
// without mutating sp.
func stackPeekBody() []byte {
	var b []byte
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32Load, 0x02, 0x00)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32Sub)
	b = append(b, opLocalSet, 0)

	b = append(b, opLocalGet, 0)
	b = append(b, opI32Load, 0x02, 0x00)
	return b
}

// stackSizeBody implements stack_size() -> i32: return (sp-4)/4, the
// number of elements currently stored.
func stackSizeBody() []byte {
	var b []byte
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32Load, 0x02, 0x00)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32Sub)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32DivS)
	return b
}

// Local slot indices within main, fixed by codeSection's
// localsDecl(3, valI32) call.
const (
	mainPC = 0
	mainA  = 1
	mainB  = 2
)

// mainBody emits the dispatch loop: sp/pc initialization, then a loop
// containing one `if pc == i ... end` arm per instruction. Every
// non-Halt arm ends by branching back to the loop; Halt returns from
// the function directly, per spec.md §4.7 ("Halt emits an early
// return") — simpler than branching out through the enclosing
// block/loop nesting by a hand-counted depth.
func mainBody(prog *bytecode.Program) []byte {
	var b []byte
	// sp = 4 (stack data starts at byte 4; memory[0..4) holds sp itself).
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opI32Store, 0x02, 0x00)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 4)
	b = append(b, opGlobalSet, 0)

	b = append(b, opI32Const)
	b = appendSLEB128(b, int64(prog.EntryIndex))
	b = append(b, opLocalSet, mainPC)

	b = append(b, opBlock, blockTypeVoid) // $exit
	b = append(b, opLoop, blockTypeVoid)  // $loop

	for i, inst := range prog.Instructions {
		b = append(b, opLocalGet, mainPC)
		b = append(b, opI32Const)
		b = appendSLEB128(b, int64(i))
		b = append(b, opI32Eq)
		b = append(b, opIf, blockTypeVoid)
		b = appendInstruction(b, inst)
		b = append(b, opEnd)
	}

	b = append(b, opBr)
	b = appendULEB128(b, 0) // back to $loop
	b = append(b, opEnd)    // end $loop
	b = append(b, opEnd)    // end $exit
	return b
}

// appendInstruction emits one instruction's stack effect (via calls to
// the stack_push/stack_pop/stack_peek helpers and native i32 ops) then
// its pc update. Per spec.md §4.7, Pointer/Switch pop their argument and
// discard it. Every instruction continues at Successors[0]; the other
// successors the Compiler records for Pointer and Switch are not
// reachable from the emitted code, so WASM emission does not reconstruct
// their dynamic fan-out. Roll similarly pops its two arguments and
// leaves the remaining window untouched, the same placeholder lowering
// opsem.roll documents for an invalid depth.
func appendInstruction(b []byte, inst bytecode.Instruction) []byte {
	switch inst.Op {
	case bytecode.Halt:
		return append(b, opReturn)

	case bytecode.Nop:
		// no stack effect

	case bytecode.Push:
		b = append(b, opI32Const)
		b = appendSLEB128(b, int64(inst.Arg))
		b = append(b, opCall, fnStackPush)

	case bytecode.Pop:
		b = append(b, opCall, fnStackPop)
		b = append(b, opDrop)

	case bytecode.Add:
		b = binaryArith(b, opI32Add)
	case bytecode.Sub:
		b = binaryArith(b, opI32Sub)
	case bytecode.Mul:
		b = binaryArith(b, opI32Mul)
	case bytecode.Div:
		b = binaryArith(b, opI32DivS)
	case bytecode.Mod:
		b = euclideanMod(b)
	case bytecode.Greater:
		b = binaryArith(b, opI32GtS)

	case bytecode.Not:
		b = append(b, opCall, fnStackPop)
		b = append(b, opI32Eqz)
		b = append(b, opCall, fnStackPush)

	case bytecode.Dup:
		b = append(b, opCall, fnStackPeek)
		b = append(b, opCall, fnStackPush)

	case bytecode.Roll:
		// Placeholder lowering per spec.md's explicit allowance: pop
		// the two arguments and leave the remaining window untouched.
		b = append(b, opCall, fnStackPop)
		b = append(b, opDrop)
		b = append(b, opCall, fnStackPop)
		b = append(b, opDrop)

	case bytecode.InNum:
		b = append(b, opCall, fnReadNumber)
		b = append(b, opCall, fnStackPush)
	case bytecode.InChar:
		b = append(b, opCall, fnReadChar)
		b = append(b, opCall, fnStackPush)
	case bytecode.OutNum:
		b = append(b, opCall, fnStackPop)
		b = append(b, opCall, fnWriteNumber)
	case bytecode.OutChar:
		b = append(b, opCall, fnStackPop)
		b = append(b, opCall, fnWriteChar)

	case bytecode.Pointer:
		b = append(b, opCall, fnStackPop)
		b = append(b, opDrop)
	case bytecode.Switch:
		b = append(b, opCall, fnStackPop)
		b = append(b, opDrop)
	}

	b = append(b, opI32Const)
	succ := int64(0)
	if len(inst.Successors) > 0 {
		succ = int64(inst.Successors[0])
	}
	b = appendSLEB128(b, succ)
	b = append(b, opLocalSet, mainPC)
	return append(b, opBr, 1) // branch to $loop (depth 1 from inside this `if`)
}

// binaryArith computes a OP b for stack order ... a b (b on top): two
// stack_pop calls return b then a; stashing them in mainB/mainA
// reorders the operands so the native op reads them correctly, then
// pushes the result.
func binaryArith(b []byte, op byte) []byte {
	b = append(b, opCall, fnStackPop)
	b = append(b, opLocalSet, mainB)
	b = append(b, opCall, fnStackPop)
	b = append(b, opLocalSet, mainA)

	b = append(b, opLocalGet, mainA)
	b = append(b, opLocalGet, mainB)
	b = append(b, op)
	b = append(b, opCall, fnStackPush)
	return b
}

// euclideanMod computes a Euclidean remainder: i32.rem_s, then if the
// result is negative, add |b| (rem_s's sign follows the dividend, like
// Go's %, so the correction is the same one opsem.euclidMod applies).
func euclideanMod(b []byte) []byte {
	b = append(b, opCall, fnStackPop)
	b = append(b, opLocalSet, mainB)
	b = append(b, opCall, fnStackPop)
	b = append(b, opLocalSet, mainA)

	b = append(b, opLocalGet, mainA)
	b = append(b, opLocalGet, mainB)
	b = append(b, opI32RemS)
	b = append(b, opLocalSet, mainA) // reuse mainA to hold the raw remainder

	b = append(b, opLocalGet, mainA)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32LtS)
	b = append(b, opIf, valI32)
	b = append(b, opLocalGet, mainA)
	b = append(b, opLocalGet, mainB) // |b|: negated when b < 0
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opI32LtS)
	b = append(b, opIf, valI32)
	b = append(b, opI32Const)
	b = appendSLEB128(b, 0)
	b = append(b, opLocalGet, mainB)
	b = append(b, opI32Sub)
	b = append(b, opElse)
	b = append(b, opLocalGet, mainB)
	b = append(b, opEnd)
	b = append(b, opI32Add)
	b = append(b, opElse)
	b = append(b, opLocalGet, mainA)
	b = append(b, opEnd)

	b = append(b, opCall, fnStackPush)
	return b
}
