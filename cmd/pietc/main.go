// Command pietc is the Piet toolchain's front end: it loads a raw RGBA
// codel buffer and drives the compiler, the grid-driven VM, the
// bytecode-driven Debugger, or the WASM emitter over it, grounded on
// gintendo.go's flag-based main and mos6502.go's BIOS() REPL.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdwalton/pietvm/compiler"
	"github.com/bdwalton/pietvm/debugger"
	"github.com/bdwalton/pietvm/grid"
	"github.com/bdwalton/pietvm/internal/plog"
	"github.com/bdwalton/pietvm/vm"
	"github.com/bdwalton/pietvm/wasmemit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "run":
		runCmd(args)
	case "debug":
		debugCmd(args)
	case "compile":
		compileCmd(args)
	case "emit-wasm":
		emitWasmCmd(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pietc <run|debug|compile|emit-wasm> [flags]")
}

// loadGrid reads a raw RGBA dump (width*height*4 bytes, no format
// sniffing per the image-decoding non-goal) and builds a Grid from it.
func loadGrid(path string, width, height, codelSize int, strict bool) *grid.Grid {
	buf, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	want := width * height * 4
	if len(buf) != want {
		log.Fatalf("%s: got %d bytes, want %d (w=%d h=%d * 4 bytes/pixel)", path, len(buf), want, width, height)
	}
	g, err := grid.New(buf, width, height, codelSize, grid.Options{Strict: strict})
	if err != nil {
		log.Fatalf("grid.New: %v", err)
	}
	return g
}

func runFlags(name string) (*flag.FlagSet, *string, *int, *int, *int, *int, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	rgba := fs.String("rgba", "", "path to a raw RGBA codel dump")
	w := fs.Int("w", 0, "image width in pixels")
	h := fs.Int("h", 0, "image height in pixels")
	codelSize := fs.Int("codel_size", 0, "codel size in pixels; 0 autodetects")
	maxSteps := fs.Int("max_steps", 0, "watchdog step limit; 0 selects the package default")
	strict := fs.Bool("strict", false, "reject off-palette colors instead of treating them as black")
	return fs, rgba, w, h, codelSize, maxSteps, strict
}

func runCmd(args []string) {
	fs, rgba, w, h, codelSize, maxSteps, strict := runFlags("run")
	verbose := fs.Bool("v", false, "log each stroke to stderr")
	fs.Parse(args)
	if *rgba == "" || *w <= 0 || *h <= 0 {
		log.Fatalf("run: -rgba, -w and -h are required")
	}

	g := loadGrid(*rgba, *w, *h, *codelSize, *strict)

	var logger *plog.Logger
	if *verbose {
		logger = plog.New(os.Stderr, plog.Debug)
	}
	v := vm.New(g, vm.Options{MaxSteps: *maxSteps, Logger: logger})

	// A SIGINT/SIGTERM during Play cancels ctx so a runaway or
	// intentionally long-running program can be stopped cleanly,
	// mirroring mos6502.go's BIOS() wiring a cancel into cpu.Run.
	ctx, cancel := context.WithCancel(context.Background())
	sigQuit := make(chan os.Signal, 1)
	signal.Notify(sigQuit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigQuit:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer cancel()

	if err := v.Play(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
	fmt.Print(v.InkString())
}

func compileCmd(args []string) {
	fs, rgba, w, h, codelSize, _, strict := runFlags("compile")
	fs.Parse(args)
	if *rgba == "" || *w <= 0 || *h <= 0 {
		log.Fatalf("compile: -rgba, -w and -h are required")
	}

	g := loadGrid(*rgba, *w, *h, *codelSize, *strict)
	prog := compiler.Compile(g, compiler.Options{})

	for i := 0; i < prog.Len(); i++ {
		inst := prog.Instructions[i]
		rich := prog.Metadata(i)
		fmt.Printf("%4d: %-8s arg=%-4d succ=%v  pos=%v dp=%v cc=%v block=%d\n",
			i, inst.Op, inst.Arg, inst.Successors, rich.Pos, rich.DP, rich.CC, rich.Block)
	}
}

func emitWasmCmd(args []string) {
	fs, rgba, w, h, codelSize, _, strict := runFlags("emit-wasm")
	out := fs.String("o", "out.wasm", "output path for the compiled WASM module")
	fs.Parse(args)
	if *rgba == "" || *w <= 0 || *h <= 0 {
		log.Fatalf("emit-wasm: -rgba, -w and -h are required")
	}

	g := loadGrid(*rgba, *w, *h, *codelSize, *strict)
	prog := compiler.Compile(g, compiler.Options{})
	mod := wasmemit.Emit(prog, wasmemit.Options{})

	if err := os.WriteFile(*out, mod, 0644); err != nil {
		log.Fatalf("emit-wasm: writing %s: %v", *out, err)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(mod), *out)
}

// debugCmd is a REPL directly descended from mos6502.go's BIOS(): it
// prints a menu, reads one rune, and dispatches.
func debugCmd(args []string) {
	fs, rgba, w, h, codelSize, maxSteps, strict := runFlags("debug")
	fs.Parse(args)
	if *rgba == "" || *w <= 0 || *h <= 0 {
		log.Fatalf("debug: -rgba, -w and -h are required")
	}

	g := loadGrid(*rgba, *w, *h, *codelSize, *strict)
	prog := compiler.Compile(g, compiler.Options{})
	d := debugger.New(prog, debugger.Options{MaxSteps: *maxSteps})

	reader := bufio.NewReader(os.Stdin)

	for {
		snap := d.Snapshot()
		fmt.Printf("\npc=%d pos=%v dp=%v cc=%v stack=%v steps=%d halted=%v waiting=%v\n",
			snap.PC, snap.Pos, snap.DP, snap.CC, snap.Stack, snap.Steps, snap.Halted, snap.Waiting)
		fmt.Println("(B)reak - arm a breakpoint at a pc")
		fmt.Println("(C)lear - clear all breakpoints")
		fmt.Println("(R)un - run to completion or the next breakpoint")
		fmt.Println("(S)tep - execute one instruction")
		fmt.Println("(I)nput - provide a pending InNum/InChar value")
		fmt.Println("(O)utput - show output emitted so far")
		fmt.Println("R(e)set - return to the program's entry state")
		fmt.Println("(Q)uit")
		fmt.Printf("Choice: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case 'b', 'B':
			fmt.Printf("Breakpoint pc: ")
			var pc int
			fmt.Fscanf(reader, "%d\n", &pc)
			d.SetBreakpoint(pc)
		case 'c', 'C':
			for _, pc := range d.Breakpoints() {
				d.ClearBreakpoint(pc)
			}
		case 'q', 'Q':
			return
		case 'r', 'R':
			if err := d.Run(); err != nil {
				fmt.Printf("run stopped: %v\n", err)
			}
		case 's', 'S':
			if err := d.Step(); err != nil {
				fmt.Printf("step: %v\n", err)
			}
		case 'i', 'I':
			fmt.Printf("Value: ")
			var n int64
			fmt.Fscanf(reader, "%d\n", &n)
			d.ProvideInput(n)
		case 'o', 'O':
			for _, val := range d.Ink() {
				fmt.Print(val.String())
			}
			fmt.Println()
		case 'e', 'E':
			d.Reset()
		}
	}
}
