// Command funxy runs a small, hand-built in-memory program through the
// compiler and VM end to end, exercising struct scaffolding, arithmetic,
// dynamic array indexing, enum matching, generic trait dispatch, and
// FnOnce/FnMut closures without needing a source-level frontend.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/polyvm/polyvm/internal/compiler"
	"github.com/polyvm/polyvm/internal/config"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/provider"
	"github.com/polyvm/polyvm/internal/traits"
	"github.com/polyvm/polyvm/internal/types"
	"github.com/polyvm/polyvm/internal/vmengine"
)

type scenario struct {
	name     string
	item     types.ItemID
	expected int32
}

var scenarios = []scenario{
	{"struct scaffolding", scaffoldDriverID, 7},
	{"arithmetic", arithDriverID, 14},
	{"dynamic array indexing", indexDriverID, 30},
	{"enum match: Some", matchSomeDriverID, 8},
	{"enum match: None", matchNoneDriverID, 0},
	{"generic trait dispatch: i32", dispatchI32DriverID, 42},
	{"generic trait dispatch: bool", dispatchBoolDriverID, 1},
	{"FnOnce closure", closureOnceDriverID, 7},
	{"FnMut closure", closureMutDriverID, 12},
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	useColor := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	vmCfg, err := config.LoadVMConfig("funxy-vm.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading VM config: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newDemoProgram()
	worker := provider.NewWorker(src)
	prov := provider.NewProvider(worker)
	g, gctx := errgroup.WithContext(ctx)
	worker.Run(gctx, g)

	itemsCtx := items.NewContext(prov)
	resolver := traits.NewResolver(itemsCtx, nil)
	comp := compiler.New(itemsCtx, resolver, nil)
	vm := vmengine.New(vmengine.Config{
		InitialStackBytes: vmCfg.InitialStackBytes,
		MaxStackBytes:     vmCfg.MaxStackBytes,
		MaxFrames:         vmCfg.MaxFrames,
	}, comp.Compile)

	failed := 0
	for _, sc := range scenarios {
		got, err := runScenario(itemsCtx, comp, vm, sc.item)
		if err != nil {
			failed++
			printResult(useColor, false, sc.name, fmt.Sprintf("error: %s", err))
			continue
		}
		if got != sc.expected {
			failed++
			printResult(useColor, false, sc.name, fmt.Sprintf("got %d, want %d", got, sc.expected))
			continue
		}
		printResult(useColor, true, sc.name, fmt.Sprintf("%d", got))
	}

	cancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error shutting down provider worker: %s\n", err)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d scenarios failed\n", failed, len(scenarios))
		os.Exit(1)
	}
}

// runScenario compiles and runs a zero-argument, i32-returning driver
// function, decoding its result slot as a little-endian i32 (matching
// vmengine's writeInt byte order).
func runScenario(itemsCtx *items.Context, comp *compiler.Compiler, vm *vmengine.VM, id types.ItemID) (int32, error) {
	item, err := itemsCtx.Item(id)
	if err != nil {
		return 0, err
	}
	fn := item.FuncMono(nil)
	chunk, err := fn.Bytecode(comp.Compile)
	if err != nil {
		return 0, err
	}
	resultBytes, err := vm.RunToCompletion(chunk, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(resultBytes)), nil
}

func printResult(color bool, ok bool, name, detail string) {
	status := "FAIL"
	if ok {
		status = "PASS"
	}
	if color {
		code := "31"
		if ok {
			code = "32"
		}
		fmt.Printf("\033[%sm%s\033[0m  %-30s %s\n", code, status, name, detail)
		return
	}
	fmt.Printf("%s  %-30s %s\n", status, name, detail)
}
