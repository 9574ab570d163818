package provider

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

type fakeSource struct {
	fn *ir.Function
}

func (f *fakeSource) BuildIR(types.ItemID) (*ir.Function, error) { return f.fn, nil }
func (f *fakeSource) BuildADT(types.ItemID) (*ir.AdtInfo, error) { return &ir.AdtInfo{}, nil }
func (f *fakeSource) ItemByID(id types.ItemID) (ir.ItemMeta, bool) {
	return ir.ItemMeta{Path: "demo::f", IsFunction: true}, true
}
func (f *fakeSource) ItemByPath(crate uint32, path string) (types.ItemID, bool) {
	if path == "demo::f" {
		return types.ItemID{Crate: crate, Item: 1}, true
	}
	return types.ItemID{}, false
}
func (f *fakeSource) TraitImpl(types.ItemID) ([]ir.TraitImpl, error)    { return nil, nil }
func (f *fakeSource) InherentImpl(types.ItemID) ([]ir.TraitImpl, error) { return nil, nil }

func TestProviderRoutesThroughWorker(t *testing.T) {
	src := &fakeSource{fn: &ir.Function{}}
	w := NewWorker(src)
	p := NewProvider(w)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	w.Run(ctx, g)
	defer cancel()

	id, ok := p.ItemByPath(0, "demo::f")
	if !ok || id.Item != 1 {
		t.Fatalf("expected item 1, got %+v ok=%v", id, ok)
	}

	meta, ok := p.ItemByID(id)
	if !ok || meta.Path != "demo::f" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	fn, err := p.BuildIR(id)
	if err != nil || fn != src.fn {
		t.Fatalf("expected shared function pointer, got %v err=%v", fn, err)
	}
}

func TestProviderConcurrentCallsSerializeCleanly(t *testing.T) {
	src := &fakeSource{fn: &ir.Function{}}
	w := NewWorker(src)
	p := NewProvider(w)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	w.Run(ctx, g)
	defer cancel()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			p.ItemByPath(0, "demo::f")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
