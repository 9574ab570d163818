package items

import (
	"sync"
	"testing"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

type fakeProvider struct {
	metas map[types.ItemID]ir.ItemMeta
	fns   map[types.ItemID]*ir.Function
}

func (p *fakeProvider) ItemByID(id types.ItemID) (ir.ItemMeta, bool) {
	m, ok := p.metas[id]
	return m, ok
}
func (p *fakeProvider) ItemByPath(crate uint32, path string) (types.ItemID, bool) {
	for id, m := range p.metas {
		if id.Crate == crate && m.Path == path {
			return id, true
		}
	}
	return types.ItemID{}, false
}
func (p *fakeProvider) BuildIR(id types.ItemID) (*ir.Function, error) { return p.fns[id], nil }
func (p *fakeProvider) BuildADT(types.ItemID) (*ir.AdtInfo, error)    { return &ir.AdtInfo{}, nil }
func (p *fakeProvider) TraitImpl(types.ItemID) ([]ir.TraitImpl, error) { return nil, nil }
func (p *fakeProvider) InherentImpl(types.ItemID) ([]ir.TraitImpl, error) { return nil, nil }

func TestItemInterning(t *testing.T) {
	id := types.ItemID{Crate: 0, Item: 1}
	p := &fakeProvider{metas: map[types.ItemID]ir.ItemMeta{id: {Path: "foo", IsFunction: true}}}
	ctx := NewContext(p)

	a, err := ctx.Item(id)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctx.Item(id)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the same interned Item instance")
	}
}

func TestFuncMonoCachesBySubListKey(t *testing.T) {
	id := types.ItemID{Crate: 0, Item: 2}
	p := &fakeProvider{metas: map[types.ItemID]ir.ItemMeta{id: {Path: "identity", IsFunction: true}}}
	ctx := NewContext(p)
	it, _ := ctx.Item(id)

	f1 := it.FuncMono(types.SubList{types.Int{Width: types.Width64, Signed: true}})
	f2 := it.FuncMono(types.SubList{types.Int{Width: types.Width64, Signed: true}})
	f3 := it.FuncMono(types.SubList{types.Bool{}})

	if f1 != f2 {
		t.Fatal("expected identical SubLists to reuse the same Function")
	}
	if f1 == f3 {
		t.Fatal("expected different SubLists to produce different Functions")
	}
}

func TestFunctionBytecodePublishOnce(t *testing.T) {
	id := types.ItemID{Crate: 0, Item: 3}
	p := &fakeProvider{metas: map[types.ItemID]ir.ItemMeta{id: {Path: "f", IsFunction: true}}}
	ctx := NewContext(p)
	it, _ := ctx.Item(id)
	fn := it.FuncMono(nil)

	var compiles int32
	var mu sync.Mutex
	compile := func(*Function) (*bytecode.Chunk, error) {
		mu.Lock()
		compiles++
		mu.Unlock()
		return bytecode.NewChunk(), nil
	}

	var wg sync.WaitGroup
	results := make([]*bytecode.Chunk, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := fn.Bytecode(compile)
			if err != nil {
				t.Error(err)
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("expected every caller to observe the same published Chunk")
		}
	}
	if !fn.IsCompiled() {
		t.Fatal("expected Function to report compiled after publish")
	}
}
