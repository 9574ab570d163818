// Package items implements the item store: generic Items, their
// monomorphized Functions, and the per-item caches (IR, ADT layout,
// monomorphization, constant values) that make repeated lookups and
// repeated compiles cheap. Grounded on original_source/src/items.rs.
package items

import (
	"fmt"
	"sync"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

// Item is a generic, crate-relative definition: a function, a constant,
// or an ADT (struct/enum). Its IR and layout are fetched from a Provider
// lazily and cached; concurrent lookups from multiple VM threads are
// expected, so every cache on Item is guarded by its own lock, matching
// spec.md §5's "independent per-concern locks" requirement rather than
// one coarse Item-wide mutex.
type Item struct {
	ID   types.ItemID
	Meta ir.ItemMeta

	provider ir.Provider

	irMu    sync.RWMutex
	rawIR   *ir.Function
	irErr   error

	adtMu   sync.RWMutex
	adtInfo *ir.AdtInfo
	adtErr  error

	monoMu    sync.Mutex
	monoCache map[string]*Function

	constMu    sync.Mutex
	constCache map[string]ConstValue
}

// NewItem wraps a provider-described item for lookup/caching. Items are
// owned by a Context, which interns exactly one Item per ItemID.
func NewItem(id types.ItemID, meta ir.ItemMeta, provider ir.Provider) *Item {
	return &Item{
		ID:        id,
		Meta:      meta,
		provider:  provider,
		monoCache: make(map[string]*Function),
		constCache: make(map[string]ConstValue),
	}
}

// IR returns the item's un-monomorphized IR, building and caching it on
// first access. Mirrors Item::ir()'s lazy raw_ir fetch (the original's
// ctor-glue / virtual-trait three-way dispatch has no counterpart here
// since this module receives already-resolved function items from its
// Provider, not raw rustc HIR).
func (it *Item) IR() (*ir.Function, error) {
	it.irMu.RLock()
	if it.rawIR != nil || it.irErr != nil {
		defer it.irMu.RUnlock()
		return it.rawIR, it.irErr
	}
	it.irMu.RUnlock()

	it.irMu.Lock()
	defer it.irMu.Unlock()
	if it.rawIR != nil || it.irErr != nil {
		return it.rawIR, it.irErr
	}
	fn, err := it.provider.BuildIR(it.ID)
	if err != nil {
		it.irErr = fmt.Errorf("building IR for %s: %w", it.ID, err)
		return nil, it.irErr
	}
	it.rawIR = fn
	return fn, nil
}

// AdtInfo returns the item's struct/enum layout description, building and
// caching it on first access.
func (it *Item) AdtInfo() (*ir.AdtInfo, error) {
	it.adtMu.RLock()
	if it.adtInfo != nil || it.adtErr != nil {
		defer it.adtMu.RUnlock()
		return it.adtInfo, it.adtErr
	}
	it.adtMu.RUnlock()

	it.adtMu.Lock()
	defer it.adtMu.Unlock()
	if it.adtInfo != nil || it.adtErr != nil {
		return it.adtInfo, it.adtErr
	}
	info, err := it.provider.BuildADT(it.ID)
	if err != nil {
		it.adtErr = fmt.Errorf("building ADT info for %s: %w", it.ID, err)
		return nil, it.adtErr
	}
	it.adtInfo = info
	return info, nil
}

// FuncMono returns the Function for this Item instantiated with subs,
// building it on first request and reusing it afterwards. Concurrent
// callers requesting the same (Item, subs) may race to build it; the
// loser's Function is discarded in favor of whichever write wins the
// cache insert, matching spec.md §3's "publish-once" monomorphization
// cache invariant (grounded on Item::func_mono's get-or-insert).
func (it *Item) FuncMono(subs types.SubList) *Function {
	key := subs.Key()

	it.monoMu.Lock()
	if f, ok := it.monoCache[key]; ok {
		it.monoMu.Unlock()
		return f
	}
	it.monoMu.Unlock()

	fresh := newFunction(it, subs)

	it.monoMu.Lock()
	defer it.monoMu.Unlock()
	if existing, ok := it.monoCache[key]; ok {
		return existing
	}
	it.monoCache[key] = fresh
	return fresh
}

func (it *Item) String() string { return fmt.Sprintf("%s(%s)", it.Meta.Path, it.ID) }
