package items

import (
	"sync"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

// Context interns one Item per ItemID across an entire VM run, and caches
// each trait's impl list (fetched once from the Provider and reused by
// every FindImpl call). Grounded on items.rs's ItemContext; the interning
// map and the impl-list cache are independent RWMutex-guarded concerns,
// per spec.md §5.
type Context struct {
	provider ir.Provider

	itemsMu sync.RWMutex
	items   map[types.ItemID]*Item

	implsMu sync.RWMutex
	impls   map[types.ItemID][]ir.TraitImpl
}

func NewContext(provider ir.Provider) *Context {
	return &Context{
		provider: provider,
		items:    make(map[types.ItemID]*Item),
		impls:    make(map[types.ItemID][]ir.TraitImpl),
	}
}

// Item returns the interned Item for id, fetching its metadata from the
// provider and interning it on first lookup.
func (c *Context) Item(id types.ItemID) (*Item, error) {
	c.itemsMu.RLock()
	if it, ok := c.items[id]; ok {
		c.itemsMu.RUnlock()
		return it, nil
	}
	c.itemsMu.RUnlock()

	meta, ok := c.provider.ItemByID(id)
	if !ok {
		return nil, &ItemNotFoundError{ID: id}
	}

	c.itemsMu.Lock()
	defer c.itemsMu.Unlock()
	if it, ok := c.items[id]; ok {
		return it, nil
	}
	it := NewItem(id, meta, c.provider)
	c.items[id] = it
	return it, nil
}

// ItemByPath resolves a crate-relative path to an Item.
func (c *Context) ItemByPath(crate uint32, path string) (*Item, error) {
	id, ok := c.provider.ItemByPath(crate, path)
	if !ok {
		return nil, &ItemNotFoundError{Path: path}
	}
	return c.Item(id)
}

// TraitImpls returns the cached impl list for trait, fetching it from the
// provider on first request.
func (c *Context) TraitImpls(trait types.ItemID) ([]ir.TraitImpl, error) {
	c.implsMu.RLock()
	if impls, ok := c.impls[trait]; ok {
		c.implsMu.RUnlock()
		return impls, nil
	}
	c.implsMu.RUnlock()

	impls, err := c.provider.TraitImpl(trait)
	if err != nil {
		return nil, err
	}

	c.implsMu.Lock()
	defer c.implsMu.Unlock()
	if existing, ok := c.impls[trait]; ok {
		return existing, nil
	}
	c.impls[trait] = impls
	return impls, nil
}

// ItemNotFoundError reports that no item exists for an id or path.
type ItemNotFoundError struct {
	ID   types.ItemID
	Path string
}

func (e *ItemNotFoundError) Error() string {
	if e.Path != "" {
		return "items: no item at path " + e.Path
	}
	return "items: no item " + e.ID.String()
}
