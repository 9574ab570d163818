package items

// ConstValue is a constant-evaluated value interned into an item's const
// cache, grounded on Item::const_value in items.rs. Constant evaluation
// itself (running a promoted expression on a dedicated VM thread and
// copying the result into a bump arena) lives in package constant, whose
// Evaluator keeps its own cache of promoted values; nothing in this
// module calls Item.CacheConst/LookupConst below.
type ConstValue struct {
	Bytes []byte
}

// LookupConst returns a previously cached constant for this item under
// key (the SubList key its value was computed with, or "" for a
// non-generic const), if one exists.
func (it *Item) LookupConst(key string) (ConstValue, bool) {
	it.constMu.Lock()
	defer it.constMu.Unlock()
	v, ok := it.constCache[key]
	return v, ok
}

// CacheConst stores a computed constant value, returning the value that
// ends up cached (the caller's value if this is the first store, or
// whatever a racing caller already stored otherwise) so repeated
// evaluation races are harmless, matching the same publish-once shape as
// Function.Bytecode.
func (it *Item) CacheConst(key string, v ConstValue) ConstValue {
	it.constMu.Lock()
	defer it.constMu.Unlock()
	if existing, ok := it.constCache[key]; ok {
		return existing
	}
	it.constCache[key] = v
	return v
}
