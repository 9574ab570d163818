// Package types models the monomorphic type system the VM operates on:
// concrete and still-generic (parameter-indexed) types, their interned
// Layouts, and substitution lists used to turn a generic Item into a
// concrete Function: no inference variables, no kind polymorphism,
// just Param/concrete and a directional unifier.
package types

import (
	"fmt"
	"strings"
)

// ItemID identifies a crate-relative item; types.Adt references one
// without importing package items, which depends on types.
type ItemID struct {
	Crate uint32
	Item  uint32
}

func (id ItemID) String() string { return fmt.Sprintf("#%d:%d", id.Crate, id.Item) }

// IntWidth is one of the fixed integer widths the VM's instruction set
// supports, per original_source/src/vm/instr.rs's per-width op families.
type IntWidth uint8

const (
	Width8 IntWidth = iota
	Width16
	Width32
	Width64
	Width128
)

func (w IntWidth) Bytes() uint32 {
	switch w {
	case Width8:
		return 1
	case Width16:
		return 2
	case Width32:
		return 4
	case Width64:
		return 8
	case Width128:
		return 16
	default:
		panic("types: bad IntWidth")
	}
}

// FloatWidth distinguishes F32 from F64.
type FloatWidth uint8

const (
	FWidth32 FloatWidth = iota
	FWidth64
)

func (w FloatWidth) Bytes() uint32 {
	if w == FWidth32 {
		return 4
	}
	return 8
}

// PointerKind distinguishes thin pointers (just an address) from fat
// pointers (address + length, for slices, or address + vtable, for trait
// objects), mirroring the original's closed PointerKind{Thin,Fat} enum.
type PointerKind uint8

const (
	PointerThin PointerKind = iota
	PointerFat
)

// Type is the sealed set of type shapes the VM can lay out and operate on.
type Type interface {
	String() string
	// Apply substitutes any Param types using subs, returning a new Type.
	Apply(subs SubList) Type
	// IsConcrete reports whether the type contains no unresolved Params.
	IsConcrete() bool
}

// Param is an unresolved generic parameter, resolved via a SubList index
// during monomorphization.
type Param struct{ Index uint32 }

func (p Param) String() string        { return fmt.Sprintf("T%d", p.Index) }
func (p Param) IsConcrete() bool      { return false }
func (p Param) Apply(subs SubList) Type {
	if int(p.Index) < len(subs) {
		return subs[p.Index]
	}
	return p
}

// Bool is the boolean type.
type Bool struct{}

func (Bool) String() string          { return "bool" }
func (Bool) IsConcrete() bool        { return true }
func (b Bool) Apply(SubList) Type    { return b }

// Int is a fixed-width signed or unsigned integer type.
type Int struct {
	Width  IntWidth
	Signed bool
}

func (i Int) String() string {
	prefix := "u"
	if i.Signed {
		prefix = "i"
	}
	return fmt.Sprintf("%s%d", prefix, i.Width.Bytes()*8)
}
func (i Int) IsConcrete() bool     { return true }
func (i Int) Apply(SubList) Type   { return i }

// Float is a fixed-width floating point type.
type Float struct{ Width FloatWidth }

func (f Float) String() string {
	if f.Width == FWidth32 {
		return "f32"
	}
	return "f64"
}
func (f Float) IsConcrete() bool    { return true }
func (f Float) Apply(SubList) Type  { return f }

// Tuple is a fixed-arity product type.
type Tuple struct{ Elems []Type }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t Tuple) IsConcrete() bool {
	for _, e := range t.Elems {
		if !e.IsConcrete() {
			return false
		}
	}
	return true
}
func (t Tuple) Apply(subs SubList) Type {
	out := make([]Type, len(t.Elems))
	for i, e := range t.Elems {
		out[i] = e.Apply(subs)
	}
	return Tuple{Elems: out}
}

// Array is a fixed-length sequence type, laid out inline.
type Array struct {
	Elem Type
	Len  uint64
}

func (a Array) String() string       { return fmt.Sprintf("[%s; %d]", a.Elem.String(), a.Len) }
func (a Array) IsConcrete() bool     { return a.Elem.IsConcrete() }
func (a Array) Apply(subs SubList) Type {
	return Array{Elem: a.Elem.Apply(subs), Len: a.Len}
}

// Slice is an unsized sequence type, only ever seen behind a fat Ptr.
type Slice struct{ Elem Type }

func (s Slice) String() string       { return fmt.Sprintf("[%s]", s.Elem.String()) }
func (s Slice) IsConcrete() bool     { return s.Elem.IsConcrete() }
func (s Slice) Apply(subs SubList) Type {
	return Slice{Elem: s.Elem.Apply(subs)}
}

// Ptr is a reference/pointer type. Thin pointers point at a Type of known
// static size; fat pointers point at an unsized Elem (a Slice, or a trait
// object) and carry metadata (length or vtable) alongside the address.
type Ptr struct {
	Elem Type
	Kind PointerKind
}

func (p Ptr) String() string {
	return fmt.Sprintf("&%s", p.Elem.String())
}
func (p Ptr) IsConcrete() bool { return p.Elem.IsConcrete() }
func (p Ptr) Apply(subs SubList) Type {
	return Ptr{Elem: p.Elem.Apply(subs), Kind: p.Kind}
}

// Adt is a user-defined struct or enum, identified by item and
// instantiated with a SubList of type arguments.
type Adt struct {
	Item ItemID
	Subs SubList
}

func (a Adt) String() string {
	if len(a.Subs) == 0 {
		return a.Item.String()
	}
	parts := make([]string, len(a.Subs))
	for i, s := range a.Subs {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s<%s>", a.Item, strings.Join(parts, ", "))
}
func (a Adt) IsConcrete() bool {
	for _, s := range a.Subs {
		if !s.IsConcrete() {
			return false
		}
	}
	return true
}
func (a Adt) Apply(subs SubList) Type {
	out := make(SubList, len(a.Subs))
	for i, s := range a.Subs {
		out[i] = s.Apply(subs)
	}
	return Adt{Item: a.Item, Subs: out}
}

// SubList is a substitution list: SubList[i] is the concrete (or still
// partially generic) type bound to Param{i} within some generic item.
type SubList []Type

func (s SubList) IsConcrete() bool {
	for _, t := range s {
		if !t.IsConcrete() {
			return false
		}
	}
	return true
}

func (s SubList) Apply(outer SubList) SubList {
	out := make(SubList, len(s))
	for i, t := range s {
		out[i] = t.Apply(outer)
	}
	return out
}

func (s SubList) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Key returns a string uniquely identifying this SubList's structure, used
// as a monomorphization cache key alongside an ItemID. Equal SubLists
// (same types, recursively) always produce equal keys.
func (s SubList) Key() string {
	var b strings.Builder
	for i, t := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	return b.String()
}
