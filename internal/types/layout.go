package types

// Layout is the size/alignment/field-offset information for a concrete
// Type. LayoutOf computes it afresh on every call; nothing caches or
// interns it. Only
// concrete types (IsConcrete() == true) ever have a Layout; generic
// Params are laid out only after monomorphization substitutes them away.
type Layout struct {
	Size    uint32
	Align   uint32
	// FieldOffsets is populated for Tuple/Adt layouts and fat pointers, in
	// declaration order; Array layouts have none. For an enum, the field
	// list adtFields supplies starts with the discriminant.
	FieldOffsets []uint32
	// DiscriminantSize is nonzero only in the discriminant-only layout
	// LayoutOf falls back to when adtFields has no field list for an Adt.
	DiscriminantSize uint32
}

// LayoutOf computes the layout of t given the layouts of any Adt fields it
// references, supplied via fieldLayouts (keyed by the Adt's field types in
// declaration order, resolved by the caller via the item store's AdtInfo).
// Primitive and composite-of-primitives types are computed directly.
func LayoutOf(t Type, adtFields func(Adt) ([]Type, bool)) Layout {
	switch v := t.(type) {
	case Bool:
		return Layout{Size: 1, Align: 1}
	case Int:
		sz := v.Width.Bytes()
		return Layout{Size: sz, Align: alignFor(sz)}
	case Float:
		sz := v.Width.Bytes()
		return Layout{Size: sz, Align: alignFor(sz)}
	case Ptr:
		if v.Kind == PointerFat {
			// address + length/vtable word, both pointer-sized.
			return Layout{Size: 16, Align: 8, FieldOffsets: []uint32{0, 8}}
		}
		return Layout{Size: 8, Align: 8}
	case Array:
		elem := LayoutOf(v.Elem, adtFields)
		stride := alignUp32(elem.Size, elem.Align)
		return Layout{Size: stride * uint32(v.Len), Align: elem.Align}
	case Tuple:
		return layoutFields(fieldTypes(v.Elems), adtFields)
	case Adt:
		if fields, ok := adtFields(v); ok {
			return layoutFields(fields, adtFields)
		}
		// Enum discriminant-only fallback until variant layout is known to
		// the caller; width chosen to hold any reasonable variant count.
		return Layout{Size: 4, Align: 4, DiscriminantSize: 4}
	default:
		panic("types: LayoutOf: unsupported type for layout computation")
	}
}

func fieldTypes(ts []Type) []Type { return ts }

func layoutFields(fields []Type, adtFields func(Adt) ([]Type, bool)) Layout {
	var offset, align uint32 = 0, 1
	offsets := make([]uint32, len(fields))
	for i, f := range fields {
		fl := LayoutOf(f, adtFields)
		offset = alignUp32(offset, fl.Align)
		offsets[i] = offset
		offset += fl.Size
		if fl.Align > align {
			align = fl.Align
		}
	}
	return Layout{
		Size:         alignUp32(offset, align),
		Align:        align,
		FieldOffsets: offsets,
	}
}

func alignFor(size uint32) uint32 {
	if size >= 8 {
		return 8
	}
	return size
}

func alignUp32(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
