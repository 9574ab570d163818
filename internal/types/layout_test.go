package types

import "testing"

func noAdtFields(Adt) ([]Type, bool) { return nil, false }

func TestLayoutPrimitives(t *testing.T) {
	l := LayoutOf(Int{Width: Width32, Signed: true}, noAdtFields)
	if l.Size != 4 || l.Align != 4 {
		t.Fatalf("unexpected i32 layout: %+v", l)
	}
}

func TestLayoutTupleAligns(t *testing.T) {
	tup := Tuple{Elems: []Type{Bool{}, Int{Width: Width64, Signed: true}}}
	l := LayoutOf(tup, noAdtFields)
	if l.Align != 8 {
		t.Fatalf("expected 8-byte alignment from i64 field, got %d", l.Align)
	}
	if l.FieldOffsets[1] != 8 {
		t.Fatalf("expected second field padded to offset 8, got %d", l.FieldOffsets[1])
	}
	if l.Size != 16 {
		t.Fatalf("expected total size 16, got %d", l.Size)
	}
}

func TestLayoutFatPointer(t *testing.T) {
	l := LayoutOf(Ptr{Elem: Slice{Elem: Int{Width: Width8, Signed: false}}, Kind: PointerFat}, noAdtFields)
	if l.Size != 16 || len(l.FieldOffsets) != 2 {
		t.Fatalf("unexpected fat pointer layout: %+v", l)
	}
}

func TestSubListApply(t *testing.T) {
	p := Param{Index: 0}
	subs := SubList{Int{Width: Width64, Signed: true}}
	applied := p.Apply(subs)
	if applied.String() != "i64" {
		t.Fatalf("expected i64, got %s", applied.String())
	}
}
