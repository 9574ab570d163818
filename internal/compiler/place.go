package compiler

import (
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// Place is a storage location an expression can be lowered against
// in-place, rather than copied into a fresh temporary slot. Grounded on
// bytecode_compiler.rs's Place enum / PointerKind{Thin,Fat}.
type Place struct {
	// Slot holds the value directly (Indirect == false) or holds a
	// pointer to it (Indirect == true, tagged Thin/Fat by Kind).
	Slot     slotstack.Slot
	Indirect bool
	Kind     types.PointerKind

	// AddrDelta accumulates byte offsets applied to an indirect place
	// since its pointer was taken (e.g. &s.field.sub_field); the
	// dereferencing Mov{SP,PS} emission adds this to the loaded address.
	AddrDelta int32
}

func DirectPlace(slot slotstack.Slot) Place {
	return Place{Slot: slot}
}

func IndirectPlace(slot slotstack.Slot, kind types.PointerKind) Place {
	return Place{Slot: slot, Indirect: true, Kind: kind}
}

// OffsetBy returns the place for a field/element at byte offset delta
// within this place, mirroring Place::offset_by.
func (p Place) OffsetBy(delta int32) Place {
	if !p.Indirect {
		return Place{Slot: slotstack.OffsetBy(p.Slot, delta)}
	}
	out := p
	out.AddrDelta += delta
	return out
}

// IsFat reports whether this place's pointer (if Indirect) carries fat
// metadata, mirroring PointerKind::is_fat.
func (p Place) IsFat() bool { return p.Indirect && p.Kind == types.PointerFat }
