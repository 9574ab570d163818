package ir

import "github.com/polyvm/polyvm/internal/types"

// Pattern is one node of a pattern tree, matched by the compiler's matchPattern
// against a Place. Grounded on match_pattern_internal's PatternKind match
// in bytecode_compiler.rs.
type Pattern struct {
	Kind PatternKind
	Ty   types.Type
}

type PatternKind interface{ patternKind() }

// PatternHole matches anything and binds nothing ("_").
type PatternHole struct{}

// PatternLocalBinding irrefutably binds the matched place to a local.
type PatternLocalBinding struct {
	Local LocalID
	// SubPattern, if present, is matched against the same place after
	// binding (Rust's `x @ pat`).
	SubPattern PatternID
	HasSub     bool
}

// PatternLiteralValue matches an exact scalar value; refutable.
type PatternLiteralValue struct {
	IntValue   int64
	IsInt      bool
	FloatValue float64
	IsFloat    bool
	BoolValue  bool
	IsBool     bool
}

// PatternLiteralBytes matches an exact byte/string literal; refutable.
type PatternLiteralBytes struct{ Bytes []byte }

// PatternNamedConst matches against the value of a resolved const item;
// refutable.
type PatternNamedConst struct{ Item types.ItemID }

// PatternRange matches Start <= x < End (or <= End if Inclusive).
type PatternRange struct {
	Start, End int64
	Inclusive  bool
}

// PatternStruct destructures an ADT's fields (variant 0 for structs);
// refutable if Adt is an enum (Variant must match) or if any field
// pattern is refutable.
type PatternStruct struct {
	Adt     types.Adt
	Variant int
	IsEnum  bool
	Fields  []PatternID
}

// PatternEnum is PatternStruct specialized to "does the discriminant
// match Variant", used when the sub-patterns are tested separately from
// the discriminant check (the original splits this for match-compilation
// efficiency; kept as a distinct node here for the same reason).
type PatternEnum struct {
	Adt     types.Adt
	Variant int
}

// PatternOr matches if any alternative matches; all alternatives must
// bind the same set of locals.
type PatternOr struct{ Alternatives []PatternID }

// PatternDeRef matches through a pointer indirection before applying Inner.
type PatternDeRef struct{ Inner PatternID }

// PatternSlice matches a slice/array, splitting Start/Mid/End the way the
// original separates fixed Array indexing from variable-length Slice
// matching (a Mid pattern only applies to slices, never fixed arrays).
type PatternSlice struct {
	Start  []PatternID
	Mid    PatternID // -1 if absent
	HasMid bool
	End    []PatternID
	IsArray bool
}

func (PatternHole) patternKind()         {}
func (PatternLocalBinding) patternKind() {}
func (PatternLiteralValue) patternKind() {}
func (PatternLiteralBytes) patternKind() {}
func (PatternNamedConst) patternKind()   {}
func (PatternRange) patternKind()        {}
func (PatternStruct) patternKind()       {}
func (PatternEnum) patternKind()         {}
func (PatternOr) patternKind()           {}
func (PatternDeRef) patternKind()        {}
func (PatternSlice) patternKind()        {}
