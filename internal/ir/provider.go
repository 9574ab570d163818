package ir

import "github.com/polyvm/polyvm/internal/types"

// AdtInfo describes a struct or enum's shape: field types per variant
// (variant 0 only, for structs), grounded on items.rs's AdtInfo/AdtKind.
type AdtInfo struct {
	IsEnum   bool
	Variants [][]types.Type
}

// TraitImpl is one candidate implementation of a trait for a concrete (or
// still partially generic) set of types, grounded on items.rs's
// TraitImpl/BoundKind.
type TraitImpl struct {
	Generics  int
	ForTypes  []types.Type
	AssocFn   types.ItemID
	Bounds    []Bound
}

// Bound is one where-clause constraint a TraitImpl's own generics must
// satisfy before it's a valid candidate.
type Bound struct {
	Kind       BoundKind
	ParamIndex int
	Trait      types.ItemID
	// Projection bounds additionally name the associated type being
	// constrained and its required value.
	AssocName string
	Value     types.Type
}

type BoundKind int

const (
	BoundTrait BoundKind = iota
	BoundProjection
)

// Provider is the external collaborator that supplies items, their IR,
// and trait/inherent impl lists. It corresponds to cache_provider.rs's
// CrateProvider trait; this module implements the interface boundary
// only, not the on-disk cache format cache_provider.rs reads from (out of
// scope per spec.md §1).
type Provider interface {
	ItemByID(id types.ItemID) (ItemMeta, bool)
	ItemByPath(crate uint32, path string) (types.ItemID, bool)
	BuildIR(id types.ItemID) (*Function, error)
	BuildADT(id types.ItemID) (*AdtInfo, error)
	TraitImpl(trait types.ItemID) ([]TraitImpl, error)
	InherentImpl(ty types.ItemID) ([]TraitImpl, error)
}

// ItemMeta is the minimal metadata a Provider exposes about an item
// without building its full IR (name, generic arity, kind).
type ItemMeta struct {
	Path         string
	GenericCount int
	IsFunction   bool
	IsConst      bool
	IsAdt        bool
}
