package typedesc

import (
	"go/types"

	"mapcheck/internal/common"
	"mapcheck/primitive"
)

// TypeID uniquely identifies a named type by its package path and name.
type TypeID struct {
	PkgPath string // e.g., "mapcheck/examples/store"
	Name    string // e.g., "Order"
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// CollectionKind is the container shape of a collection type.
type CollectionKind int

const (
	CollectionNone  CollectionKind = iota
	CollectionArray                // [N]T
	CollectionSlice                // []T
	CollectionSet                  // map[K]struct{} or map[K]bool
	CollectionMap                  // map[K]V
	CollectionChan                 // chan T
)

// String returns a human-readable representation of the CollectionKind.
func (k CollectionKind) String() string {
	switch k {
	case CollectionNone:
		return "none"
	case CollectionArray:
		return "array"
	case CollectionSlice:
		return "slice"
	case CollectionSet:
		return "set"
	case CollectionMap:
		return "map"
	case CollectionChan:
		return "chan"
	default:
		return common.UnknownStr
	}
}

// Family groups collection kinds that are interchangeable as containers.
type Family int

const (
	FamilyNone     Family = iota
	FamilySequence        // arrays and slices
	FamilySet
	FamilyMap
	FamilyQueue
)

// Family returns the container family of the collection kind.
func (k CollectionKind) Family() Family {
	switch k {
	case CollectionArray, CollectionSlice:
		return FamilySequence
	case CollectionSet:
		return FamilySet
	case CollectionMap:
		return FamilyMap
	case CollectionChan:
		return FamilyQueue
	default:
		return FamilyNone
	}
}

// Descriptor is an immutable description of a type as seen by the mapping
// rules.
type Descriptor struct {
	Type types.Type
	// ID is set for named types only.
	ID TypeID
	// Name is the display name, qualified by package name.
	Name string
	// Nullable is set for pointer types; Elem returns the pointee.
	Nullable   bool
	Collection CollectionKind
	// Primitive is the primitive classification of the type, or zero.
	Primitive primitive.KindEnum
	// UserDefined is set for named struct types that are not library primitives.
	UserDefined bool
	// Exported is false for named types that are local to their package.
	Exported bool
	TypeArgs []types.Type
}

// Describe builds a Descriptor for t.
func Describe(t types.Type) Descriptor {
	t = types.Unalias(t)
	d := Descriptor{
		Type:      t,
		Name:      DisplayName(t),
		Primitive: primitive.FromType(t),
		Exported:  true,
	}

	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		d.ID.Name = obj.Name()
		if obj.Pkg() != nil {
			d.ID.PkgPath = obj.Pkg().Path()
		}

		d.Exported = obj.Exported()

		if targs := named.TypeArgs(); targs != nil {
			for i := range targs.Len() {
				d.TypeArgs = append(d.TypeArgs, targs.At(i))
			}
		}

		if _, ok := named.Underlying().(*types.Struct); ok && !d.Primitive.IsSpecial() {
			d.UserDefined = true
		}
	}

	switch u := t.Underlying().(type) {
	case *types.Pointer:
		d.Nullable = true
	case *types.Array:
		if !d.Primitive.IsSpecial() {
			d.Collection = CollectionArray
		}
	case *types.Slice:
		d.Collection = CollectionSlice
	case *types.Map:
		d.Collection = CollectionMap
		if isSetValue(u.Elem()) {
			d.Collection = CollectionSet
		}
	case *types.Chan:
		d.Collection = CollectionChan
	}

	return d
}

// Elem returns the pointee of a nullable type or the element of a collection.
func (d Descriptor) Elem() (Descriptor, bool) {
	switch u := d.Type.Underlying().(type) {
	case *types.Pointer:
		return Describe(u.Elem()), true
	case *types.Array:
		if d.Collection == CollectionArray {
			return Describe(u.Elem()), true
		}
	case *types.Slice:
		return Describe(u.Elem()), true
	case *types.Map:
		if d.Collection == CollectionSet {
			return Describe(u.Key()), true
		}

		return Describe(u.Elem()), true
	case *types.Chan:
		return Describe(u.Elem()), true
	}

	return Descriptor{}, false
}

// Key returns the key of a map type.
func (d Descriptor) Key() (Descriptor, bool) {
	if d.Collection != CollectionMap {
		return Descriptor{}, false
	}

	return Describe(d.Type.Underlying().(*types.Map).Key()), true
}

// IsInterface reports whether the type is an interface.
func (d Descriptor) IsInterface() bool {
	return types.IsInterface(d.Type)
}

// String returns the display name.
func (d Descriptor) String() string {
	return d.Name
}

func isSetValue(t types.Type) bool {
	switch u := t.Underlying().(type) {
	case *types.Struct:
		return u.NumFields() == 0
	case *types.Basic:
		return u.Kind() == types.Bool
	}

	return false
}

// DisplayName renders t qualified by package name.
func DisplayName(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string { return p.Name() })
}
