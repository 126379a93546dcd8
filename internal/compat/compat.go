// Package compat classifies the relationship between a source member type
// and a destination member type.
package compat

import (
	"go/types"

	"mapcheck/internal/common"
	"mapcheck/internal/typedesc"
	"mapcheck/primitive"
)

// Kind is the verdict of a type compatibility check.
type Kind int

const (
	// Incompatible means no automatic conversion exists.
	Incompatible Kind = iota
	// ExactMatch means the value can be copied as is.
	ExactMatch
	// NullableMismatch means exactly one side is a pointer.
	NullableMismatch
	// NumericConversion means both sides are numbers of different kinds.
	NumericConversion
	// CollectionContainerMismatch means the container families differ.
	CollectionContainerMismatch
	// CollectionElementMismatch means the element types are incompatible.
	CollectionElementMismatch
	// RequiresNestedMapping means a mapping for a pair of user-defined types is needed.
	RequiresNestedMapping
)

const (
	VerdictExactMatch        = "exact_match"
	VerdictNullableMismatch  = "nullable_mismatch"
	VerdictNumericConversion = "numeric_conversion"
	VerdictContainerMismatch = "collection_container_mismatch"
	VerdictElementMismatch   = "collection_element_mismatch"
	VerdictNestedMapping     = "requires_nested_mapping"
	VerdictIncompatible      = "incompatible"
)

// String returns a human-readable name for the verdict kind.
func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return VerdictExactMatch
	case NullableMismatch:
		return VerdictNullableMismatch
	case NumericConversion:
		return VerdictNumericConversion
	case CollectionContainerMismatch:
		return VerdictContainerMismatch
	case CollectionElementMismatch:
		return VerdictElementMismatch
	case RequiresNestedMapping:
		return VerdictNestedMapping
	case Incompatible:
		return VerdictIncompatible
	default:
		return common.UnknownStr
	}
}

// Verdict contains detailed information about type compatibility.
type Verdict struct {
	Kind Kind

	// Widening is set on NumericConversion when no value can be lost.
	Widening bool
	// SourceNullable is set on NullableMismatch when the source is the pointer.
	SourceNullable bool
	// UnderlyingCompatible is set on NullableMismatch when the unwrapped types
	// are an exact match or a widening conversion.
	UnderlyingCompatible bool

	// NestedSource and NestedDestination are the innermost user-defined pair
	// of a RequiresNestedMapping verdict.
	NestedSource      types.Type
	NestedDestination types.Type

	Reason     string // Human-readable explanation
	SourceType string // Display name of the source type
	TargetType string // Display name of the destination type
}

// maxDepth bounds the unwrapping of recursive unnamed-element types such as
// `type List []List`.
const maxDepth = 32

// ClassifyTypes is Classify over go/types types.
func ClassifyTypes(src, dst types.Type) Verdict {
	return Classify(typedesc.Describe(src), typedesc.Describe(dst))
}

// Classify determines the compatibility between a source and destination
// type. The first matching rule wins:
//
//  1. identical types (or assignable to an interface, or named types over the
//     same basic type) are an exact match;
//  2. a pointer source with a non-pointer destination is a nullable mismatch
//     when the pointee is compatible; pointers on both sides compare pointees;
//  3. the reverse direction is an advisory nullable mismatch;
//  4. collections compare container families, map keys and elements;
//  5. two user-defined structs require a nested mapping;
//  6. two numbers need a conversion, widening when lossless;
//  7. everything else is incompatible.
func Classify(src, dst typedesc.Descriptor) Verdict {
	v := classify(src, dst, 0)
	v.SourceType = src.Name
	v.TargetType = dst.Name

	return v
}

func classify(src, dst typedesc.Descriptor, depth int) Verdict {
	if depth > maxDepth {
		return Verdict{Kind: Incompatible, Reason: "type nesting is too deep"}
	}

	if types.Identical(src.Type, dst.Type) {
		return Verdict{Kind: ExactMatch, Reason: "types are identical"}
	}

	if dst.IsInterface() && types.AssignableTo(src.Type, dst.Type) {
		return Verdict{Kind: ExactMatch, Reason: "source implements the destination interface"}
	}

	if sameBasic(src, dst) {
		return Verdict{Kind: ExactMatch, Reason: "types share the same underlying basic type"}
	}

	switch {
	case src.Nullable && dst.Nullable:
		srcElem, _ := src.Elem()
		dstElem, _ := dst.Elem()

		return classify(srcElem, dstElem, depth+1)

	case src.Nullable:
		srcElem, _ := src.Elem()
		inner := classify(srcElem, dst, depth+1)

		return nullable(inner, true)

	case dst.Nullable:
		dstElem, _ := dst.Elem()
		inner := classify(src, dstElem, depth+1)

		return nullable(inner, false)
	}

	if src.Collection != typedesc.CollectionNone && dst.Collection != typedesc.CollectionNone {
		return collection(src, dst, depth)
	}

	if src.UserDefined && dst.UserDefined {
		return Verdict{
			Kind:              RequiresNestedMapping,
			NestedSource:      src.Type,
			NestedDestination: dst.Type,
			Reason:            "user-defined types require their own mapping",
		}
	}

	srcKind, dstKind := primitive.Underlying(src.Type), primitive.Underlying(dst.Type)
	if srcKind.IsNumber() && dstKind.IsNumber() {
		widening := primitive.IsWidening(srcKind, dstKind)
		reason := "narrowing numeric conversion"
		if widening {
			reason = "widening numeric conversion"
		}

		return Verdict{Kind: NumericConversion, Widening: widening, Reason: reason}
	}

	return Verdict{Kind: Incompatible, Reason: "types are not compatible"}
}

func nullable(inner Verdict, sourceNullable bool) Verdict {
	switch inner.Kind {
	case ExactMatch:
		return Verdict{
			Kind:                 NullableMismatch,
			SourceNullable:       sourceNullable,
			UnderlyingCompatible: true,
			Reason:               "only one side is a pointer",
		}
	case NumericConversion:
		return Verdict{
			Kind:                 NullableMismatch,
			SourceNullable:       sourceNullable,
			UnderlyingCompatible: inner.Widening,
			Reason:               "only one side is a pointer and the pointee needs a numeric conversion",
		}
	default:
		return inner
	}
}

func collection(src, dst typedesc.Descriptor, depth int) Verdict {
	if src.Collection.Family() != dst.Collection.Family() {
		return Verdict{
			Kind:   CollectionContainerMismatch,
			Reason: "cannot map a " + src.Collection.String() + " to a " + dst.Collection.String(),
		}
	}

	if src.Collection == typedesc.CollectionMap {
		srcKey, _ := src.Key()
		dstKey, _ := dst.Key()

		if key := classify(srcKey, dstKey, depth+1); key.Kind != ExactMatch {
			return Verdict{Kind: CollectionElementMismatch, Reason: "map keys differ: " + key.Reason}
		}
	}

	srcElem, _ := src.Elem()
	dstElem, _ := dst.Elem()
	elem := classify(srcElem, dstElem, depth+1)

	switch elem.Kind {
	case ExactMatch, NumericConversion, RequiresNestedMapping, NullableMismatch:
		return elem
	default:
		return Verdict{Kind: CollectionElementMismatch, Reason: "collection elements differ: " + elem.Reason}
	}
}

func sameBasic(src, dst typedesc.Descriptor) bool {
	if src.Primitive.IsSpecial() || dst.Primitive.IsSpecial() {
		return false
	}

	sb, ok := src.Type.Underlying().(*types.Basic)
	if !ok {
		return false
	}

	db, ok := dst.Type.Underlying().(*types.Basic)

	return ok && sb.Kind() == db.Kind()
}
