package primitive

import (
	"go/types"
	"math"
	"reflect"
	"time"
)

//go:generate go tool stringer -type=KindEnum -output=kind_string.go

type KindEnum int

const (
	_ KindEnum = iota // skip zero value, use it as a default (invalid) value for KindEnum

	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindTime
	KindDuration
	KindUUID
	KindPrimitiveEnum // named type over any number, boolean or string

	// KindTotal is a constant that represents the total number of kinds defined
	KindTotal = int(iota)
)

func (k KindEnum) IsNumber() bool {
	switch k {
	default:
		return false
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint, KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat32, KindFloat64:
		return true
	}
}

func (k KindEnum) IsInteger() bool {
	switch k {
	default:
		return false
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint, KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
}

func (k KindEnum) IsFloat() bool {
	switch k {
	default:
		return false
	case KindFloat32, KindFloat64:
		return true
	}
}

func (k KindEnum) IsSigned() bool {
	switch k {
	default:
		return false
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
}

func (k KindEnum) IsUnsigned() bool {
	switch k {
	default:
		return false
	case KindUint, KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
}

func (k KindEnum) Bits() int {
	switch k {
	default:
		panic("only integer kinds has meaningful bits amount, but requested for: " + k.String())
	case KindInt, KindUint:
		power := 0
		for n := uint(math.MaxUint); n > 0; n >>= 1 {
			power++
		}
		return power
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32:
		return 32
	case KindInt64, KindUint64:
		return 64
	case KindFloat32:
		return 32
	case KindFloat64:
		return 64
	}
}

func FromReflectType(rtype reflect.Type) KindEnum {
	if rtype == nil {
		return 0
	}

	// check if true primitive type
	switch rtype {
	case reflect.TypeOf(int(0)):
		return KindInt
	case reflect.TypeOf(int8(0)):
		return KindInt8
	case reflect.TypeOf(int16(0)):
		return KindInt16
	case reflect.TypeOf(int32(0)):
		return KindInt32
	case reflect.TypeOf(int64(0)):
		return KindInt64
	case reflect.TypeOf(uint(0)):
		return KindUint
	case reflect.TypeOf(uint8(0)):
		return KindUint8
	case reflect.TypeOf(uint16(0)):
		return KindUint16
	case reflect.TypeOf(uint32(0)):
		return KindUint32
	case reflect.TypeOf(uint64(0)):
		return KindUint64
	case reflect.TypeOf(float32(0)):
		return KindFloat32
	case reflect.TypeOf(float64(0)):
		return KindFloat64
	case reflect.TypeOf(false):
		return KindBool
	case reflect.TypeOf(""):
		return KindString
	case reflect.TypeOf(time.Time{}):
		return KindTime
	case reflect.TypeOf(time.Duration(0)):
		return KindDuration
	}

	// check if it's a primitive enum type
	switch rtype.Kind() {
	default:
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool, reflect.String:
		return KindPrimitiveEnum
	}
}

// FromType classifies a go/types type. Well-known library types (time.Time,
// time.Duration, uuid.UUID) are recognized by package path and name, other
// named types over a basic type are reported as KindPrimitiveEnum.
func FromType(t types.Type) KindEnum {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		return fromBasic(t.Kind())
	case *types.Named:
		if kind, ok := wellKnown[qualifiedName(t)]; ok {
			return kind
		}

		if b, ok := t.Underlying().(*types.Basic); ok && fromBasic(b.Kind()) != 0 {
			return KindPrimitiveEnum
		}
	}

	return 0
}

// Underlying is like FromType but resolves named basic types to the kind of
// their underlying type.
func Underlying(t types.Type) KindEnum {
	kind := FromType(t)
	if kind != KindPrimitiveEnum {
		return kind
	}

	b, _ := t.Underlying().(*types.Basic)

	return fromBasic(b.Kind())
}

// IsSpecial reports whether the kind is a library type treated as a primitive.
func (k KindEnum) IsSpecial() bool {
	return k == KindTime || k == KindDuration || k == KindUUID
}

// BasicName returns the predeclared Go type name of a basic kind.
func (k KindEnum) BasicName() string {
	for kind, name := range basicNames {
		if name == k {
			return types.Typ[kind].Name()
		}
	}

	return ""
}

var wellKnown = map[string]KindEnum{
	"time.Time":                   KindTime,
	"time.Duration":               KindDuration,
	"github.com/google/uuid.UUID": KindUUID,
}

var basicNames = map[types.BasicKind]KindEnum{
	types.Int:     KindInt,
	types.Int8:    KindInt8,
	types.Int16:   KindInt16,
	types.Int32:   KindInt32,
	types.Int64:   KindInt64,
	types.Uint:    KindUint,
	types.Uint8:   KindUint8,
	types.Uint16:  KindUint16,
	types.Uint32:  KindUint32,
	types.Uint64:  KindUint64,
	types.Float32: KindFloat32,
	types.Float64: KindFloat64,
	types.Bool:    KindBool,
	types.String:  KindString,
}

func fromBasic(kind types.BasicKind) KindEnum {
	return basicNames[kind]
}

func qualifiedName(named *types.Named) string {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}

	return obj.Pkg().Path() + "." + obj.Name()
}
