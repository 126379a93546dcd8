package primitive

import "strings"

// CategoryEnum is a set of conversion categories.
type CategoryEnum int

// ConversionPair is an ordered pair of kinds.
type ConversionPair struct {
	From, To KindEnum
}

const (
	CategorySafeNumber   CategoryEnum = 1 << iota // number to number, lossless
	CategoryUnsafeNumber                          // number to number, may lose range or precision
	CategoryTextNumber                            // number <-> decimal text
	CategoryNumericBool                           // integer <-> bool as 0 and 1
	CategoryTextualBool                           // string <-> bool as accepted by strconv.ParseBool
	CategoryDatetime                              // RFC 3339 text <-> time.Time
	CategoryTimestamp                             // Unix seconds <-> time.Time
	CategoryDuration                              // "2h45m" <-> time.Duration
	CategoryNanoseconds                           // integer nanoseconds <-> time.Duration
	CategorySeconds                               // floating-point seconds <-> time.Duration
	CategoryEnumString                            // string <-> named string type

	CategoryAll  CategoryEnum = (1 << iota) - 1
	CategoryNone CategoryEnum = 0
)

var categoryNames = [...]string{
	"safe_number",
	"unsafe_number",
	"text_number",
	"numeric_bool",
	"textual_bool",
	"datetime",
	"timestamp",
	"duration",
	"nanoseconds",
	"seconds",
	"enum_string",
}

// String lists the categories of the set joined by "|".
func (c CategoryEnum) String() string {
	if c == CategoryNone {
		return "none"
	}

	var names []string
	for i, name := range categoryNames {
		if c&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	return strings.Join(names, "|")
}

// width returns the narrowest and widest size in bits a number kind may
// have on any platform.
func width(k KindEnum) (least, most int) {
	switch k {
	case KindInt, KindUint:
		return 32, 64
	default:
		return k.Bits(), k.Bits()
	}
}

// mantissa returns the number of integer bits a float kind holds exactly.
func mantissa(k KindEnum) int {
	if k == KindFloat32 {
		return 24
	}

	return 53
}

// IsWidening reports whether every value of from is representable in to on
// every platform.
func IsWidening(from, to KindEnum) bool {
	if !from.IsNumber() || !to.IsNumber() {
		return false
	}

	if from == to {
		return true
	}

	_, fromMost := width(from)
	toLeast, _ := width(to)

	switch {
	case from.IsFloat():
		return to.IsFloat() && toLeast >= fromMost
	case to.IsFloat():
		return fromMost <= mantissa(to)
	case from.IsSigned() && to.IsSigned(), from.IsUnsigned() && to.IsUnsigned():
		return toLeast >= fromMost
	case from.IsUnsigned():
		return toLeast > fromMost
	default:
		return false
	}
}

// CategoryOf returns the category of a conversion from one kind to another,
// or CategoryNone when there is none.
func CategoryOf(from, to KindEnum) CategoryEnum {
	integer := func(k KindEnum) bool { return k.IsInteger() }
	is := func(k KindEnum) func(KindEnum) bool { return func(o KindEnum) bool { return o == k } }

	either := func(a, b func(KindEnum) bool) bool {
		return a(from) && b(to) || b(from) && a(to)
	}

	switch {
	case from.IsNumber() && to.IsNumber():
		if IsWidening(from, to) {
			return CategorySafeNumber
		}

		return CategoryUnsafeNumber
	case either(KindEnum.IsNumber, is(KindString)):
		return CategoryTextNumber
	case either(integer, is(KindBool)):
		return CategoryNumericBool
	case either(is(KindString), is(KindBool)):
		return CategoryTextualBool
	case either(is(KindString), is(KindTime)):
		return CategoryDatetime
	case either(integer, is(KindTime)):
		return CategoryTimestamp
	case either(is(KindString), is(KindDuration)):
		return CategoryDuration
	case either(func(k KindEnum) bool { return k.IsInteger() && k != KindUint64 }, is(KindDuration)):
		return CategoryNanoseconds
	case either(KindEnum.IsFloat, is(KindDuration)):
		return CategorySeconds
	case either(is(KindString), is(KindPrimitiveEnum)), from == KindPrimitiveEnum && to == KindPrimitiveEnum:
		return CategoryEnumString
	default:
		return CategoryNone
	}
}
