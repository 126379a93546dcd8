package automap

import (
	"fmt"
	"reflect"
)

type optionKind int

const (
	optionIgnore optionKind = iota + 1
	optionMapFrom
	optionConvert
)

// MemberOption describes how a destination member is populated.
type MemberOption struct {
	kind    optionKind
	srcType reflect.Type
	resolve func(src reflect.Value) (reflect.Value, error)

	conv         converter
	sourceMember string
	sourceIndex  []int

	err error
}

// MapFrom populates the member from the result of fn.
func MapFrom[S, T any](fn func(S) T) MemberOption {
	return MemberOption{
		kind:    optionMapFrom,
		srcType: reflect.TypeFor[S](),
		resolve: func(src reflect.Value) (reflect.Value, error) {
			res := fn(src.Interface().(S))

			return reflect.ValueOf(&res).Elem(), nil
		},
	}
}

// MapFromErr is MapFrom for resolvers that may fail.
func MapFromErr[S, T any](fn func(S) (T, error)) MemberOption {
	return MemberOption{
		kind:    optionMapFrom,
		srcType: reflect.TypeFor[S](),
		resolve: func(src reflect.Value) (reflect.Value, error) {
			res, err := fn(src.Interface().(S))
			if err != nil {
				return reflect.Value{}, err
			}

			return reflect.ValueOf(&res).Elem(), nil
		},
	}
}

// Ignore leaves the member at its zero value.
func Ignore() MemberOption {
	return MemberOption{kind: optionIgnore}
}

// ConvertUsing populates the member by passing the named source member to a
// converter. conv is a function or a value with a Convert method of one of
// the shapes:
//
//   - func(src T) U
//   - func(src T) (U, bool)
//   - func(src T) (U, error)
//   - func(src T) (U, bool, error)
func ConvertUsing(conv any, sourceMember string) MemberOption {
	c, err := parseConverter(conv)

	return MemberOption{
		kind:         optionConvert,
		conv:         c,
		sourceMember: sourceMember,
		err:          err,
	}
}

// ValueOr dereferences p, falling back when p is nil.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}

	return *p
}

func (o *MemberOption) bind(src reflect.Type, field reflect.StructField) error {
	if o.err != nil {
		return fmt.Errorf("member %s: %w", field.Name, o.err)
	}

	switch o.kind {
	case optionMapFrom:
		if !src.AssignableTo(o.srcType) {
			return fmt.Errorf("member %s: %w: want %s, got %s", field.Name, ErrSourceType, src, o.srcType)
		}
	case optionConvert:
		sf, ok := findField(src, o.sourceMember)
		if !ok {
			return fmt.Errorf("member %s: %w: %s.%s", field.Name, ErrUnknownSource, src, o.sourceMember)
		}

		if !sf.Type.AssignableTo(o.conv.src) {
			return fmt.Errorf("member %s: %w: converter takes %s, source member %s is %s",
				field.Name, ErrSourceType, o.conv.src, sf.Name, sf.Type)
		}

		o.sourceIndex = sf.Index
	case optionIgnore:
	default:
		return fmt.Errorf("member %s: empty option", field.Name)
	}

	return nil
}
