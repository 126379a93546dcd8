package automap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"mapcheck/primitive"
)

// Map maps src into a new value of type D.
func Map[D any](p *Profile, src any) (D, error) {
	var dst D

	v, err := p.mapValue(reflect.ValueOf(src), reflect.TypeFor[D](), 0)
	if err != nil {
		return dst, err
	}

	reflect.ValueOf(&dst).Elem().Set(v)

	return dst, nil
}

func (p *Profile) mapValue(src reflect.Value, dstType reflect.Type, depth int) (reflect.Value, error) {
	if !src.IsValid() {
		return reflect.Zero(dstType), nil
	}

	srcType := src.Type()

	switch {
	case srcType.AssignableTo(dstType):
		return src, nil

	case srcType.Kind() == reflect.Pointer:
		if src.IsNil() {
			return reflect.Zero(dstType), nil
		}

		return p.mapValue(src.Elem(), dstType, depth)

	case dstType.Kind() == reflect.Pointer:
		inner, err := p.mapValue(src, dstType.Elem(), depth)
		if err != nil {
			return reflect.Value{}, err
		}

		out := reflect.New(dstType.Elem())
		out.Elem().Set(inner)

		return out, nil

	case convertible(srcType, dstType):
		return src.Convert(dstType), nil

	case isSequence(srcType) && isSequence(dstType):
		return p.mapSequence(src, dstType, depth)

	case srcType.Kind() == reflect.Map && dstType.Kind() == reflect.Map:
		return p.mapMap(src, dstType, depth)

	case srcType.Kind() == reflect.Struct && dstType.Kind() == reflect.Struct:
		return p.mapStruct(src, dstType, depth)
	}

	return reflect.Value{}, fmt.Errorf("%w: %s -> %s", ErrUnsupported, srcType, dstType)
}

func (p *Profile) mapSequence(src reflect.Value, dstType reflect.Type, depth int) (reflect.Value, error) {
	if src.Kind() == reflect.Slice && src.IsNil() {
		return reflect.Zero(dstType), nil
	}

	n := src.Len()

	var out reflect.Value
	if dstType.Kind() == reflect.Array {
		out = reflect.New(dstType).Elem()
		n = min(n, dstType.Len())
	} else {
		out = reflect.MakeSlice(dstType, n, n)
	}

	for i := range n {
		v, err := p.mapValue(src.Index(i), dstType.Elem(), depth)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}

		out.Index(i).Set(v)
	}

	return out, nil
}

func (p *Profile) mapMap(src reflect.Value, dstType reflect.Type, depth int) (reflect.Value, error) {
	if src.IsNil() {
		return reflect.Zero(dstType), nil
	}

	out := reflect.MakeMapWithSize(dstType, src.Len())

	iter := src.MapRange()
	for iter.Next() {
		key, err := p.mapValue(iter.Key(), dstType.Key(), depth)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
		}

		val, err := p.mapValue(iter.Value(), dstType.Elem(), depth)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%v]: %w", iter.Key(), err)
		}

		out.SetMapIndex(key, val)
	}

	return out, nil
}

func (p *Profile) mapStruct(src reflect.Value, dstType reflect.Type, depth int) (reflect.Value, error) {
	tm, ok := p.lookup(src.Type(), dstType)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s -> %s", ErrMissingMap, src.Type(), dstType)
	}

	if len(tm.errs) > 0 {
		return reflect.Value{}, fmt.Errorf("%s -> %s: %w", src.Type(), dstType, errors.Join(tm.errs...))
	}

	out := reflect.New(dstType).Elem()
	if tm.maxDepth > 0 && depth >= tm.maxDepth {
		return out, nil
	}

	for _, field := range reflect.VisibleFields(dstType) {
		if !field.IsExported() || field.Anonymous {
			continue
		}

		v, ok, err := p.resolveMember(tm, src, field, depth)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s.%s: %w", dstType, field.Name, err)
		}

		if !ok {
			continue
		}

		target, err := fieldByIndexAlloc(out, field.Index)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s.%s: %w", dstType, field.Name, err)
		}

		target.Set(v)
	}

	return out, nil
}

func (p *Profile) resolveMember(tm *typeMap, src reflect.Value, field reflect.StructField, depth int) (reflect.Value, bool, error) {
	opt, overridden := tm.members[field.Name]
	if !overridden {
		sf, ok := findField(src.Type(), field.Name)
		if !ok {
			return reflect.Value{}, false, nil
		}

		sv, err := src.FieldByIndexErr(sf.Index)
		if err != nil {
			return reflect.Value{}, false, nil //nolint:nilerr // nil embedded pointer: nothing to copy
		}

		v, err := p.mapValue(sv, field.Type, depth+1)

		return v, err == nil, err
	}

	switch opt.kind {
	case optionMapFrom:
		res, err := opt.resolve(src)
		if err != nil {
			return reflect.Value{}, false, err
		}

		v, err := p.mapValue(res, field.Type, depth+1)

		return v, err == nil, err

	case optionConvert:
		var in reflect.Value
		if sv, err := src.FieldByIndexErr(opt.sourceIndex); err == nil {
			in = sv
		}

		res, ok, err := opt.conv.call(in)
		if err != nil {
			return reflect.Value{}, false, fmt.Errorf("%w: %w", ErrConverterFailed, err)
		}

		if !ok {
			return reflect.Value{}, false, nil
		}

		v, err := p.mapValue(res, field.Type, depth+1)

		return v, err == nil, err
	}

	return reflect.Value{}, false, nil
}

// findField looks up an exported source field by name. An exact-case match
// wins over a case-insensitive one.
func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}

	if field, ok := t.FieldByName(name); ok && field.IsExported() {
		return field, true
	}

	for _, field := range reflect.VisibleFields(t) {
		if field.IsExported() && !field.Anonymous && strings.EqualFold(field.Name, name) {
			return field, true
		}
	}

	return reflect.StructField{}, false
}

func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("%w: unexported embedded pointer", ErrUnsupported)
				}

				v.Set(reflect.New(v.Type().Elem()))
			}

			v = v.Elem()
		}

		v = v.Field(x)
	}

	return v, nil
}

// convertible reports whether a plain Go conversion maps the value: numbers
// of any kind, or named types over the same basic kind. Library primitives
// such as time.Duration are never converted implicitly.
func convertible(src, dst reflect.Type) bool {
	srcKind, dstKind := primitive.FromReflectType(src), primitive.FromReflectType(dst)
	if srcKind == 0 || dstKind == 0 || srcKind.IsSpecial() || dstKind.IsSpecial() {
		return false
	}

	if isNumber(src.Kind()) && isNumber(dst.Kind()) {
		return true
	}

	return src.Kind() == dst.Kind()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isSequence(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}
