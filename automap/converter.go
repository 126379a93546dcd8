package automap

import (
	"reflect"
)

var errorType = reflect.TypeFor[error]()

type converter struct {
	fn       reflect.Value
	src, dst reflect.Type
	hasBool  bool
	hasErr   bool
}

// parseConverter inspects a function, or a value with a Convert method, and
// returns a converter if it has a supported shape.
func parseConverter(conv any) (converter, error) {
	fnVal := reflect.ValueOf(conv)
	if !fnVal.IsValid() {
		return converter{}, ErrNotConverter
	}

	if fnVal.Kind() != reflect.Func {
		fnVal = fnVal.MethodByName("Convert")
		if !fnVal.IsValid() {
			return converter{}, ErrNotConverter
		}
	}

	fnType := fnVal.Type()
	if fnType.NumIn() != 1 || fnType.NumOut() == 0 || fnType.IsVariadic() {
		return converter{}, ErrNotConverter
	}

	src := fnType.In(0)
	if src.Kind() == reflect.Pointer && src.Elem().Kind() == reflect.Pointer {
		return converter{}, ErrDoublePointer
	}

	dst := fnType.Out(0)
	if dst.Kind() == reflect.Pointer && dst.Elem().Kind() == reflect.Pointer {
		return converter{}, ErrDoublePointer
	}

	c := converter{fn: fnVal, src: src, dst: dst}

	switch fnType.NumOut() {
	default:
		return converter{}, ErrNotConverter

	case 1:
		return c, nil

	case 2:
		last := fnType.Out(1)

		switch {
		default:
			return converter{}, ErrNotConverter
		case last.Kind() == reflect.Bool:
			c.hasBool = true
		case last == errorType:
			c.hasErr = true
		}

		return c, nil

	case 3:
		tbool, terr := fnType.Out(1), fnType.Out(2)
		if tbool.Kind() != reflect.Bool || terr != errorType {
			return converter{}, ErrNotConverter
		}

		c.hasBool = true
		c.hasErr = true

		return c, nil
	}
}

// call runs the converter. ok is false when the converter reports that the
// value has no representation.
func (c converter) call(in reflect.Value) (out reflect.Value, ok bool, err error) {
	arg := reflect.New(c.src).Elem()
	if in.IsValid() {
		arg.Set(in)
	}

	res := c.fn.Call([]reflect.Value{arg})
	out, ok = res[0], true

	if c.hasBool {
		ok = res[1].Bool()
	}

	if c.hasErr {
		if errVal := res[len(res)-1]; !errVal.IsNil() {
			return reflect.Value{}, false, errVal.Interface().(error)
		}
	}

	return out, ok, nil
}
