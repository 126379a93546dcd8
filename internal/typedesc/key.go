package typedesc

import (
	"go/types"
	"strconv"
	"strings"
)

// Key renders a canonical identity string for t. Two types have equal keys
// exactly when they are identical; package-level named types are identified
// by package path and name, function-local ones additionally by their
// declaration position.
func Key(t types.Type) string {
	var b strings.Builder
	writeKey(&b, t)

	return b.String()
}

// PairKey renders the identity of a (source, destination) type pair.
func PairKey(src, dst types.Type) string {
	return Key(src) + " -> " + Key(dst)
}

func writeKey(b *strings.Builder, t types.Type) {
	switch t := types.Unalias(t).(type) {
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil {
			b.WriteString(obj.Pkg().Path())
			b.WriteByte('.')
		}

		b.WriteString(obj.Name())

		if obj.Pkg() != nil && obj.Parent() != obj.Pkg().Scope() {
			b.WriteByte('@')
			b.WriteString(strconv.Itoa(int(obj.Pos())))
		}

		if targs := t.TypeArgs(); targs != nil && targs.Len() > 0 {
			b.WriteByte('[')
			for i := range targs.Len() {
				if i > 0 {
					b.WriteByte(',')
				}

				writeKey(b, targs.At(i))
			}
			b.WriteByte(']')
		}
	case *types.Pointer:
		b.WriteByte('*')
		writeKey(b, t.Elem())
	case *types.Slice:
		b.WriteString("[]")
		writeKey(b, t.Elem())
	case *types.Array:
		b.WriteByte('[')
		b.WriteString(strconv.FormatInt(t.Len(), 10))
		b.WriteByte(']')
		writeKey(b, t.Elem())
	case *types.Map:
		b.WriteString("map[")
		writeKey(b, t.Key())
		b.WriteByte(']')
		writeKey(b, t.Elem())
	case *types.Chan:
		switch t.Dir() {
		case types.SendRecv:
			b.WriteString("chan ")
		case types.SendOnly:
			b.WriteString("chan<- ")
		case types.RecvOnly:
			b.WriteString("<-chan ")
		}

		writeKey(b, t.Elem())
	default:
		b.WriteString(types.TypeString(t, func(p *types.Package) string { return p.Path() }))
	}
}
