package typedesc

import (
	"go/token"
	"go/types"
	"strings"
)

// Member is a settable field of a struct type, including fields promoted
// from embedded structs.
type Member struct {
	Name  string
	Type  types.Type
	Pos   token.Pos
	Depth int   // embedding depth, 0 for direct fields
	Index []int // field index path, as accepted by reflect.Value.FieldByIndex
}

// Members lists the exported fields of a struct type (or a pointer to one)
// in declaration order. A promoted field is shadowed by a shallower field of
// the same name.
func Members(t types.Type) []Member {
	st, ok := structOf(t)
	if !ok {
		return nil
	}

	var (
		res   []Member
		depth = map[string]int{}
	)

	var walk func(st *types.Struct, level int, index []int, seen map[*types.Struct]bool)
	walk = func(st *types.Struct, level int, index []int, seen map[*types.Struct]bool) {
		if seen[st] {
			return
		}

		seen[st] = true
		defer delete(seen, st)

		var embedded []int
		for i := range st.NumFields() {
			field := st.Field(i)
			path := append(append([]int(nil), index...), i)

			if field.Embedded() {
				embedded = append(embedded, i)
			}

			if !field.Exported() {
				continue
			}

			if prev, ok := depth[field.Name()]; ok && prev <= level {
				continue
			}

			depth[field.Name()] = level
			res = append(res, Member{
				Name:  field.Name(),
				Type:  field.Type(),
				Pos:   field.Pos(),
				Depth: level,
				Index: path,
			})
		}

		for _, i := range embedded {
			field := st.Field(i)
			if _, isPtr := types.Unalias(field.Type()).(*types.Pointer); isPtr {
				continue
			}

			if inner, ok := structOf(field.Type()); ok {
				walk(inner, level+1, append(append([]int(nil), index...), i), seen)
			}
		}
	}

	walk(st, 0, nil, map[*types.Struct]bool{})

	// drop shadowed promotions recorded before a shallower field was seen
	filtered := res[:0]
	for _, m := range res {
		if depth[m.Name] == m.Depth {
			filtered = append(filtered, m)
		}
	}

	return filtered
}

// Find returns the member with the given name. An exact-case match wins over
// a case-insensitive one.
func Find(members []Member, name string) (Member, bool) {
	var (
		fold  Member
		found bool
	)

	for _, m := range members {
		if m.Name == name {
			return m, true
		}

		if !found && strings.EqualFold(m.Name, name) {
			fold, found = m, true
		}
	}

	return fold, found
}

// Struct reports whether t (or its pointee) is a struct type.
func Struct(t types.Type) bool {
	_, ok := structOf(t)

	return ok
}

func structOf(t types.Type) (*types.Struct, bool) {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
	}

	st, ok := t.Underlying().(*types.Struct)

	return st, ok
}
