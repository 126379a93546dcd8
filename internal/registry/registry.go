// Package registry indexes every mapping declaration of a compilation.
// A Registry is built once, before any rule runs, and is read-only after.
package registry

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"go.uber.org/zap"

	"mapcheck/internal/chain"
	"mapcheck/internal/common"
	"mapcheck/internal/entry"
	"mapcheck/internal/typedesc"
)

// Unit is one type-checked package of the compilation.
type Unit struct {
	Fset  *token.FileSet
	Files []*ast.File
	Info  *types.Info
	Pkg   *types.Package
	// ReadFile returns the source of a file of the unit.
	ReadFile func(filename string) ([]byte, error)
}

// Declaration is a mapping from Source to Destination, declared by a
// CreateMap call or synthesized from a ReverseMap call.
type Declaration struct {
	ID          int // discovery index
	Source      types.Type
	Destination types.Type
	Key         string

	Pos      token.Pos
	Position token.Position
	Reverse  bool

	Chain   *chain.Chain
	Segment int
	// Anchor is the CreateMap call, or the ReverseMap call of a reverse
	// declaration.
	Anchor       *ast.CallExpr
	DepthLimited bool

	Unit *Unit
}

// String returns the type pair of the declaration.
func (d *Declaration) String() string {
	return typedesc.DisplayName(d.Source) + " -> " + typedesc.DisplayName(d.Destination)
}

// Fact is a declaration exported by an already analyzed package.
type Fact struct {
	Key          string
	Pair         string
	Position     string
	DepthLimited bool
}

// Options configures Build.
type Options struct {
	Resolver entry.Resolver
	// External are declarations of packages outside the compilation.
	External []Fact
	Logger   *zap.Logger
}

// Registry is the set of declarations of a compilation.
type Registry struct {
	decls    []*Declaration
	groups   map[string][]*Declaration
	external map[string]Fact
}

// Build scans every file of every unit in a single pass. Declarations whose
// types cannot be resolved, or that are open generics, are skipped.
func Build(ctx context.Context, units []*Unit, opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Registry{
		groups:   map[string][]*Declaration{},
		external: map[string]Fact{},
	}

	for _, unit := range units {
		for _, file := range unit.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			chains, err := chain.Discover(ctx, unit.Info, opts.Resolver, []*ast.File{file})
			if err != nil {
				return nil, err
			}

			for _, c := range chains {
				r.collect(unit, c, log)
			}
		}
	}

	sort.SliceStable(r.decls, func(i, j int) bool {
		a, b := r.decls[i].Position, r.decls[j].Position
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}

		return a.Offset < b.Offset
	})

	for i, d := range r.decls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d.ID = i
		r.groups[d.Key] = append(r.groups[d.Key], d)
	}

	for _, fact := range opts.External {
		if _, local := r.groups[fact.Key]; !local {
			r.external[fact.Key] = fact
		}
	}

	log.Debug("registry built",
		zap.Int("declarations", len(r.decls)),
		zap.Int("pairs", len(r.groups)),
		zap.Int("external", len(r.external)))

	return r, nil
}

func (r *Registry) collect(unit *Unit, c *chain.Chain, log *zap.Logger) {
	root := c.Root().Call

	args := entry.TypeArgs(unit.Info, root)
	if len(args) != 2 || !resolved(args[0]) || !resolved(args[1]) {
		log.Debug("skipping unresolved declaration",
			zap.String("position", unit.Fset.Position(root.Pos()).String()))

		return
	}

	src, dst := args[0], args[1]
	for segment := range c.Segments() {
		anchor := c.Steps[c.Anchor(segment)].Call
		pos := anchor.Pos()
		if segment > 0 {
			// point at the ReverseMap selector rather than the chain start
			if sel, ok := ast.Unparen(anchor.Fun).(*ast.SelectorExpr); ok {
				pos = sel.Sel.Pos()
			}
		}

		r.decls = append(r.decls, &Declaration{
			Source:       src,
			Destination:  dst,
			Key:          typedesc.PairKey(src, dst),
			Pos:          pos,
			Position:     unit.Fset.Position(pos),
			Reverse:      segment%2 == 1,
			Chain:        c,
			Segment:      segment,
			Anchor:       anchor,
			DepthLimited: c.DepthLimited(segment),
			Unit:         unit,
		})

		src, dst = dst, src
	}
}

// Declarations returns every declaration in discovery order.
func (r *Registry) Declarations() []*Declaration {
	return r.decls
}

// Canonical returns the first declaration of every pair, in discovery order.
func (r *Registry) Canonical() []*Declaration {
	var res []*Declaration
	for _, d := range r.decls {
		if r.groups[d.Key][0] == d {
			res = append(res, d)
		}
	}

	return res
}

// HasMapping reports whether a mapping from src to dst is declared anywhere
// in the compilation or in an imported package.
func (r *Registry) HasMapping(src, dst types.Type) bool {
	key := typedesc.PairKey(src, dst)
	if _, ok := r.groups[key]; ok {
		return true
	}

	_, ok := r.external[key]

	return ok
}

// Lookup returns the canonical declaration of a pair.
func (r *Registry) Lookup(src, dst types.Type) (*Declaration, bool) {
	return r.LookupKey(typedesc.PairKey(src, dst))
}

// LookupKey is Lookup by pair key.
func (r *Registry) LookupKey(key string) (*Declaration, bool) {
	return common.First(r.groups[key])
}

// DuplicateOf returns the canonical declaration d duplicates. The canonical
// declaration of a pair is the first one by file path, then position.
func (r *Registry) DuplicateOf(d *Declaration) (*Declaration, bool) {
	group := r.groups[d.Key]
	if !common.IsMultiple(group) || group[0] == d {
		return nil, false
	}

	return group[0], true
}

// DuplicatesOf returns every declaration of the pair after the canonical one.
func (r *Registry) DuplicatesOf(src, dst types.Type) []*Declaration {
	group := r.groups[typedesc.PairKey(src, dst)]
	if !common.IsMultiple(group) {
		return nil
	}

	return group[1:]
}

// Facts returns the declarations of pkg, and every external declaration,
// for export to dependent packages.
func (r *Registry) Facts(pkg *types.Package) []Fact {
	var res []Fact

	seen := map[string]bool{}
	for _, d := range r.Canonical() {
		if d.Unit.Pkg != pkg {
			continue
		}

		seen[d.Key] = true
		res = append(res, Fact{
			Key:          d.Key,
			Pair:         d.String(),
			Position:     d.Position.String(),
			DepthLimited: d.DepthLimited,
		})
	}

	keys := make([]string, 0, len(r.external))
	for key := range r.external {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if !seen[key] {
			res = append(res, r.external[key])
		}
	}

	return res
}

// String summarizes the registry.
func (r *Registry) String() string {
	return fmt.Sprintf("registry{declarations: %d, pairs: %d, external: %d}", len(r.decls), len(r.groups), len(r.external))
}

func resolved(t types.Type) bool {
	invalid := false

	var walk func(t types.Type, depth int)
	walk = func(t types.Type, depth int) {
		if invalid || depth > 16 {
			return
		}

		switch t := types.Unalias(t).(type) {
		case *types.TypeParam:
			invalid = true
		case *types.Basic:
			invalid = t.Kind() == types.Invalid
		case *types.Pointer:
			walk(t.Elem(), depth+1)
		case *types.Slice:
			walk(t.Elem(), depth+1)
		case *types.Array:
			walk(t.Elem(), depth+1)
		case *types.Chan:
			walk(t.Elem(), depth+1)
		case *types.Map:
			walk(t.Key(), depth+1)
			walk(t.Elem(), depth+1)
		case *types.Named:
			if targs := t.TypeArgs(); targs != nil {
				for i := range targs.Len() {
					walk(targs.At(i), depth+1)
				}
			}
		}
	}

	if t == nil {
		return false
	}

	walk(t, 0)

	return !invalid
}
