package rules

import (
	"context"

	"mapcheck/internal/compat"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/typedesc"
)

// NestedMapping reports struct-typed members whose type pair has no
// declaration in the compilation or its dependencies. Members of unexported
// struct types are checked like any other.
type NestedMapping struct{}

func (NestedMapping) Name() string { return "nested-mapping" }

func (NestedMapping) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding
	for _, p := range c.conventional(compat.RequiresNestedMapping) {
		src, dst := p.Verdict.NestedSource, p.Verdict.NestedDestination
		if src == nil || dst == nil || c.Registry.HasMapping(src, dst) {
			continue
		}

		srcName, dstName := typedesc.DisplayName(src), typedesc.DisplayName(dst)
		f := c.newFinding(diagnostic.CodeNestedMappingMissing, c.Decl.Pos, p.Name(), p.Name(), srcName, dstName).
			With(diagnostic.PropVerdict, p.Verdict.Kind.String()).
			With(diagnostic.PropSourceMember, p.Source.Name).
			With(diagnostic.PropNestedSource, srcName).
			With(diagnostic.PropNestedDest, dstName)

		res = append(res, f)
	}

	return res
}

// RecursiveMapping reports the cycle anchored at the declaration.
type RecursiveMapping struct{}

func (RecursiveMapping) Name() string { return "recursive-mapping" }

func (RecursiveMapping) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	cyc, ok := c.Cycles.For(c.Decl)
	if !ok {
		return nil
	}

	f := c.newFinding(diagnostic.CodeRecursiveMapping, c.Decl.Pos, cyc.Member, c.Decl.String(), cyc.String()).
		With(diagnostic.PropCycle, cyc.String())

	return []diagnostic.Finding{f}
}
