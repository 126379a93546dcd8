package rules

import (
	"context"
	"go/ast"
	"go/types"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/match"
	"mapcheck/internal/typedesc"
)

// MissingMember reports source members nothing reads, and destination
// members nothing populates.
type MissingMember struct{}

func (MissingMember) Name() string { return "missing-member" }

func (MissingMember) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var (
		res     []diagnostic.Finding
		read    = c.overrideReads()
		srcName = typedesc.DisplayName(c.Decl.Source)
		dstName = typedesc.DisplayName(c.Decl.Destination)
	)

	for _, sm := range c.Correlation.UnmatchedSources {
		if read[sm.Name] || c.Overrides.Reads(sm.Name) {
			continue
		}

		f := c.newFinding(diagnostic.CodeUnmappedSource, c.Decl.Pos, "", sm.Name, srcName).
			With(diagnostic.PropSourceMember, sm.Name).
			With(diagnostic.PropSourceType, typedesc.DisplayName(sm.Type))
		res = append(res, f)
	}

	for _, p := range c.Correlation.Pairs {
		if p.Source != nil || p.Override != nil {
			continue
		}

		f := c.newFinding(diagnostic.CodeUnmappedDestination, c.Decl.Pos, p.Name(), p.Name(), dstName).
			With(diagnostic.PropDestinationType, typedesc.DisplayName(p.Destination.Type))

		if best, ok := match.Best(p.Name(), p.Destination.Type, c.Correlation.UnmatchedSources); ok {
			f = f.With(diagnostic.PropCandidate, best.Source.Name)
		}

		res = append(res, f)
	}

	return res
}

// overrideReads collects the source members selected anywhere in the
// override expressions of the declaration.
func (c *Context) overrideReads() map[string]bool {
	read := map[string]bool{}
	info := c.Info()

	for _, ov := range c.Overrides.All() {
		if ov.Func == nil {
			continue
		}

		ast.Inspect(ov.Func, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			s, ok := info.Selections[sel]
			if !ok || s.Kind() != types.FieldVal {
				return true
			}

			recv := s.Recv()
			if p, ok := recv.Underlying().(*types.Pointer); ok {
				recv = p.Elem()
			}

			if types.Identical(recv, c.Decl.Source) {
				read[sel.Sel.Name] = true
			}

			return true
		})
	}

	return read
}
