package rules

import (
	"context"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/typedesc"
)

// DuplicateMapping reports a declaration that repeats an earlier one for the
// same type pair. Only non-canonical declarations are reported.
type DuplicateMapping struct{}

func (DuplicateMapping) Name() string { return "duplicate-mapping" }

func (DuplicateMapping) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	canonical, ok := c.Registry.DuplicateOf(c.Decl)
	if !ok {
		return nil
	}

	f := c.newFinding(diagnostic.CodeDuplicateMapping, c.Decl.Pos, "", c.Decl.String(), canonical.Position.String()).
		With(diagnostic.PropCanonical, canonical.Position.String())

	if c.Decl.Reverse {
		f = f.With(diagnostic.PropReverseOf, typedesc.DisplayName(c.Decl.Destination)+" -> "+typedesc.DisplayName(c.Decl.Source))
	}

	return []diagnostic.Finding{f}
}
