package rules

import (
	"context"
	"go/types"

	"mapcheck/internal/chain"
	"mapcheck/internal/diagnostic"
)

// RedundantOverride reports MapFrom overrides that read the source member of
// the same name and type. Names compare case-sensitively and types by
// identity: an override that converts is never redundant.
type RedundantOverride struct{}

func (RedundantOverride) Name() string { return "redundant-override" }

func (RedundantOverride) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding

	for _, ov := range c.Overrides.All() {
		if ov.Kind != chain.OverrideExplicitSource || ov.SourceMember != ov.Member {
			continue
		}

		p, ok := c.Correlation.Lookup(ov.Member)
		if !ok || p.Destination.Name != ov.Member {
			continue
		}

		var src types.Type
		for _, sm := range c.Correlation.SourceMembers {
			if sm.Name == ov.SourceMember {
				src = sm.Type

				break
			}
		}

		if src == nil || !types.Identical(src, p.Destination.Type) {
			continue
		}

		f := c.newFinding(diagnostic.CodeRedundantOverride, overridePos(ov), ov.Member, ov.Member).
			With(diagnostic.PropOverride, ov.SourceExpr)
		res = append(res, f)
	}

	return res
}
