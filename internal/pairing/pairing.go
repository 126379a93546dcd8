// Package pairing correlates the members of a declaration's source and
// destination types.
package pairing

import (
	"go/types"
	"strings"

	"mapcheck/internal/chain"
	"mapcheck/internal/compat"
	"mapcheck/internal/typedesc"
)

// Pair is a destination member with the source member that populates it by
// convention, and the override that replaces the convention, if any.
type Pair struct {
	Destination typedesc.Member
	Source      *typedesc.Member
	Override    *chain.Override
	// Verdict is set when the member is populated by convention, that is
	// when Source is set and Override is not.
	Verdict compat.Verdict
}

// Name returns the destination member name.
func (p Pair) Name() string {
	return p.Destination.Name
}

// Conventional reports whether the member is populated by name matching.
func (p Pair) Conventional() bool {
	return p.Source != nil && p.Override == nil
}

// Correlation is the result of correlating two member lists.
type Correlation struct {
	Source      types.Type
	Destination types.Type

	Pairs []Pair
	// SourceMembers lists every source member.
	SourceMembers []typedesc.Member
	// UnmatchedSources lists source members without a destination member of
	// the same name.
	UnmatchedSources []typedesc.Member
}

// Correlate matches destination members to source members by name. An
// exact-case match wins over a case-insensitive one.
func Correlate(src, dst types.Type, overrides chain.Overrides) Correlation {
	c := Correlation{
		Source:        src,
		Destination:   dst,
		SourceMembers: typedesc.Members(src),
	}

	dstMembers := typedesc.Members(dst)

	for _, member := range dstMembers {
		pair := Pair{Destination: member}

		if sm, ok := typedesc.Find(c.SourceMembers, member.Name); ok {
			pair.Source = &sm
		}

		if ov, ok := overrides.Lookup(member.Name); ok {
			pair.Override = &ov
		}

		if pair.Conventional() {
			pair.Verdict = compat.ClassifyTypes(pair.Source.Type, member.Type)
		}

		c.Pairs = append(c.Pairs, pair)
	}

	for _, sm := range c.SourceMembers {
		matched := false
		for _, dm := range dstMembers {
			if strings.EqualFold(sm.Name, dm.Name) {
				matched = true

				break
			}
		}

		if !matched {
			c.UnmatchedSources = append(c.UnmatchedSources, sm)
		}
	}

	return c
}

// Lookup returns the pair of a destination member.
func (c Correlation) Lookup(member string) (Pair, bool) {
	for _, p := range c.Pairs {
		if p.Destination.Name == member {
			return p, true
		}
	}

	for _, p := range c.Pairs {
		if strings.EqualFold(p.Destination.Name, member) {
			return p, true
		}
	}

	return Pair{}, false
}

// SourceMember returns a source member by name, case-insensitively.
func (c Correlation) SourceMember(name string) (typedesc.Member, bool) {
	return typedesc.Find(c.SourceMembers, name)
}
