// Package cycle finds recursive mapping declarations: a declaration whose
// conventional member mapping needs, directly or through other declarations,
// the declaration itself.
package cycle

import (
	"context"
	"strings"

	"mapcheck/internal/chain"
	"mapcheck/internal/common"
	"mapcheck/internal/compat"
	"mapcheck/internal/entry"
	"mapcheck/internal/pairing"
	"mapcheck/internal/registry"
	"mapcheck/internal/typedesc"
)

type color int

const (
	unvisited color = iota
	inProgress
	done
)

// Cycle is a recursion found in the declaration graph.
type Cycle struct {
	// Anchor is the declaration whose member mapping closes the cycle.
	Anchor *registry.Declaration
	// Member is the anchor's destination member that closes the cycle.
	Member string
	// Path lists the declarations of the cycle, starting at the one the
	// anchor re-enters and ending at the anchor.
	Path []*registry.Declaration
}

// Self reports whether the cycle is a direct self reference.
func (c Cycle) Self() bool {
	return common.IsSingle(c.Path)
}

// String renders the cycle as a chain of type pairs.
func (c Cycle) String() string {
	parts := make([]string, 0, len(c.Path)+1)
	for _, d := range c.Path {
		parts = append(parts, d.String())
	}

	parts = append(parts, c.Path[0].String())

	return strings.Join(parts, " => ")
}

// Report holds the cycles found, keyed by anchor declaration.
type Report struct {
	cycles map[int]Cycle
	order  []int
}

// For returns the cycle anchored at d.
func (r *Report) For(d *registry.Declaration) (Cycle, bool) {
	if r == nil {
		return Cycle{}, false
	}

	c, ok := r.cycles[d.ID]

	return c, ok
}

// Cycles returns every cycle in discovery order of its anchor.
func (r *Report) Cycles() []Cycle {
	res := make([]Cycle, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.cycles[id])
	}

	return res
}

type edge struct {
	to     *registry.Declaration
	member string
}

// Detect walks the canonical declarations of reg in discovery order. A
// declaration carrying a depth limit suppresses only the cycle anchored at
// itself.
func Detect(ctx context.Context, reg *registry.Registry, res entry.Resolver) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := reg.Canonical()

	edges := make(map[int][]edge, len(nodes))
	for _, d := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		edges[d.ID] = outgoing(reg, res, d)
	}

	r := &Report{cycles: map[int]Cycle{}}

	// direct self references need no traversal
	for _, d := range nodes {
		for _, e := range edges[d.ID] {
			if e.to == d {
				r.add(Cycle{Anchor: d, Member: e.member, Path: []*registry.Declaration{d}})

				break
			}
		}
	}

	state := make(map[int]color, len(nodes))

	var (
		stack []*registry.Declaration
		visit func(d *registry.Declaration) error
	)

	visit = func(d *registry.Declaration) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		state[d.ID] = inProgress
		stack = append(stack, d)

		for _, e := range edges[d.ID] {
			if e.to == d {
				continue
			}

			switch state[e.to.ID] {
			case unvisited:
				if err := visit(e.to); err != nil {
					return err
				}
			case inProgress:
				r.add(Cycle{Anchor: d, Member: e.member, Path: pathFrom(stack, e.to)})
			case done:
			}
		}

		stack = stack[:len(stack)-1]
		state[d.ID] = done

		return nil
	}

	for _, d := range nodes {
		if state[d.ID] != unvisited {
			continue
		}

		if err := visit(d); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Report) add(c Cycle) {
	if c.Anchor.DepthLimited {
		return
	}

	if _, exists := r.cycles[c.Anchor.ID]; exists {
		return
	}

	r.cycles[c.Anchor.ID] = c
	r.order = append(r.order, c.Anchor.ID)
}

// outgoing returns the declarations needed by the conventional members of d.
func outgoing(reg *registry.Registry, res entry.Resolver, d *registry.Declaration) []edge {
	var overrides chain.Overrides
	if d.Chain != nil {
		overrides = chain.Extract(d.Unit.Info, res, d.Chain, d.Segment)
	}

	var out []edge
	for _, pair := range pairing.Correlate(d.Source, d.Destination, overrides).Pairs {
		if !pair.Conventional() || pair.Verdict.Kind != compat.RequiresNestedMapping {
			continue
		}

		key := typedesc.PairKey(pair.Verdict.NestedSource, pair.Verdict.NestedDestination)
		if to, ok := reg.LookupKey(key); ok {
			out = append(out, edge{to: to, member: pair.Name()})
		}
	}

	return out
}

func pathFrom(stack []*registry.Declaration, from *registry.Declaration) []*registry.Declaration {
	for i, d := range stack {
		if d == from {
			return append([]*registry.Declaration(nil), stack[i:]...)
		}
	}

	return nil
}
