package match

import (
	"cmp"
	"go/types"
	"slices"

	"mapcheck/internal/compat"
	"mapcheck/internal/typedesc"
)

// Candidate is a source member that may populate a destination member.
type Candidate struct {
	Source typedesc.Member

	NameScore float64 // 0..1
	Verdict   compat.Verdict
	// Score combines NameScore and the verdict; higher is better.
	Score float64
}

// Weights of the combined score.
const (
	nameWeight = 0.6
	typeWeight = 0.4
)

// MinScore is the combined score a candidate needs to be suggested.
const MinScore = 0.6

// Rank scores every source member against a destination member and returns
// them best first. Ties are broken by name.
func Rank(name string, typ types.Type, sources []typedesc.Member) []Candidate {
	res := make([]Candidate, 0, len(sources))

	for _, src := range sources {
		c := Candidate{
			Source:    src,
			NameScore: Similarity(src.Name, name),
			Verdict:   compat.ClassifyTypes(src.Type, typ),
		}

		c.Score = c.NameScore*nameWeight + typeScore(c.Verdict)*typeWeight
		res = append(res, c)
	}

	slices.SortStableFunc(res, func(a, b Candidate) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Source.Name, b.Source.Name))
	})

	return res
}

// Best returns the best candidate when it reaches MinScore and its value
// can be copied without a conversion step the mapper does not perform.
func Best(name string, typ types.Type, sources []typedesc.Member) (Candidate, bool) {
	ranked := Rank(name, typ, sources)
	if len(ranked) == 0 {
		return Candidate{}, false
	}

	best := ranked[0]
	if best.Score < MinScore || typeScore(best.Verdict) == 0 {
		return Candidate{}, false
	}

	// a tie is ambiguous
	if len(ranked) > 1 && ranked[1].Score == best.Score {
		return Candidate{}, false
	}

	return best, true
}

func typeScore(v compat.Verdict) float64 {
	switch v.Kind {
	case compat.ExactMatch:
		return 1
	case compat.NumericConversion:
		if v.Widening {
			return 0.8
		}

		return 0.5
	case compat.NullableMismatch, compat.RequiresNestedMapping:
		return 0.4
	default:
		return 0
	}
}
