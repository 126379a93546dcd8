package engine

import (
	"errors"
	"fmt"
	"go/token"
	"maps"
	"slices"

	"mapcheck/internal/common"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/rewrite"
)

// FixSet is the outcome of FixAll.
type FixSet struct {
	// Files maps file names to their rewritten sources.
	Files map[string][]byte
	// Applied counts the findings whose first candidate was applied,
	// Skipped those whose candidate overlapped an applied one.
	Applied int
	Skipped int
}

type fixFile struct {
	tok   *token.File
	src   []byte
	edits []rewrite.TextEdit
}

// FixAll applies the first candidate of every finding at or above
// minSeverity, in finding order.
func (r *Result) FixAll(minSeverity diagnostic.Severity) (*FixSet, error) {
	var (
		set   = &FixSet{Files: map[string][]byte{}}
		files = map[string]*fixFile{}
		decls = r.Registry.Declarations()
	)

	for _, f := range r.Findings {
		if f.Severity < minSeverity {
			continue
		}

		cands := r.Fixes(f)
		if common.IsEmpty(cands) {
			continue
		}

		unit := decls[f.Decl].Unit
		trial := map[string][]rewrite.TextEdit{}
		overlap := false

		for name, edits := range rewrite.ByFile(unit.Fset, cands[0].Edits) {
			ff, ok := files[name]
			if !ok {
				src, err := unit.ReadFile(name)
				if err != nil {
					return nil, fmt.Errorf("read %s: %w", name, err)
				}

				ff = &fixFile{tok: unit.Fset.File(edits[0].Pos), src: src}
				files[name] = ff
			}

			merged := append(slices.Clone(ff.edits), edits...)
			if _, err := rewrite.Apply(ff.tok, ff.src, merged); err != nil {
				if errors.Is(err, rewrite.ErrOverlap) {
					overlap = true

					break
				}

				return nil, err
			}

			trial[name] = merged
		}

		if overlap {
			set.Skipped++

			continue
		}

		for name, merged := range trial {
			files[name].edits = merged
		}

		set.Applied++
	}

	for _, name := range slices.Sorted(maps.Keys(files)) {
		ff := files[name]
		if len(ff.edits) == 0 {
			continue
		}

		out, err := rewrite.Apply(ff.tok, ff.src, ff.edits)
		if err != nil {
			return nil, err
		}

		set.Files[name] = out
	}

	return set, nil
}
