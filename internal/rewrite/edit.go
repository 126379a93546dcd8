// Package rewrite turns findings into source edits. Every candidate is a set
// of text edits anchored at nodes of the original file, so candidates for
// different findings can be applied together in any order.
package rewrite

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"go/token"
	"slices"
)

// ErrOverlap is returned by Apply when two edits touch the same text.
var ErrOverlap = errors.New("overlapping edits")

// TextEdit replaces the text between Pos and End. Pos == End inserts.
type TextEdit struct {
	Pos     token.Pos
	End     token.Pos
	NewText string
}

// CandidateEdit is one alternative fix for a finding.
type CandidateEdit struct {
	Title string
	Edits []TextEdit
}

// ByFile groups edits by the name of the file they apply to.
func ByFile(fset *token.FileSet, edits []TextEdit) map[string][]TextEdit {
	res := map[string][]TextEdit{}
	for _, e := range edits {
		if f := fset.File(e.Pos); f != nil {
			res[f.Name()] = append(res[f.Name()], e)
		}
	}

	return res
}

type span struct {
	start, end int
	text       string
}

// Apply applies the edits of one file to its source. Identical edits are
// applied once; insertions at the same point are applied in the given
// order.
func Apply(file *token.File, src []byte, edits []TextEdit) ([]byte, error) {
	spans := make([]span, 0, len(edits))

	for _, e := range edits {
		if !inFile(file, e.Pos) || !inFile(file, e.End) || e.End < e.Pos {
			return nil, fmt.Errorf("edit %d-%d is outside %s", e.Pos, e.End, file.Name())
		}

		s := span{start: file.Offset(e.Pos), end: file.Offset(e.End), text: e.NewText}
		if s.end > len(src) {
			return nil, fmt.Errorf("edit %d-%d is beyond the end of %s", s.start, s.end, file.Name())
		}

		if !slices.Contains(spans, s) {
			spans = append(spans, s)
		}
	}

	slices.SortStableFunc(spans, func(a, b span) int {
		return cmp.Or(cmp.Compare(a.start, b.start), cmp.Compare(a.end, b.end))
	})

	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return nil, fmt.Errorf("%w: %d-%d and %d-%d in %s", ErrOverlap,
				spans[i-1].start, spans[i-1].end, spans[i].start, spans[i].end, file.Name())
		}
	}

	var (
		out  bytes.Buffer
		last int
	)

	for _, s := range spans {
		out.Write(src[last:s.start])
		out.WriteString(s.text)
		last = s.end
	}

	out.Write(src[last:])

	return out.Bytes(), nil
}

func inFile(file *token.File, pos token.Pos) bool {
	return pos.IsValid() && int(pos) >= file.Base() && int(pos) <= file.Base()+file.Size()
}
