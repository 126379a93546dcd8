package rules

import (
	"context"

	"mapcheck/internal/compat"
	"mapcheck/internal/diagnostic"
)

// TypeMismatch reports conventional member pairs the mapper cannot convert.
// Verdicts owned by the other member rules are not reported here.
type TypeMismatch struct{}

func (TypeMismatch) Name() string { return "type-mismatch" }

func (TypeMismatch) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding
	for _, p := range c.conventional(compat.Incompatible) {
		res = append(res, c.pairFinding(diagnostic.CodeTypeMismatch, p))
	}

	return res
}

// NullableMismatch reports pairs where only one side is a pointer. A pointer
// source is an error, a pointer destination only informational.
type NullableMismatch struct{}

func (NullableMismatch) Name() string { return "nullable-mismatch" }

func (NullableMismatch) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding
	for _, p := range c.conventional(compat.NullableMismatch) {
		f := c.pairFinding(diagnostic.CodeNullableMismatch, p)
		if !p.Verdict.SourceNullable {
			f.Severity = diagnostic.SeverityInfo
		}

		res = append(res, f)
	}

	return res
}

// CollectionMismatch reports collection pairs of different families, and
// same-family collections with incompatible elements.
type CollectionMismatch struct{}

func (CollectionMismatch) Name() string { return "collection-mismatch" }

func (CollectionMismatch) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding
	for _, p := range c.conventional(compat.CollectionContainerMismatch, compat.CollectionElementMismatch) {
		code := diagnostic.CodeContainerMismatch
		if p.Verdict.Kind == compat.CollectionElementMismatch {
			code = diagnostic.CodeElementMismatch
		}

		res = append(res, c.pairFinding(code, p))
	}

	return res
}
