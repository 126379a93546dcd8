package rewrite_test

import (
	"context"
	"go/token"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/cycle"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/entry"
	"mapcheck/internal/registry"
	"mapcheck/internal/rewrite"
	"mapcheck/internal/rules"
	"mapcheck/internal/testutil"
)

type fixture struct {
	t        *testing.T
	pkg      *testutil.Package
	reg      *registry.Registry
	gen      *rewrite.Generator
	findings []diagnostic.Finding
}

func analyze(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	return analyzeWith(t, testutil.NewLoader().Add(testutil.DefaultPath, files))
}

// analyzeWith analyzes the default package of a loader that may hold other
// packages it imports.
func analyzeWith(t *testing.T, l *testutil.Loader) *fixture {
	t.Helper()

	ctx := context.Background()
	pkg := l.MustLoad(t, testutil.DefaultPath)

	res := entry.New("")
	reg, err := registry.Build(ctx, []*registry.Unit{pkg.Unit()}, registry.Options{Resolver: res})
	require.NoError(t, err)

	cycles, err := cycle.Detect(ctx, reg, res)
	require.NoError(t, err)

	var findings []diagnostic.Finding
	for _, d := range reg.Declarations() {
		c := rules.NewContext(d, reg, res, cycles, rules.DefaultConfig())
		for _, rule := range rules.Default() {
			findings = append(findings, rule.Analyze(ctx, c)...)
		}
	}

	diagnostic.Sort(findings)

	return &fixture{t: t, pkg: pkg, reg: reg, gen: rewrite.New(res, reg), findings: findings}
}

func analyzeSrc(t *testing.T, src string) *fixture {
	t.Helper()

	return analyze(t, map[string]string{"mapping.go": src})
}

// only returns the single finding of the analysis.
func (f *fixture) only(code, member string) diagnostic.Finding {
	f.t.Helper()

	require.Len(f.t, f.findings, 1, spew.Sdump(f.findings))
	require.Equal(f.t, code, f.findings[0].Code)
	require.Equal(f.t, member, f.findings[0].Member)

	return f.findings[0]
}

func (f *fixture) candidates(fd diagnostic.Finding) []rewrite.CandidateEdit {
	return f.gen.Generate(fd, f.reg.Declarations()[fd.Decl])
}

func (f *fixture) candidate(fd diagnostic.Finding, title string) rewrite.CandidateEdit {
	f.t.Helper()

	for _, c := range f.candidates(fd) {
		if c.Title == title {
			return c
		}
	}

	require.FailNow(f.t, "no candidate", "%q in %v", title, titles(f.candidates(fd)))

	return rewrite.CandidateEdit{}
}

// apply applies edits and returns every file of the package by base name.
func (f *fixture) apply(edits ...rewrite.TextEdit) map[string]string {
	f.t.Helper()

	out := map[string]string{}
	for name, src := range f.pkg.Sources {
		out[strings.TrimPrefix(name, testutil.DefaultPath+"/")] = string(src)
	}

	for name, fileEdits := range rewrite.ByFile(f.pkg.Fset, edits) {
		tok := f.fileNamed(name)

		src, err := rewrite.Apply(tok, f.pkg.Sources[name], fileEdits)
		require.NoError(f.t, err)

		out[strings.TrimPrefix(name, testutil.DefaultPath+"/")] = string(src)
	}

	return out
}

func (f *fixture) fileNamed(name string) *token.File {
	for _, file := range f.pkg.Files {
		if tok := f.pkg.Fset.File(file.Pos()); tok.Name() == name {
			return tok
		}
	}

	require.FailNow(f.t, "unknown file", name)

	return nil
}

func titles(cands []rewrite.CandidateEdit) []string {
	res := make([]string, 0, len(cands))
	for _, c := range cands {
		res = append(res, c.Title)
	}

	return res
}

func codesOf(findings []diagnostic.Finding) []string {
	res := make([]string, 0, len(findings))
	for _, f := range findings {
		res = append(res, f.Code+":"+f.Member)
	}

	return res
}
