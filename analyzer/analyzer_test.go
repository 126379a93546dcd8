package analyzer_test

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"

	"mapcheck/analyzer"
	"mapcheck/internal/engine"
	"mapcheck/internal/rewrite"
	"mapcheck/internal/testutil"
)

type outcome struct {
	diagnostics []analysis.Diagnostic
	facts       []analysis.PackageFact
}

func (o outcome) categories() []string {
	res := make([]string, 0, len(o.diagnostics))
	for _, d := range o.diagnostics {
		res = append(res, d.Category)
	}

	return res
}

// runPass runs a on pkg the way a driver would, with deps as the facts of
// the already analyzed dependencies.
func runPass(t *testing.T, a *analysis.Analyzer, pkg *testutil.Package, deps ...analysis.PackageFact) outcome {
	t.Helper()

	var out outcome

	pass := &analysis.Pass{
		Analyzer:   a,
		Fset:       pkg.Fset,
		Files:      pkg.Files,
		Pkg:        pkg.Pkg,
		TypesInfo:  pkg.Info,
		TypesSizes: types.SizesFor("gc", "amd64"),
		ResultOf:   map[*analysis.Analyzer]any{},
		ReadFile:   pkg.ReadFile,
		Report: func(d analysis.Diagnostic) {
			out.diagnostics = append(out.diagnostics, d)
		},
		ExportPackageFact: func(f analysis.Fact) {
			out.facts = append(out.facts, analysis.PackageFact{Package: pkg.Pkg, Fact: f})
		},
		AllPackageFacts: func() []analysis.PackageFact {
			return deps
		},
	}

	_, err := a.Run(pass)
	require.NoError(t, err)

	return out
}

const ageSrc = `package app

import "mapcheck/automap"

type Source struct {
	Name string
	Age  string
}

type Destination struct {
	Name string
	Age  int
}

func configure(p *automap.Profile) {
	automap.CreateMap[Source, Destination](p)
}
`

func TestSuggestedFixes(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, ageSrc)
	out := runPass(t, analyzer.New(engine.DefaultConfig()), pkg)

	require.Len(t, out.diagnostics, 1)

	d := out.diagnostics[0]
	assert.Equal(t, "type_mismatch", d.Category)
	assert.Equal(t, "mapping.go:16:2", relative(pkg, d))
	assert.Contains(t, d.Message, "error: ")

	require.Len(t, d.SuggestedFixes, 2)
	assert.Equal(t, "Map Age with a conversion", d.SuggestedFixes[0].Message)

	var edits []rewrite.TextEdit
	for _, e := range d.SuggestedFixes[1].TextEdits {
		edits = append(edits, rewrite.TextEdit{Pos: e.Pos, End: e.End, NewText: string(e.NewText)})
	}

	name := pkg.Fset.File(d.Pos).Name()

	fixed, err := rewrite.Apply(pkg.Fset.File(d.Pos), pkg.Sources[name], edits)
	require.NoError(t, err)
	assert.Contains(t, string(fixed), `automap.CreateMap[Source, Destination](p).ForMember("Age", automap.Ignore())`)

	assert.Len(t, out.facts, 1)
	assert.Equal(t, "mappings(app.Source -> app.Destination)", out.facts[0].Fact.(*analyzer.Declarations).String())
}

func relative(pkg *testutil.Package, d analysis.Diagnostic) string {
	pos := pkg.Fset.Position(d.Pos)
	pos.Filename = pos.Filename[len(testutil.DefaultPath)+1:]
	pos.Offset = 0

	return pos.String()
}

func TestFactsAcrossPackages(t *testing.T) {
	t.Parallel()

	lib := `package lib

import "mapcheck/automap"

type Address struct{ City string }
type AddressDTO struct{ City string }

func Configure(p *automap.Profile) {
	automap.CreateMap[Address, AddressDTO](p)
}
`

	app := `package app

import (
	"mapcheck/automap"

	"example.com/lib"
)

type Order struct{ Ship lib.Address }
type OrderDTO struct{ Ship lib.AddressDTO }

func configure(p *automap.Profile) {
	lib.Configure(p)
	automap.CreateMap[Order, OrderDTO](p)
}
`

	loader := testutil.NewLoader().
		Add("example.com/lib", map[string]string{"lib.go": lib}).
		Add(testutil.DefaultPath, map[string]string{"app.go": app})

	appPkg := loader.MustLoad(t, testutil.DefaultPath)
	libPkg := loader.MustLoad(t, "example.com/lib")

	a := analyzer.New(engine.DefaultConfig())

	libOut := runPass(t, a, libPkg)
	assert.Empty(t, libOut.diagnostics)
	require.Len(t, libOut.facts, 1)

	assert.Equal(t, []string{"nested_mapping_missing"}, runPass(t, a, appPkg).categories())

	appOut := runPass(t, a, appPkg, libOut.facts...)
	assert.Empty(t, appOut.diagnostics)

	// the app fact re-exports the lib declaration
	require.Len(t, appOut.facts, 1)
	assert.Len(t, appOut.facts[0].Fact.(*analyzer.Declarations).List, 2)
}

func TestFlags(t *testing.T) {
	t.Parallel()

	src := `package app

import "mapcheck/automap"

type Source struct {
	Age    string
	Secret string
}

type Destination struct {
	Age int
}

func configure(p *automap.Profile) {
	automap.CreateMap[Source, Destination](p)
}
`

	tests := []struct {
		name  string
		flags map[string]string
		want  []string
	}{
		{name: "defaults", want: []string{"type_mismatch", "unmapped_source_member"}},
		{name: "severity", flags: map[string]string{"severity": "warning"}, want: []string{"type_mismatch"}},
		{name: "disable", flags: map[string]string{"disable": "type-mismatch, nullable-mismatch"}, want: []string{"unmapped_source_member"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := analyzer.New(engine.DefaultConfig())
			for name, value := range tt.flags {
				require.NoError(t, a.Flags.Set(name, value))
			}

			assert.Equal(t, tt.want, runPass(t, a, testutil.Load(t, src)).categories())
		})
	}

	t.Run("invalid severity", func(t *testing.T) {
		t.Parallel()

		a := analyzer.New(engine.DefaultConfig())
		require.Error(t, a.Flags.Set("severity", "fatal"))
	})
}

func TestAnalyzerIsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, analysis.Validate([]*analysis.Analyzer{analyzer.Analyzer}))
}
