// Package analyzer exposes the mapping checks as a go/analysis pass.
//
// Each package is one compilation. Declarations of imported packages reach
// dependent packages as facts, so a nested mapping declared in a dependency
// satisfies a declaration of the importing package.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/tools/go/analysis"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/engine"
	"mapcheck/internal/registry"
	"mapcheck/internal/rewrite"
)

const doc = `check mapping configurations of the automap package

The mapcheck analyzer inspects CreateMap declarations and reports type
mismatches between conventionally mapped members, missing nested mappings,
recursive mappings without a depth limit, unmapped members, duplicate
declarations, redundant overrides, expensive work inside member overrides
and invalid converters. Most findings carry suggested fixes.`

// Declarations is the fact exported for a package: its mapping
// declarations and those it re-exports from its dependencies.
type Declarations struct {
	List []registry.Fact
}

func (*Declarations) AFact() {}

func (d *Declarations) String() string {
	pairs := make([]string, 0, len(d.List))
	for _, f := range d.List {
		pairs = append(pairs, f.Pair)
	}

	return "mappings(" + strings.Join(pairs, ", ") + ")"
}

// Analyzer reports mapping configuration problems.
var Analyzer = New(engine.DefaultConfig())

// New returns an analyzer running with cfg. The configuration can be
// changed through the analyzer flags.
func New(cfg engine.Config) *analysis.Analyzer {
	f := &flags{
		cfg:      cfg,
		severity: diagnostic.SeverityHint,
	}

	a := &analysis.Analyzer{
		Name:      "mapcheck",
		Doc:       doc,
		Run:       f.run,
		FactTypes: []analysis.Fact{new(Declarations)},
	}

	a.Flags.StringVar(&f.cfg.APIPackage, "api", cfg.APIPackage, "import path of the mapping configuration package")
	a.Flags.IntVar(&f.cfg.MaxDepth, "max-depth", cfg.MaxDepth, "depth suggested for recursive mappings")
	a.Flags.TextVar(&f.severity, "severity", f.severity, "minimum severity reported: hint, info, warning or error")
	a.Flags.Func("disable", "comma-separated rules not to run", func(s string) error {
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				f.cfg.Disabled = append(f.cfg.Disabled, name)
			}
		}

		return nil
	})

	return a
}

type flags struct {
	cfg      engine.Config
	severity diagnostic.Severity
}

func (f *flags) run(pass *analysis.Pass) (any, error) {
	cfg := f.cfg
	// one pass is one package; rules already run per declaration
	cfg.Parallelism = 1

	var external []registry.Fact
	for _, pf := range pass.AllPackageFacts() {
		if d, ok := pf.Fact.(*Declarations); ok && pf.Package != pass.Pkg {
			external = append(external, d.List...)
		}
	}

	unit := &registry.Unit{
		Fset:     pass.Fset,
		Files:    pass.Files,
		Info:     pass.TypesInfo,
		Pkg:      pass.Pkg,
		ReadFile: pass.ReadFile,
	}

	res, err := engine.New(cfg).Run(context.Background(), []*registry.Unit{unit}, external)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pass.Pkg.Path(), err)
	}

	if facts := res.Registry.Facts(pass.Pkg); len(facts) > 0 {
		pass.ExportPackageFact(&Declarations{List: facts})
	}

	for _, fd := range res.Findings {
		if fd.Severity < f.severity {
			continue
		}

		pass.Report(Diagnostic(fd, res.Fixes(fd)))
	}

	return nil, nil
}

// Diagnostic converts a finding and its candidate edits.
func Diagnostic(f diagnostic.Finding, fixes []rewrite.CandidateEdit) analysis.Diagnostic {
	d := analysis.Diagnostic{
		Pos:      f.Pos,
		Category: f.Code,
		Message:  f.Severity.String() + ": " + f.Message,
	}

	for _, c := range fixes {
		fix := analysis.SuggestedFix{Message: c.Title}
		for _, e := range c.Edits {
			fix.TextEdits = append(fix.TextEdits, analysis.TextEdit{
				Pos:     e.Pos,
				End:     e.End,
				NewText: []byte(e.NewText),
			})
		}

		d.SuggestedFixes = append(d.SuggestedFixes, fix)
	}

	return d
}
