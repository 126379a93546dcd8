// Package testutil type-checks in-memory Go packages for tests. Imports of
// this module's packages (automap in particular) are served from their real
// sources, standard library imports from GOROOT sources.
package testutil

import (
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mapcheck/internal/registry"
)

// APIPath is the import path of the mapping configuration API.
const APIPath = "mapcheck/automap"

// modulePath prefixes the packages served from this repository's sources.
const modulePath = "mapcheck/"

// DefaultPath is the import path used by Load.
const DefaultPath = "example.com/app"

// Package is a parsed and type-checked package.
type Package struct {
	Path    string
	Fset    *token.FileSet
	Files   []*ast.File
	Pkg     *types.Package
	Info    *types.Info
	Sources map[string][]byte // by file name
	Errors  []error
}

// ReadFile returns the source of one of the package files.
func (p *Package) ReadFile(name string) ([]byte, error) {
	src, ok := p.Sources[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
	}

	return src, nil
}

// Unit returns the package as a unit of analysis.
func (p *Package) Unit() *registry.Unit {
	return &registry.Unit{
		Fset:     p.Fset,
		Files:    p.Files,
		Info:     p.Info,
		Pkg:      p.Pkg,
		ReadFile: p.ReadFile,
	}
}

// Loader type-checks a set of in-memory packages that may import each other.
type Loader struct {
	fset    *token.FileSet
	sources map[string]map[string]string
	loaded  map[string]*Package
	loading map[string]bool
	lenient bool
	std     types.Importer
}

// NewLoader returns an empty loader.
func NewLoader() *Loader {
	fset := token.NewFileSet()

	return &Loader{
		fset:    fset,
		sources: map[string]map[string]string{},
		loaded:  map[string]*Package{},
		loading: map[string]bool{},
		std:     importer.ForCompiler(fset, "source", nil),
	}
}

// Fset returns the file set shared by every loaded package.
func (l *Loader) Fset() *token.FileSet {
	return l.fset
}

// Add registers the files of a package. File names are made unique by
// prefixing them with the package path.
func (l *Loader) Add(pkgPath string, files map[string]string) *Loader {
	named := map[string]string{}
	for name, src := range files {
		named[pkgPath+"/"+name] = src
	}

	l.sources[pkgPath] = named

	return l
}

// Lenient makes the loader keep packages with type errors.
func (l *Loader) Lenient() *Loader {
	l.lenient = true

	return l
}

// Load type-checks pkgPath and its in-memory dependencies.
func (l *Loader) Load(pkgPath string) (*Package, error) {
	if pkg, ok := l.loaded[pkgPath]; ok {
		return pkg, nil
	}

	if strings.HasPrefix(pkgPath, modulePath) && l.sources[pkgPath] == nil {
		files, err := moduleSources(pkgPath)
		if err != nil {
			return nil, err
		}

		l.sources[pkgPath] = files
	}

	files, ok := l.sources[pkgPath]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", pkgPath, os.ErrNotExist)
	}

	if l.loading[pkgPath] {
		return nil, fmt.Errorf("package %s: import cycle", pkgPath)
	}

	l.loading[pkgPath] = true
	defer delete(l.loading, pkgPath)

	pkg := &Package{
		Path:    pkgPath,
		Fset:    l.fset,
		Sources: map[string][]byte{},
		Info:    NewInfo(),
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		src := files[name]

		file, err := parser.ParseFile(l.fset, name, src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		pkg.Files = append(pkg.Files, file)
		pkg.Sources[name] = []byte(src)
	}

	cfg := types.Config{
		Importer: l,
		Error: func(err error) {
			pkg.Errors = append(pkg.Errors, err)
		},
	}

	pkg.Pkg, _ = cfg.Check(pkgPath, l.fset, pkg.Files, pkg.Info)
	if len(pkg.Errors) > 0 && !l.lenient {
		return nil, fmt.Errorf("type-check %s: %w", pkgPath, errors.Join(pkg.Errors...))
	}

	l.loaded[pkgPath] = pkg

	return pkg, nil
}

// MustLoad is Load failing the test on error.
func (l *Loader) MustLoad(t testing.TB, pkgPath string) *Package {
	t.Helper()

	pkg, err := l.Load(pkgPath)
	require.NoError(t, err)

	return pkg
}

// Import implements types.Importer.
func (l *Loader) Import(path string) (*types.Package, error) {
	if _, ok := l.sources[path]; ok || strings.HasPrefix(path, modulePath) {
		pkg, err := l.Load(path)
		if err != nil {
			return nil, err
		}

		return pkg.Pkg, nil
	}

	return l.std.Import(path)
}

// Load type-checks a single-file package at DefaultPath.
func Load(t testing.TB, src string) *Package {
	t.Helper()

	return NewLoader().Add(DefaultPath, map[string]string{"mapping.go": src}).MustLoad(t, DefaultPath)
}

// NewInfo returns a types.Info with every map the analysis relies on.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      map[ast.Expr]types.TypeAndValue{},
		Instances:  map[*ast.Ident]types.Instance{},
		Defs:       map[*ast.Ident]types.Object{},
		Uses:       map[*ast.Ident]types.Object{},
		Implicits:  map[ast.Node]types.Object{},
		Selections: map[*ast.SelectorExpr]*types.Selection{},
		Scopes:     map[ast.Node]*types.Scope{},
	}
}

// LookupType returns the named type declared at package level.
func (p *Package) LookupType(t testing.TB, name string) types.Type {
	t.Helper()

	obj := p.Pkg.Scope().Lookup(name)
	require.NotNil(t, obj, "type %s is not declared in %s", name, p.Path)

	return obj.Type()
}

// Pos returns the position of the first occurrence of substr in the named
// file, or in the first file when name is empty.
func (p *Package) Pos(t testing.TB, name, substr string) token.Pos {
	t.Helper()

	for _, file := range p.Files {
		fname := p.Fset.File(file.Pos()).Name()
		if name != "" && !strings.HasSuffix(fname, "/"+name) {
			continue
		}

		offset := strings.Index(string(p.Sources[fname]), substr)
		require.GreaterOrEqual(t, offset, 0, "%q not found in %s", substr, fname)

		return p.Fset.File(file.Pos()).Pos(offset)
	}

	require.FailNow(t, "file not found", name)

	return token.NoPos
}

func moduleSources(pkgPath string) (map[string]string, error) {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("cannot locate the sources of %s", pkgPath)
	}

	root := filepath.Join(filepath.Dir(self), "..", "..")
	dir := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(pkgPath, modulePath)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s sources: %w", pkgPath, err)
	}

	files := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s sources: %w", pkgPath, err)
		}

		files[filepath.Join(dir, name)] = string(src)
	}

	return files, nil
}

// ExprText renders an expression in its short form.
func ExprText(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	return types.ExprString(expr)
}
