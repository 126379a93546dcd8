package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"mapcheck/internal/chain"
	"mapcheck/internal/common"
	"mapcheck/internal/registry"
)

// site is the source of the file holding a declaration.
type site struct {
	decl *registry.Declaration
	unit *registry.Unit
	file *ast.File
	tok  *token.File
	src  []byte
	// api is the name the file imports the configuration API under.
	api string
}

func newSite(d *registry.Declaration, apiPath string) (*site, bool) {
	if d.Chain == nil || d.Unit == nil || d.Unit.ReadFile == nil {
		return nil, false
	}

	tok := d.Unit.Fset.File(d.Chain.File.Pos())
	if tok == nil {
		return nil, false
	}

	src, err := d.Unit.ReadFile(tok.Name())
	if err != nil || len(src) != tok.Size() {
		return nil, false
	}

	s := &site{decl: d, unit: d.Unit, file: d.Chain.File, tok: tok, src: src}

	name, ok := s.importName(apiPath)
	if !ok {
		return nil, false
	}

	s.api = name

	return s, true
}

func (s *site) chain() *chain.Chain {
	return s.decl.Chain
}

func (s *site) off(pos token.Pos) int {
	return s.tok.Offset(pos)
}

func (s *site) text(n ast.Node) string {
	return string(s.src[s.off(n.Pos()):s.off(n.End())])
}

// indent returns the leading white space of the line holding pos.
func (s *site) indent(pos token.Pos) string {
	start := s.off(pos)
	for start > 0 && s.src[start-1] != '\n' {
		start--
	}

	end := start
	for end < len(s.src) && (s.src[end] == ' ' || s.src[end] == '\t') {
		end++
	}

	return string(s.src[start:end])
}

// importName returns the name a package path is imported under. Blank and
// dot imports are unusable.
func (s *site) importName(importPath string) (string, bool) {
	for _, spec := range s.file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || p != importPath {
			continue
		}

		if spec.Name != nil {
			if spec.Name.Name == "_" || spec.Name.Name == "." {
				return "", false
			}

			return spec.Name.Name, true
		}

		if pkgName, ok := s.unit.Info.Implicits[spec].(*types.PkgName); ok {
			return pkgName.Imported().Name(), true
		}

		return common.ImportName(importPath), true
	}

	return "", false
}

// free reports whether name can be declared as a new file-level import.
func (s *site) free(name string) bool {
	if scope := s.unit.Info.Scopes[s.file]; scope != nil && scope.Lookup(name) != nil {
		return false
	}

	return s.unit.Pkg == nil || s.unit.Pkg.Scope().Lookup(name) == nil
}

// builder collects the imports one candidate needs.
type builder struct {
	*site
	imports []string
	failed  bool
}

func (s *site) builder() *builder {
	return &builder{site: s}
}

// use makes the package available under name and reports success.
func (b *builder) use(importPath, name string) bool {
	if got, ok := b.importName(importPath); ok {
		return got == name
	}

	for _, p := range b.imports {
		if p == importPath {
			return true
		}
	}

	if !b.free(name) {
		return false
	}

	b.imports = append(b.imports, importPath)

	return true
}

// typeString renders t as written in the file, importing packages as
// needed. A type naming an unexported type of another package fails the
// builder.
func (b *builder) typeString(t types.Type) string {
	if !b.reachable(t, 0) {
		b.failed = true
	}

	return types.TypeString(t, func(p *types.Package) string {
		if p == b.unit.Pkg {
			return ""
		}

		if name, ok := b.importName(p.Path()); ok {
			return name
		}

		if !b.use(p.Path(), p.Name()) {
			b.failed = true
		}

		return p.Name()
	})
}

// maxTypeDepth bounds the walk of reachable.
const maxTypeDepth = 32

// reachable reports whether every type name in t can be written in the
// file's package.
func (b *builder) reachable(t types.Type, depth int) bool {
	if depth > maxTypeDepth {
		return false
	}

	visible := func(obj *types.TypeName, args *types.TypeList) bool {
		if obj.Pkg() != nil && obj.Pkg() != b.unit.Pkg && !obj.Exported() {
			return false
		}

		for i := range args.Len() {
			if !b.reachable(args.At(i), depth+1) {
				return false
			}
		}

		return true
	}

	switch t := t.(type) {
	case *types.Named:
		return visible(t.Obj(), t.TypeArgs())
	case *types.Alias:
		return visible(t.Obj(), t.TypeArgs())
	case *types.Pointer:
		return b.reachable(t.Elem(), depth+1)
	case *types.Slice:
		return b.reachable(t.Elem(), depth+1)
	case *types.Array:
		return b.reachable(t.Elem(), depth+1)
	case *types.Chan:
		return b.reachable(t.Elem(), depth+1)
	case *types.Map:
		return b.reachable(t.Key(), depth+1) && b.reachable(t.Elem(), depth+1)
	case *types.Signature:
		return b.reachableTuple(t.Params(), depth) && b.reachableTuple(t.Results(), depth)
	case *types.Struct:
		for i := range t.NumFields() {
			f := t.Field(i)
			if !f.Exported() && f.Pkg() != b.unit.Pkg || !b.reachable(f.Type(), depth+1) {
				return false
			}
		}

		return true
	default:
		return true
	}
}

func (b *builder) reachableTuple(tup *types.Tuple, depth int) bool {
	for i := range tup.Len() {
		if !b.reachable(tup.At(i).Type(), depth+1) {
			return false
		}
	}

	return true
}

// finish returns the candidate, or false when the builder failed.
func (b *builder) finish(title string, edits ...TextEdit) (CandidateEdit, bool) {
	if b.failed || len(edits) == 0 {
		return CandidateEdit{}, false
	}

	for _, p := range b.imports {
		e, ok := b.importEdit(p)
		if !ok {
			return CandidateEdit{}, false
		}

		edits = append(edits, e)
	}

	return CandidateEdit{Title: title, Edits: edits}, true
}

func (s *site) importEdit(importPath string) (TextEdit, bool) {
	for _, d := range s.file.Decls {
		gen, ok := d.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT {
			continue
		}

		if gen.Lparen.IsValid() {
			pos := gen.Lparen + 1

			return TextEdit{Pos: pos, End: pos, NewText: "\n\t" + strconv.Quote(importPath)}, true
		}

		return TextEdit{Pos: gen.End(), End: gen.End(), NewText: "\nimport " + strconv.Quote(importPath)}, true
	}

	return TextEdit{}, false
}

// separator returns the text joining a new step to step i, following the
// line breaking of the chain, and the indentation of the chain's steps.
func (s *site) separator(c *chain.Chain, i int) (string, string) {
	stmt := c.Steps[i].Stmt

	for j := i; j > 0; j-- {
		step := c.Steps[j]
		if step.Stmt != stmt {
			continue
		}

		sel, ok := ast.Unparen(step.Call.Fun).(*ast.SelectorExpr)
		if !ok {
			continue
		}

		if strings.Contains(string(s.src[s.off(sel.X.End()):s.off(sel.Sel.Pos())]), "\n") {
			indent := s.indent(sel.Sel.Pos())

			return ".\n" + indent, indent
		}
	}

	if stmt != nil {
		return ".", s.indent(stmt.Pos())
	}

	return ".", s.indent(c.Steps[i].Call.Pos())
}

// deleteStmt removes a statement, with its line when nothing else is on it.
func (s *site) deleteStmt(stmt ast.Stmt) TextEdit {
	start, end := s.off(stmt.Pos()), s.off(stmt.End())

	ls := start
	for ls > 0 && (s.src[ls-1] == ' ' || s.src[ls-1] == '\t') {
		ls--
	}

	le := end
	for le < len(s.src) && (s.src[le] == ' ' || s.src[le] == '\t') {
		le++
	}

	if (ls == 0 || s.src[ls-1] == '\n') && le < len(s.src) && s.src[le] == '\n' {
		start, end = ls, le+1
	}

	return TextEdit{Pos: s.tok.Pos(start), End: s.tok.Pos(end)}
}
