package rewrite

import (
	"go/ast"
	"go/types"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"mapcheck/internal/chain"
	"mapcheck/internal/compat"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/entry"
	"mapcheck/internal/pairing"
	"mapcheck/internal/registry"
	"mapcheck/primitive"
)

// DefaultDepth is the MaxDepth suggested for recursive declarations.
const DefaultDepth = 3

// DefaultCacheSize is the number of declarations whose overrides and member
// correlation are kept between Generate calls.
const DefaultCacheSize = 256

// Generator builds candidate edits for findings. It only reads the registry
// and the syntax trees.
type Generator struct {
	resolver entry.Resolver
	registry *registry.Registry
	depth    int
	log      *zap.Logger

	cacheSize int
	members   *lru.Cache[int, declMembers]
}

// declMembers is the per-declaration input of every request.
type declMembers struct {
	overrides   chain.Overrides
	correlation pairing.Correlation
}

// Option configures a Generator.
type Option func(*Generator)

// WithDepth sets the suggested MaxDepth.
func WithDepth(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.depth = n
		}
	}
}

// WithLogger sets the logger reporting skipped candidates.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

// WithCacheSize sets how many declarations are cached between calls.
func WithCacheSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.cacheSize = n
		}
	}
}

// New returns a Generator.
func New(res entry.Resolver, reg *registry.Registry, opts ...Option) *Generator {
	g := &Generator{
		resolver:  res,
		registry:  reg,
		depth:     DefaultDepth,
		log:       zap.NewNop(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(g)
	}

	cache, err := lru.New[int, declMembers](g.cacheSize)
	if err != nil {
		panic(err)
	}

	g.members = cache

	return g
}

// membersOf returns the overrides and correlation of d.
func (g *Generator) membersOf(d *registry.Declaration) declMembers {
	if m, ok := g.members.Get(d.ID); ok {
		return m
	}

	overrides := chain.Extract(d.Unit.Info, g.resolver, d.Chain, d.Segment)
	m := declMembers{
		overrides:   overrides,
		correlation: pairing.Correlate(d.Source, d.Destination, overrides),
	}
	g.members.Add(d.ID, m)

	return m
}

// Generate returns the candidate edits for a finding reported on d, best
// first. When the affected member or chain shape cannot be resolved it
// returns nil.
func (g *Generator) Generate(f diagnostic.Finding, d *registry.Declaration) []CandidateEdit {
	s, ok := newSite(d, g.resolver.Path())
	if !ok {
		g.log.Debug("no rewrite site", zap.String("finding", f.Code), zap.Stringer("declaration", d))

		return nil
	}

	m := g.membersOf(d)
	r := &request{
		Generator:   g,
		site:        s,
		finding:     f,
		overrides:   m.overrides,
		correlation: m.correlation,
	}

	var cands []CandidateEdit

	add := func(c CandidateEdit, ok bool) {
		if ok {
			cands = append(cands, c)
		}
	}

	switch f.Code {
	case diagnostic.CodeTypeMismatch:
		add(r.conversion())
		add(r.ignore())
	case diagnostic.CodeNullableMismatch:
		// A value source filling a pointer destination maps fine at run time.
		if p, ok := r.pair(); ok && p.Verdict.SourceNullable {
			add(r.defaultValue())
			add(r.ignore())
		}
	case diagnostic.CodeContainerMismatch, diagnostic.CodeElementMismatch,
		diagnostic.CodeConverterSignature:
		add(r.ignore())
	case diagnostic.CodeNestedMappingMissing:
		add(r.nestedDeclaration())
		add(r.ignore())
	case diagnostic.CodeRecursiveMapping:
		add(r.maxDepth())
	case diagnostic.CodeUnmappedDestination:
		add(r.closestSource())
		add(r.ignore())
	case diagnostic.CodeDuplicateMapping:
		add(r.mergeReverse())
		add(r.removeReverse())
		add(r.removeDuplicate())
	case diagnostic.CodeRedundantOverride:
		add(r.removeOverride())
	}

	return cands
}

// request is the state of one Generate call.
type request struct {
	*Generator
	*site

	finding     diagnostic.Finding
	overrides   chain.Overrides
	correlation pairing.Correlation
}

// pair returns the member pair of the finding.
func (r *request) pair() (pairing.Pair, bool) {
	if r.finding.Member == "" {
		return pairing.Pair{}, false
	}

	p, ok := r.correlation.Lookup(r.finding.Member)
	if !ok || p.Name() != r.finding.Member {
		return pairing.Pair{}, false
	}

	return p, true
}

// override renders a member override. body renders the option given the
// indentation of the chain steps.
func (r *request) override(member string, option func(indent string) string) (TextEdit, bool) {
	if ov, ok := r.overrides.Lookup(member); ok {
		_, indent := r.separator(r.chain(), ov.Step)

		return TextEdit{Pos: ov.Option.Pos(), End: ov.Option.End(), NewText: option(indent)}, true
	}

	last := r.chain().Last(r.decl.Segment)
	if last < 0 {
		return TextEdit{}, false
	}

	sep, indent := r.separator(r.chain(), last)
	end := r.chain().Steps[last].Call.End()
	text := sep + "ForMember(" + strconv.Quote(member) + ", " + option(indent) + ")"

	return TextEdit{Pos: end, End: end, NewText: text}, true
}

// mapFrom renders a MapFrom or MapFromErr option with the given body.
func (r *request) mapFrom(b *builder, result types.Type, lines []string, fallible bool) func(string) string {
	srcType := b.typeString(r.decl.Source)
	resType := b.typeString(result)

	fn, sig := "MapFrom", resType
	if fallible {
		fn, sig = "MapFromErr", "("+resType+", error)"
	}

	return func(indent string) string {
		head := r.api + "." + fn + "(func(s " + srcType + ") " + sig + " {"
		if len(lines) == 1 {
			return head + " " + lines[0] + " })"
		}

		var sb strings.Builder
		sb.WriteString(head)

		for _, l := range lines {
			sb.WriteString("\n" + indent + "\t" + l)
		}

		sb.WriteString("\n" + indent + "})")

		return sb.String()
	}
}

func (r *request) ignore() (CandidateEdit, bool) {
	member := r.finding.Member
	if _, ok := r.correlation.Lookup(member); !ok || member == "" {
		return CandidateEdit{}, false
	}

	b := r.builder()

	e, ok := r.override(member, func(string) string { return r.api + ".Ignore()" })
	if !ok {
		return CandidateEdit{}, false
	}

	return b.finish("Ignore member "+member, e)
}

func (r *request) conversion() (CandidateEdit, bool) {
	p, ok := r.pair()
	if !ok || p.Source == nil {
		return CandidateEdit{}, false
	}

	b := r.builder()
	dstType := b.typeString(p.Destination.Type)

	conv, ok := primitive.Convert(kindOf(p.Source.Type), kindOf(p.Destination.Type), "s."+p.Source.Name, dstType)
	if !ok {
		return CandidateEdit{}, false
	}

	r.log.Debug("conversion",
		zap.String("member", p.Name()),
		zap.Stringer("category", conv.Category),
		zap.Bool("fallible", conv.Fallible))

	for _, imp := range conv.Imports {
		if !b.use(imp, imp) {
			return CandidateEdit{}, false
		}
	}

	e, ok := r.override(p.Name(), r.mapFrom(b, p.Destination.Type, conv.Lines, conv.Fallible))
	if !ok {
		return CandidateEdit{}, false
	}

	return b.finish("Map "+p.Name()+" with a conversion", e)
}

func (r *request) defaultValue() (CandidateEdit, bool) {
	p, ok := r.pair()
	if !ok || p.Source == nil || !p.Verdict.SourceNullable || !p.Verdict.UnderlyingCompatible {
		return CandidateEdit{}, false
	}

	ptr, ok := p.Source.Type.Underlying().(*types.Pointer)
	if !ok {
		return CandidateEdit{}, false
	}

	b := r.builder()

	zero, ok := zeroLiteral(b, ptr.Elem())
	if !ok {
		return CandidateEdit{}, false
	}

	expr := r.api + ".ValueOr(s." + p.Source.Name + ", " + zero + ")"
	if !types.Identical(ptr.Elem(), p.Destination.Type) {
		expr = b.typeString(p.Destination.Type) + "(" + expr + ")"
	}

	e, ok := r.override(p.Name(), r.mapFrom(b, p.Destination.Type, []string{"return " + expr}, false))
	if !ok {
		return CandidateEdit{}, false
	}

	return b.finish("Use a default value for "+p.Name(), e)
}

func (r *request) closestSource() (CandidateEdit, bool) {
	name := r.finding.Properties[diagnostic.PropCandidate]
	p, ok := r.pair()
	if !ok || name == "" {
		return CandidateEdit{}, false
	}

	sm, ok := r.correlation.SourceMember(name)
	if !ok || sm.Name != name || !types.AssignableTo(sm.Type, p.Destination.Type) {
		return CandidateEdit{}, false
	}

	b := r.builder()

	e, ok := r.override(p.Name(), r.mapFrom(b, p.Destination.Type, []string{"return s." + sm.Name}, false))
	if !ok {
		return CandidateEdit{}, false
	}

	return b.finish("Map "+p.Name()+" from "+sm.Name, e)
}

func (r *request) nestedDeclaration() (CandidateEdit, bool) {
	p, ok := r.pair()
	if !ok || p.Verdict.Kind != compat.RequiresNestedMapping {
		return CandidateEdit{}, false
	}

	c := r.chain()
	root := c.Root().Call

	stmt := c.Root().Stmt
	if stmt == nil || c.Block == nil || len(root.Args) != 1 || !isReference(root.Args[0]) {
		return CandidateEdit{}, false
	}

	b := r.builder()
	src, dst := b.typeString(p.Verdict.NestedSource), b.typeString(p.Verdict.NestedDestination)
	decl := r.api + ".CreateMap[" + src + ", " + dst + "](" + r.text(root.Args[0]) + ")"
	title := "Declare the mapping " + src + " -> " + dst

	switch stmt.(type) {
	case *ast.ExprStmt, *ast.AssignStmt, *ast.DeclStmt:
		text := "\n" + r.indent(stmt.Pos()) + decl

		return b.finish(title, TextEdit{Pos: stmt.End(), End: stmt.End(), NewText: text})
	case *ast.ReturnStmt:
		text := decl + "\n" + r.indent(stmt.Pos())

		return b.finish(title, TextEdit{Pos: stmt.Pos(), End: stmt.Pos(), NewText: text})
	default:
		return CandidateEdit{}, false
	}
}

func (r *request) maxDepth() (CandidateEdit, bool) {
	c := r.chain()
	if c.DepthLimited(r.decl.Segment) {
		return CandidateEdit{}, false
	}

	last := c.Last(r.decl.Segment)
	if last < 0 {
		return CandidateEdit{}, false
	}

	sep, _ := r.separator(c, last)
	end := c.Steps[last].Call.End()
	text := sep + "MaxDepth(" + strconv.Itoa(r.depth) + ")"

	return r.builder().finish("Limit the mapping depth to "+strconv.Itoa(r.depth), TextEdit{Pos: end, End: end, NewText: text})
}

func (r *request) removeOverride() (CandidateEdit, bool) {
	ov, ok := r.overrides.Lookup(r.finding.Member)
	if !ok {
		return CandidateEdit{}, false
	}

	e, ok := r.removeStep(ov.Step)
	if !ok {
		return CandidateEdit{}, false
	}

	return r.builder().finish("Remove the redundant override of "+ov.Member, e)
}

// removeStep removes a chain step by replacing its call with its receiver.
// A step that forms a whole statement on the bound variable removes the
// statement.
func (r *request) removeStep(i int) (TextEdit, bool) {
	c := r.chain()
	if i <= 0 || i >= len(c.Steps) {
		return TextEdit{}, false
	}

	step := c.Steps[i]

	recv := step.Receiver()
	if recv == nil {
		return TextEdit{}, false
	}

	if step.Stmt != nil && step.Stmt != c.Root().Stmt && isIdent(recv) && wholeStmt(step.Stmt, step.Call) {
		return r.deleteStmt(step.Stmt), true
	}

	return TextEdit{Pos: recv.End(), End: step.Call.End()}, true
}

func (r *request) removeReverse() (CandidateEdit, bool) {
	c := r.chain()
	if !r.decl.Reverse || r.decl.Segment != c.Segments()-1 {
		return CandidateEdit{}, false
	}

	steps := c.SegmentSteps(r.decl.Segment)
	if len(steps) != 1 {
		return CandidateEdit{}, false
	}

	e, ok := r.removeStep(steps[0])
	if !ok {
		return CandidateEdit{}, false
	}

	return r.builder().finish("Remove the redundant ReverseMap", e)
}

// mergeReverse rewrites CreateMap[A, B](p) followed by
// CreateMap[B, A](p).ReverseMap() into CreateMap[A, B](p).ReverseMap().
func (r *request) mergeReverse() (CandidateEdit, bool) {
	c := r.chain()
	if !r.decl.Reverse || len(c.Steps) != 2 || c.Bound != nil || !r.simpleStmt(c) {
		return CandidateEdit{}, false
	}

	canonical, ok := r.registry.DuplicateOf(r.decl)
	if !ok || canonical.Reverse || canonical.Chain == nil || canonical.Chain == c || canonical.Chain.Bound != nil ||
		canonical.Chain.Segments() != 1 || canonical.Chain.File != c.File {
		return CandidateEdit{}, false
	}

	last := canonical.Chain.Last(0)
	end := canonical.Chain.Steps[last].Call.End()

	sep, _ := r.separator(canonical.Chain, last)

	b := r.builder()

	return b.finish("Merge into a bidirectional mapping",
		TextEdit{Pos: end, End: end, NewText: sep + "ReverseMap()"},
		r.deleteStmt(c.Root().Stmt))
}

func (r *request) removeDuplicate() (CandidateEdit, bool) {
	c := r.chain()
	if r.decl.Reverse || c.Bound != nil || !r.simpleStmt(c) {
		return CandidateEdit{}, false
	}

	// every declaration of the statement must be a duplicate
	for _, d := range r.registry.Declarations() {
		if d.Chain != c {
			continue
		}

		if _, dup := r.registry.DuplicateOf(d); !dup {
			return CandidateEdit{}, false
		}
	}

	return r.builder().finish("Remove the duplicate declaration", r.deleteStmt(c.Root().Stmt))
}

// simpleStmt reports whether the chain is a whole expression statement of a
// block.
func (r *request) simpleStmt(c *chain.Chain) bool {
	stmt, ok := c.Root().Stmt.(*ast.ExprStmt)
	if !ok || c.Block == nil {
		return false
	}

	for _, step := range c.Steps {
		if step.Stmt != c.Root().Stmt {
			return false
		}
	}

	return ast.Unparen(stmt.X) == c.Steps[len(c.Steps)-1].Call
}

func wholeStmt(stmt ast.Stmt, call *ast.CallExpr) bool {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return ast.Unparen(s.X) == call
	case *ast.AssignStmt:
		return len(s.Rhs) == 1 && ast.Unparen(s.Rhs[0]) == call
	}

	return false
}

func isIdent(e ast.Expr) bool {
	_, ok := ast.Unparen(e).(*ast.Ident)

	return ok
}

func isReference(e ast.Expr) bool {
	switch e := ast.Unparen(e).(type) {
	case *ast.Ident:
		return true
	case *ast.SelectorExpr:
		return isReference(e.X)
	}

	return false
}

// kindOf returns the conversion kind of t; named basic types convert like
// their underlying type.
func kindOf(t types.Type) primitive.KindEnum {
	k := primitive.FromType(t)
	if k == primitive.KindPrimitiveEnum {
		return primitive.Underlying(t)
	}

	return k
}

// zeroLiteral renders the zero value of t as an expression whose type is
// inferred from the context.
func zeroLiteral(b *builder, t types.Type) (string, bool) {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsString != 0:
			return `""`, true
		case u.Info()&types.IsNumeric != 0:
			return "0", true
		case u.Info()&types.IsBoolean != 0:
			return "false", true
		}
	case *types.Struct:
		if _, named := t.(*types.Named); named {
			return b.typeString(t) + "{}", true
		}
	case *types.Slice, *types.Map, *types.Pointer, *types.Interface, *types.Chan, *types.Signature:
		return "nil", true
	}

	return "", false
}
