package chain

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"mapcheck/internal/common"
	"mapcheck/internal/entry"
)

// OverrideKind classifies how a member override populates its member.
type OverrideKind int

const (
	OverrideUnresolved OverrideKind = iota
	OverrideIgnore
	OverrideExplicitSource
	OverrideConverter
)

// String returns a human-readable name for the override kind.
func (k OverrideKind) String() string {
	switch k {
	case OverrideUnresolved:
		return "unresolved"
	case OverrideIgnore:
		return "ignore"
	case OverrideExplicitSource:
		return "explicit_source"
	case OverrideConverter:
		return "custom_converter"
	default:
		return common.UnknownStr
	}
}

// Override is a ForMember step of one declaration.
type Override struct {
	Member string
	Kind   OverrideKind
	Step   int // index in Chain.Steps
	Call   *ast.CallExpr

	// Target is the member argument, Option the option argument.
	Target ast.Expr
	Option ast.Expr

	// Func is the resolver function (explicit source) or the converter.
	Func ast.Expr
	// Body is the body of Func when it is a function literal.
	Body *ast.BlockStmt
	// Fallible is set for MapFromErr resolvers.
	Fallible bool

	// SourceExpr is the source expression as written; SourceMember is set
	// when the expression reads a single source member (`return s.Name`)
	// or when a converter names its source member.
	SourceExpr   string
	SourceMember string
}

// Overrides are the member overrides of a declaration, keyed by member.
type Overrides struct {
	list  []Override
	index map[string]int
}

// Lookup returns the override of a member. Member names match
// case-insensitively.
func (o Overrides) Lookup(member string) (Override, bool) {
	i, ok := o.index[strings.ToLower(member)]
	if !ok {
		return Override{}, false
	}

	return o.list[i], true
}

// All returns the effective overrides in chain order. When a member is
// overridden twice the later override wins.
func (o Overrides) All() []Override {
	res := make([]Override, 0, len(o.index))
	for i, ov := range o.list {
		if o.index[strings.ToLower(ov.Member)] == i {
			res = append(res, ov)
		}
	}

	return res
}

// Len returns the number of effective overrides.
func (o Overrides) Len() int {
	return len(o.index)
}

// Reads reports whether any override consumes the named source member.
func (o Overrides) Reads(sourceMember string) bool {
	for _, ov := range o.All() {
		if ov.SourceMember != "" && strings.EqualFold(ov.SourceMember, sourceMember) {
			return true
		}
	}

	return false
}

// Extract collects the member overrides of one declaration of the chain.
// Steps whose target member cannot be resolved are skipped.
func Extract(info *types.Info, res entry.Resolver, c *Chain, segment int) Overrides {
	o := Overrides{index: map[string]int{}}

	for i, step := range c.Steps {
		if step.Segment != segment || step.Kind != entry.ForMember || len(step.Call.Args) != 2 {
			continue
		}

		member, ok := TargetMember(info, step.Call.Args[0])
		if !ok {
			continue
		}

		ov := Override{
			Member: member,
			Step:   i,
			Call:   step.Call,
			Target: step.Call.Args[0],
			Option: step.Call.Args[1],
		}

		classify(info, res, &ov)

		o.index[strings.ToLower(member)] = len(o.list)
		o.list = append(o.list, ov)
	}

	return o
}

// TargetMember resolves the member argument of ForMember: a string constant
// or a selector literal of the form func(d *D) any { return &d.Field }.
func TargetMember(info *types.Info, arg ast.Expr) (string, bool) {
	arg = ast.Unparen(arg)

	if tv, ok := info.Types[arg]; ok && tv.Value != nil && tv.Value.Kind() == constant.String {
		name := constant.StringVal(tv.Value)

		return name, token.IsIdentifier(name)
	}

	lit, ok := arg.(*ast.FuncLit)
	if !ok {
		return "", false
	}

	param := firstParam(info, lit)
	result, ok := singleReturn(lit)
	if !ok || param == nil {
		return "", false
	}

	addr, ok := result.(*ast.UnaryExpr)
	if !ok || addr.Op != token.AND {
		return "", false
	}

	return selectedMember(info, addr.X, param)
}

func classify(info *types.Info, res entry.Resolver, ov *Override) {
	call, ok := ast.Unparen(ov.Option).(*ast.CallExpr)
	if !ok {
		return
	}

	switch res.Resolve(info, call) {
	case entry.Ignore:
		ov.Kind = OverrideIgnore

	case entry.MapFrom, entry.MapFromErr:
		if len(call.Args) != 1 {
			return
		}

		ov.Kind = OverrideExplicitSource
		ov.Fallible = res.Resolve(info, call) == entry.MapFromErr
		ov.Func = call.Args[0]
		ov.SourceExpr = types.ExprString(call.Args[0])

		lit, ok := ast.Unparen(call.Args[0]).(*ast.FuncLit)
		if !ok {
			return
		}

		ov.Body = lit.Body

		if result, ok := singleReturn(lit); ok {
			ov.SourceExpr = types.ExprString(result)
			if param := firstParam(info, lit); param != nil && !ov.Fallible {
				ov.SourceMember, _ = selectedMember(info, result, param)
			}
		}

	case entry.ConvertUsing:
		if len(call.Args) != 2 {
			return
		}

		ov.Kind = OverrideConverter
		ov.Func = call.Args[0]
		ov.SourceExpr = types.ExprString(call.Args[0])

		if lit, ok := ast.Unparen(call.Args[0]).(*ast.FuncLit); ok {
			ov.Body = lit.Body
		}

		if tv, ok := info.Types[call.Args[1]]; ok && tv.Value != nil && tv.Value.Kind() == constant.String {
			ov.SourceMember = constant.StringVal(tv.Value)
		}
	}
}

func firstParam(info *types.Info, lit *ast.FuncLit) types.Object {
	params := lit.Type.Params
	if params == nil || len(params.List) == 0 || len(params.List[0].Names) == 0 {
		return nil
	}

	return info.Defs[params.List[0].Names[0]]
}

// singleReturn returns the first result of a literal whose body is a single
// return statement.
func singleReturn(lit *ast.FuncLit) (ast.Expr, bool) {
	if lit.Body == nil || len(lit.Body.List) != 1 {
		return nil, false
	}

	ret, ok := lit.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) == 0 {
		return nil, false
	}

	return ast.Unparen(ret.Results[0]), true
}

// selectedMember matches `param.Field` and returns the field name.
func selectedMember(info *types.Info, expr ast.Expr, param types.Object) (string, bool) {
	sel, ok := ast.Unparen(expr).(*ast.SelectorExpr)
	if !ok {
		return "", false
	}

	ident, ok := ast.Unparen(sel.X).(*ast.Ident)
	if !ok || info.Uses[ident] != param {
		return "", false
	}

	if s, ok := info.Selections[sel]; !ok || s.Kind() != types.FieldVal {
		return "", false
	}

	return sel.Sel.Name, true
}
