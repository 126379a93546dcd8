package rules

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"mapcheck/internal/chain"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/typedesc"
)

// ConverterValidity checks ConvertUsing overrides: the converter shape, that
// it accepts the source member and produces the destination member, and that
// a pointer argument is checked for nil before it is dereferenced.
type ConverterValidity struct{}

func (ConverterValidity) Name() string { return "converter-validity" }

func (ConverterValidity) Analyze(_ context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding

	for _, ov := range c.Overrides.All() {
		if ov.Kind != chain.OverrideConverter {
			continue
		}

		fn, ok := c.resolveFunc(ov)
		if !ok {
			if t := c.Info().TypeOf(ov.Func); t != nil && valid(t) {
				res = append(res, c.converterFinding(ov, fmt.Sprintf("%s is not a function and has no Convert method", typedesc.DisplayName(t))))
			}

			continue
		}

		if problem := c.checkSignature(ov, fn.Sig); problem != "" {
			res = append(res, c.converterFinding(ov, problem))

			continue
		}

		if pos, name, ok := uncheckedDeref(c.Info(), fn); ok {
			f := c.newFinding(diagnostic.CodeConverterNilHandling, pos, ov.Member, ov.Member, name)
			res = append(res, f)
		}
	}

	return res
}

func (c *Context) converterFinding(ov chain.Override, problem string) diagnostic.Finding {
	return c.newFinding(diagnostic.CodeConverterSignature, overridePos(ov), ov.Member, ov.Member, problem).
		With(diagnostic.PropOverride, ov.SourceExpr)
}

// checkSignature returns a description of what is wrong with the converter,
// or "" when it is valid. Problems the member types cannot decide, such as
// an unresolved source member name, are not reported.
func (c *Context) checkSignature(ov chain.Override, sig *types.Signature) string {
	if sig.Params().Len() != 1 || sig.Variadic() {
		return fmt.Sprintf("it takes %d arguments, want 1", sig.Params().Len())
	}

	if !validResults(sig.Results()) {
		return "results must be (U), (U, bool), (U, error) or (U, bool, error)"
	}

	param, result := sig.Params().At(0).Type(), sig.Results().At(0).Type()

	if ov.SourceMember != "" {
		sm, ok := c.Correlation.SourceMember(ov.SourceMember)
		if !ok {
			return fmt.Sprintf("source member %s does not exist on %s", ov.SourceMember, typedesc.DisplayName(c.Decl.Source))
		}

		if valid(sm.Type) && !types.AssignableTo(sm.Type, param) {
			return fmt.Sprintf("it takes %s, source member %s is %s",
				typedesc.DisplayName(param), sm.Name, typedesc.DisplayName(sm.Type))
		}
	}

	if p, ok := c.Correlation.Lookup(ov.Member); ok && valid(p.Destination.Type) && !types.AssignableTo(result, p.Destination.Type) {
		return fmt.Sprintf("it returns %s, member %s is %s",
			typedesc.DisplayName(result), p.Name(), typedesc.DisplayName(p.Destination.Type))
	}

	return ""
}

func validResults(results *types.Tuple) bool {
	isBool := func(i int) bool {
		b, ok := results.At(i).Type().Underlying().(*types.Basic)

		return ok && b.Kind() == types.Bool
	}

	isError := func(i int) bool {
		return types.Identical(results.At(i).Type(), types.Universe.Lookup("error").Type())
	}

	switch results.Len() {
	case 1:
		return true
	case 2:
		return isBool(1) || isError(1)
	case 3:
		return isBool(1) && isError(2)
	default:
		return false
	}
}

// uncheckedDeref finds the first dereference of a pointer argument that
// precedes every nil comparison of it.
func uncheckedDeref(info *types.Info, fn overrideFunc) (token.Pos, string, bool) {
	if fn.Type == nil || fn.Body == nil || fn.Type.Params == nil || len(fn.Type.Params.List) == 0 {
		return token.NoPos, "", false
	}

	names := fn.Type.Params.List[0].Names
	if len(names) == 0 {
		return token.NoPos, "", false
	}

	param := info.Defs[names[0]]
	if param == nil {
		return token.NoPos, "", false
	}

	if _, ok := param.Type().Underlying().(*types.Pointer); !ok {
		return token.NoPos, "", false
	}

	isParam := func(e ast.Expr) bool {
		id, ok := ast.Unparen(e).(*ast.Ident)

		return ok && info.Uses[id] == param
	}

	isNil := func(e ast.Expr) bool {
		id, ok := ast.Unparen(e).(*ast.Ident)
		if !ok {
			return false
		}

		_, isNil := info.Uses[id].(*types.Nil)

		return isNil
	}

	deref, check := token.NoPos, token.NoPos

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.BinaryExpr:
			if (n.Op == token.EQL || n.Op == token.NEQ) &&
				(isParam(n.X) && isNil(n.Y) || isNil(n.X) && isParam(n.Y)) {
				if !check.IsValid() {
					check = n.Pos()
				}
			}

		case *ast.StarExpr:
			if isParam(n.X) && !deref.IsValid() {
				deref = n.Pos()
			}

		case *ast.SelectorExpr:
			if !isParam(n.X) || deref.IsValid() {
				break
			}

			if s, ok := info.Selections[n]; ok && s.Kind() == types.FieldVal {
				deref = n.Pos()
			}

		case *ast.IndexExpr:
			if isParam(n.X) && !deref.IsValid() {
				deref = n.Pos()
			}
		}

		return true
	})

	if !deref.IsValid() || (check.IsValid() && check < deref) {
		return token.NoPos, "", false
	}

	return deref, param.Name(), true
}
