package rules

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/types/typeutil"

	"mapcheck/internal/chain"
)

// overrideFunc is the function an override runs at mapping time.
type overrideFunc struct {
	// Sig is the signature of the resolver or converter.
	Sig *types.Signature
	// Type and Body are set when the function is declared in the analysed
	// package.
	Type *ast.FuncType
	Body *ast.BlockStmt
	// Method is set when the converter is a value with a Convert method.
	Method bool
}

// resolveFunc finds the declaration of an override's resolver or converter:
// a function literal, a function declared in the package, or the Convert
// method of a value.
func (c *Context) resolveFunc(ov chain.Override) (overrideFunc, bool) {
	if ov.Func == nil {
		return overrideFunc{}, false
	}

	info := c.Info()

	if lit, ok := ast.Unparen(ov.Func).(*ast.FuncLit); ok {
		sig, _ := info.TypeOf(lit).(*types.Signature)

		return overrideFunc{Sig: sig, Type: lit.Type, Body: lit.Body}, sig != nil
	}

	t := info.TypeOf(ov.Func)
	if t == nil {
		return overrideFunc{}, false
	}

	if sig, ok := t.Underlying().(*types.Signature); ok {
		of := overrideFunc{Sig: sig}
		if fn, ok := funcObject(info, ov.Func); ok {
			if decl := c.funcDecl(fn); decl != nil {
				of.Type, of.Body = decl.Type, decl.Body
			}
		}

		return of, true
	}

	obj, _, _ := types.LookupFieldOrMethod(t, true, nil, "Convert")
	fn, ok := obj.(*types.Func)
	if !ok {
		return overrideFunc{}, false
	}

	of := overrideFunc{Sig: fn.Signature(), Method: true}
	if decl := c.funcDecl(fn); decl != nil {
		of.Type, of.Body = decl.Type, decl.Body
	}

	return of, true
}

func funcObject(info *types.Info, expr ast.Expr) (*types.Func, bool) {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Ident:
		fn, ok := info.Uses[e].(*types.Func)

		return fn, ok
	case *ast.SelectorExpr:
		fn, ok := info.Uses[e.Sel].(*types.Func)

		return fn, ok
	}

	return nil, false
}

// funcDecl returns the declaration of fn when it belongs to the analysed
// package.
func (c *Context) funcDecl(fn *types.Func) *ast.FuncDecl {
	if fn.Pkg() != c.Decl.Unit.Pkg {
		return nil
	}

	info := c.Info()
	for _, file := range c.Decl.Unit.Files {
		for _, d := range file.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if ok && info.Defs[fd.Name] == fn {
				return fd
			}
		}
	}

	return nil
}

// calledFunc returns the function or method a call invokes.
func calledFunc(info *types.Info, call *ast.CallExpr) (*types.Func, bool) {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return nil, false
	}

	return fn, true
}
