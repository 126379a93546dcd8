// Package entry recognizes calls into the mapping configuration API.
// Recognition is semantic: a call matches only when it resolves to the
// declared object of the API package, never by spelling.
package entry

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/types/typeutil"

	"mapcheck/internal/common"
)

// DefaultPath is the import path of the configuration API.
const DefaultPath = "mapcheck/automap"

// receiverType is the named type carrying the fluent chain methods.
const receiverType = "TypeMap"

// Kind identifies an API entry point.
type Kind int

const (
	None Kind = iota
	CreateMap
	ForMember
	ReverseMap
	MaxDepth
	MapFrom
	MapFromErr
	Ignore
	ConvertUsing
	ValueOr
)

var functions = map[string]Kind{
	"CreateMap":    CreateMap,
	"MapFrom":      MapFrom,
	"MapFromErr":   MapFromErr,
	"Ignore":       Ignore,
	"ConvertUsing": ConvertUsing,
	"ValueOr":      ValueOr,
}

var methods = map[string]Kind{
	"ForMember":  ForMember,
	"ReverseMap": ReverseMap,
	"MaxDepth":   MaxDepth,
}

// String returns the API name of the entry point.
func (k Kind) String() string {
	for name, kind := range functions {
		if kind == k {
			return name
		}
	}

	for name, kind := range methods {
		if kind == k {
			return name
		}
	}

	if k == None {
		return "none"
	}

	return common.UnknownStr
}

// IsChainStep reports whether the kind is a method of the fluent chain.
func (k Kind) IsChainStep() bool {
	return k == ForMember || k == ReverseMap || k == MaxDepth
}

// Resolver resolves calls against one API package.
type Resolver struct {
	path string
}

// New returns a resolver for the API package at path. An empty path selects
// DefaultPath.
func New(path string) Resolver {
	if path == "" {
		path = DefaultPath
	}

	return Resolver{path: path}
}

// Path returns the import path of the API package.
func (r Resolver) Path() string {
	return r.path
}

// Resolve returns the entry point called by call, or None.
func (r Resolver) Resolve(info *types.Info, call *ast.CallExpr) Kind {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != r.path {
		return None
	}

	fn = fn.Origin()

	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return None
	}

	if recv := sig.Recv(); recv != nil {
		if !isReceiver(recv.Type()) {
			return None
		}

		return methods[fn.Name()]
	}

	return functions[fn.Name()]
}

// IsAPIType reports whether t is the fluent chain type of the API package.
func (r Resolver) IsAPIType(t types.Type) bool {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
	}

	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()

	return obj.Pkg() != nil && obj.Pkg().Path() == r.path && obj.Name() == receiverType
}

// TypeArgs returns the instantiated type arguments of the called function.
func TypeArgs(info *types.Info, call *ast.CallExpr) []types.Type {
	var ident *ast.Ident

	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.IndexExpr:
		ident = calleeIdent(fun.X)
	case *ast.IndexListExpr:
		ident = calleeIdent(fun.X)
	default:
		ident = calleeIdent(fun)
	}

	if ident == nil {
		return nil
	}

	inst, ok := info.Instances[ident]
	if !ok || inst.TypeArgs == nil {
		return nil
	}

	res := make([]types.Type, 0, inst.TypeArgs.Len())
	for i := range inst.TypeArgs.Len() {
		res = append(res, inst.TypeArgs.At(i))
	}

	return res
}

func calleeIdent(expr ast.Expr) *ast.Ident {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Ident:
		return e
	case *ast.SelectorExpr:
		return e.Sel
	}

	return nil
}

func isReceiver(t types.Type) bool {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
	}

	named, ok := types.Unalias(t).(*types.Named)

	return ok && named.Obj().Name() == receiverType
}
