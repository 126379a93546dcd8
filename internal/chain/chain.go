// Package chain models fluent mapping declarations: the CreateMap call and
// every chained step that configures it.
package chain

import (
	"context"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/ast/inspector"

	"mapcheck/internal/entry"
)

// Step is one call of a fluent chain.
type Step struct {
	Kind entry.Kind
	Call *ast.CallExpr
	// Prev is the index of the step this one is applied to, -1 for the root.
	Prev int
	// Segment is the declaration the step configures: 0 for the CreateMap
	// declaration, k for the declaration created by the k-th ReverseMap.
	Segment int
	// Stmt is the statement that contains the call.
	Stmt ast.Stmt
}

// Receiver returns the syntactic receiver of a method step.
func (s Step) Receiver() ast.Expr {
	sel, ok := ast.Unparen(s.Call.Fun).(*ast.SelectorExpr)
	if !ok {
		return nil
	}

	return sel.X
}

// Chain is an arena of steps in application order. Steps[0] is the
// CreateMap call.
type Chain struct {
	File  *ast.File
	Steps []Step
	// Bound is the variable the chain value is assigned to, if any.
	Bound types.Object
	// Block is the block holding the root statement, if any.
	Block *ast.BlockStmt
}

// Root returns the CreateMap step.
func (c *Chain) Root() Step {
	return c.Steps[0]
}

// Segments returns the number of declarations the chain produces.
func (c *Chain) Segments() int {
	return c.Steps[len(c.Steps)-1].Segment + 1
}

// Anchor returns the index of the step that creates the segment's
// declaration: the CreateMap call or the ReverseMap call.
func (c *Chain) Anchor(segment int) int {
	for i, step := range c.Steps {
		if step.Segment == segment {
			return i
		}
	}

	return -1
}

// Last returns the index of the last step of the segment.
func (c *Chain) Last(segment int) int {
	last := -1
	for i, step := range c.Steps {
		if step.Segment == segment {
			last = i
		}
	}

	return last
}

// SegmentSteps returns the indexes of the steps of the segment.
func (c *Chain) SegmentSteps(segment int) []int {
	var res []int
	for i, step := range c.Steps {
		if step.Segment == segment {
			res = append(res, i)
		}
	}

	return res
}

// DepthLimited reports whether the segment carries a MaxDepth step.
func (c *Chain) DepthLimited(segment int) bool {
	for _, step := range c.Steps {
		if step.Segment == segment && step.Kind == entry.MaxDepth {
			return true
		}
	}

	return false
}

// Discover finds every chain rooted at a CreateMap call of the API package,
// in source order. The context is checked at every visited call.
func Discover(ctx context.Context, info *types.Info, res entry.Resolver, files []*ast.File) ([]*Chain, error) {
	var chains []*Chain

	in := inspector.New(files)
	in.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}

		if ctx.Err() != nil {
			return false
		}

		call := n.(*ast.CallExpr)
		if res.Resolve(info, call) != entry.CreateMap {
			return true
		}

		chains = append(chains, build(info, res, call, stack))

		return true
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return chains, nil
}

func build(info *types.Info, res entry.Resolver, root *ast.CallExpr, stack []ast.Node) *Chain {
	c := &Chain{
		File:  stack[0].(*ast.File),
		Steps: []Step{{Kind: entry.CreateMap, Call: root, Prev: -1}},
	}

	var (
		cur     ast.Node = root
		segment int
		j       = len(stack) - 2
	)

	for ; j >= 1; j -= 2 {
		sel, ok := stack[j].(*ast.SelectorExpr)
		if !ok || sel.X != cur {
			break
		}

		parent, ok := stack[j-1].(*ast.CallExpr)
		if !ok || parent.Fun != sel {
			break
		}

		kind := res.Resolve(info, parent)
		if !kind.IsChainStep() {
			break
		}

		if kind == entry.ReverseMap {
			segment++
		}

		c.Steps = append(c.Steps, Step{Kind: kind, Call: parent, Prev: len(c.Steps) - 1, Segment: segment})
		cur = parent
	}

	stmt, stmtIdx := enclosingStmt(stack, j)
	for i := range c.Steps {
		c.Steps[i].Stmt = stmt
	}

	if stmt == nil {
		return c
	}

	c.Bound = boundObject(info, stmt, cur)
	if stmtIdx > 0 {
		c.Block, _ = stack[stmtIdx-1].(*ast.BlockStmt)
	}

	if c.Bound != nil && c.Block != nil {
		c.follow(info, res, stmt)
	}

	return c
}

// follow appends the steps of later statements in the same block that
// continue the chain through its bound variable.
func (c *Chain) follow(info *types.Info, res entry.Resolver, stmt ast.Stmt) {
	after := false
	for _, s := range c.Block.List {
		if s == stmt {
			after = true

			continue
		}

		if !after {
			continue
		}

		var expr ast.Expr
		switch s := s.(type) {
		case *ast.ExprStmt:
			expr = s.X
		case *ast.AssignStmt:
			if len(s.Lhs) != 1 || len(s.Rhs) != 1 || !c.isBound(info, s.Lhs[0]) {
				continue
			}

			expr = s.Rhs[0]
		default:
			continue
		}

		calls, root := unwind(expr)
		if !c.isBound(info, root) {
			continue
		}

		segment := c.Steps[len(c.Steps)-1].Segment
		for _, call := range calls {
			kind := res.Resolve(info, call)
			if !kind.IsChainStep() {
				break
			}

			if kind == entry.ReverseMap {
				segment++
			}

			c.Steps = append(c.Steps, Step{Kind: kind, Call: call, Prev: len(c.Steps) - 1, Segment: segment, Stmt: s})
		}
	}
}

func (c *Chain) isBound(info *types.Info, expr ast.Expr) bool {
	ident, ok := ast.Unparen(expr).(*ast.Ident)
	if !ok {
		return false
	}

	return info.Uses[ident] == c.Bound
}

// unwind returns the method calls of a chain expression, innermost first,
// and the expression the chain is applied to.
func unwind(expr ast.Expr) ([]*ast.CallExpr, ast.Expr) {
	var calls []*ast.CallExpr

	for {
		call, ok := ast.Unparen(expr).(*ast.CallExpr)
		if !ok {
			break
		}

		sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
		if !ok {
			break
		}

		calls = append(calls, call)
		expr = sel.X
	}

	for i, j := 0, len(calls)-1; i < j; i, j = i+1, j-1 {
		calls[i], calls[j] = calls[j], calls[i]
	}

	return calls, expr
}

func enclosingStmt(stack []ast.Node, from int) (ast.Stmt, int) {
	for i := from; i >= 0; i-- {
		if stmt, ok := stack[i].(ast.Stmt); ok {
			return stmt, i
		}
	}

	return nil, -1
}

func boundObject(info *types.Info, stmt ast.Stmt, value ast.Node) types.Object {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		if len(s.Lhs) != len(s.Rhs) {
			return nil
		}

		for i, rhs := range s.Rhs {
			if ast.Unparen(rhs) == value {
				return identObject(info, s.Lhs[i])
			}
		}
	case *ast.DeclStmt:
		gen, ok := s.Decl.(*ast.GenDecl)
		if !ok {
			return nil
		}

		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok || len(vs.Names) != len(vs.Values) {
				continue
			}

			for i, v := range vs.Values {
				if ast.Unparen(v) == value {
					return identObject(info, vs.Names[i])
				}
			}
		}
	}

	return nil
}

func identObject(info *types.Info, expr ast.Expr) types.Object {
	ident, ok := expr.(*ast.Ident)
	if !ok || ident.Name == "_" {
		return nil
	}

	if obj := info.Defs[ident]; obj != nil {
		return obj
	}

	return info.Uses[ident]
}
