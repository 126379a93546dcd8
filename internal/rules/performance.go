package rules

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"mapcheck/internal/chain"
	"mapcheck/internal/diagnostic"
)

// Performance inspects the functions run by overrides for I/O, blocking,
// non-deterministic calls, repeated traversal of one collection and nested
// loops. Each category is reported at most once per override, at its first
// occurrence.
type Performance struct{}

func (Performance) Name() string { return "performance" }

var blockingCalls = map[string]bool{
	"(*sync.WaitGroup).Wait":                   true,
	"(*sync.Cond).Wait":                        true,
	"(*golang.org/x/sync/errgroup.Group).Wait": true,
	"time.Sleep":                               true,
}

var clockCalls = map[string]bool{
	"time.Now":   true,
	"time.Since": true,
	"time.Until": true,
}

var randomPackages = []string{"math/rand", "math/rand/v2", "crypto/rand"}

// enumerating are the packages whose functions traverse their first argument.
var enumerating = []string{"slices", "maps", "sort"}

type hit struct {
	code string
	pos  token.Pos
	what string
}

func (Performance) Analyze(ctx context.Context, c *Context) []diagnostic.Finding {
	var res []diagnostic.Finding

	for _, ov := range c.Overrides.All() {
		if ctx.Err() != nil {
			return nil
		}

		if ov.Kind != chain.OverrideExplicitSource && ov.Kind != chain.OverrideConverter {
			continue
		}

		fn, ok := c.resolveFunc(ov)
		if !ok || fn.Body == nil {
			continue
		}

		for _, h := range scanBody(c.Info(), c.Config, fn.Body) {
			args := []string{ov.Member}
			if h.code != diagnostic.CodeComplexOperation {
				args = append(args, h.what)
			}

			f := c.newFinding(h.code, h.pos, ov.Member, args...).
				With(diagnostic.PropCall, h.what)
			res = append(res, f)
		}
	}

	return res
}

// scanBody returns the first hit of every category, in category order.
func scanBody(info *types.Info, cfg Config, body ast.Node) []hit {
	var (
		first  = map[string]hit{}
		counts = map[string]int{}
		stack  []ast.Node
	)

	record := func(code string, pos token.Pos, what string) {
		if _, seen := first[code]; !seen {
			first[code] = hit{code: code, pos: pos, what: what}
		}
	}

	enumerate := func(expr ast.Expr, pos token.Pos) {
		key, ok := reference(expr)
		if !ok || !enumerable(info.TypeOf(expr)) {
			return
		}

		counts[key]++
		if counts[key] == 2 {
			record(diagnostic.CodeRepeatedEnumeration, pos, key)
		}
	}

	ast.Inspect(body, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]

			return false
		}

		switch n := n.(type) {
		case *ast.UnaryExpr:
			if n.Op == token.ARROW {
				record(diagnostic.CodeBlockingCall, n.Pos(), "channel receive")
			}

		case *ast.SelectStmt:
			if !hasDefault(n) {
				record(diagnostic.CodeBlockingCall, n.Pos(), "select")
			}

		case *ast.RangeStmt:
			if _, ok := underlying(info.TypeOf(n.X)).(*types.Chan); ok {
				record(diagnostic.CodeBlockingCall, n.Pos(), "range over channel")
			}

			for _, anc := range stack {
				if _, ok := anc.(*ast.RangeStmt); ok {
					record(diagnostic.CodeComplexOperation, n.Pos(), "nested range")

					break
				}
			}

			enumerate(n.X, n.Pos())

		case *ast.CallExpr:
			checkCall(info, cfg, n, record, enumerate)
		}

		stack = append(stack, n)

		return true
	})

	var res []hit
	for _, code := range []string{
		diagnostic.CodeIOCall,
		diagnostic.CodeBlockingCall,
		diagnostic.CodeNondeterministic,
		diagnostic.CodeRepeatedEnumeration,
		diagnostic.CodeComplexOperation,
	} {
		if h, ok := first[code]; ok {
			res = append(res, h)
		}
	}

	return res
}

func checkCall(info *types.Info, cfg Config, call *ast.CallExpr,
	record func(string, token.Pos, string), enumerate func(ast.Expr, token.Pos),
) {
	fn, ok := calledFunc(info, call)
	if !ok {
		return
	}

	name, path := fn.FullName(), fn.Pkg().Path()
	method := fn.Signature().Recv() != nil

	switch {
	case matchPackage(cfg.IOPackages, path):
		record(diagnostic.CodeIOCall, call.Pos(), name)
	case blockingCalls[name]:
		record(diagnostic.CodeBlockingCall, call.Pos(), name)
	case clockCalls[name], !method && isRandom(path), !method && isIdentifier(path, fn.Name()):
		record(diagnostic.CodeNondeterministic, call.Pos(), name)
	}

	if !method && len(call.Args) > 0 {
		for _, p := range enumerating {
			if path == p {
				enumerate(call.Args[0], call.Pos())

				break
			}
		}
	}
}

func isRandom(path string) bool {
	for _, p := range randomPackages {
		if path == p {
			return true
		}
	}

	return false
}

// isIdentifier matches the random and time-based UUID constructors.
func isIdentifier(path, name string) bool {
	if path != "github.com/google/uuid" || !strings.HasPrefix(name, "New") {
		return false
	}

	switch name {
	case "NewMD5", "NewSHA1", "NewHash":
		return false
	}

	return true
}

func hasDefault(s *ast.SelectStmt) bool {
	for _, stmt := range s.Body.List {
		if cc, ok := stmt.(*ast.CommClause); ok && cc.Comm == nil {
			return true
		}
	}

	return false
}

// reference renders identifiers and selector chains; other expressions
// produce a fresh value on every evaluation.
func reference(expr ast.Expr) (string, bool) {
	switch e := ast.Unparen(expr).(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.SelectorExpr:
		x, ok := reference(e.X)
		if !ok {
			return "", false
		}

		return x + "." + e.Sel.Name, true
	}

	return "", false
}

func enumerable(t types.Type) bool {
	switch u := underlying(t).(type) {
	case *types.Slice, *types.Map, *types.Array:
		return true
	case *types.Pointer:
		_, ok := u.Elem().Underlying().(*types.Array)

		return ok
	}

	return false
}

func underlying(t types.Type) types.Type {
	if t == nil {
		return nil
	}

	return t.Underlying()
}
