// Package rules holds the checks run against every mapping declaration.
// Each rule owns a fixed set of finding codes; no two rules report the same
// member for the same reason.
package rules

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"mapcheck/internal/chain"
	"mapcheck/internal/compat"
	"mapcheck/internal/cycle"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/entry"
	"mapcheck/internal/pairing"
	"mapcheck/internal/registry"
	"mapcheck/internal/typedesc"
)

// Rule checks one declaration.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string
	Analyze(ctx context.Context, c *Context) []diagnostic.Finding
}

// Config tunes the rules.
type Config struct {
	// IOPackages are the import paths whose functions and methods perform
	// I/O. A path ending in "/..." matches the path and every path below it.
	IOPackages []string
}

// DefaultIOPackages lists the database, file, network and reflection
// packages reported inside mappings.
func DefaultIOPackages() []string {
	return []string{
		"database/sql",
		"io/ioutil",
		"net",
		"net/http",
		"net/rpc",
		"os",
		"os/exec",
		"reflect",
		"github.com/jackc/pgx/...",
		"gorm.io/gorm/...",
		"entgo.io/ent/...",
		"go.mongodb.org/mongo-driver/...",
		"github.com/redis/go-redis/...",
	}
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{IOPackages: DefaultIOPackages()}
}

// Default returns every rule in reporting order.
func Default() []Rule {
	return []Rule{
		TypeMismatch{},
		NullableMismatch{},
		CollectionMismatch{},
		NestedMapping{},
		RecursiveMapping{},
		MissingMember{},
		DuplicateMapping{},
		RedundantOverride{},
		Performance{},
		ConverterValidity{},
	}
}

// Context is everything a rule may read about one declaration. It is built
// fresh per declaration; Registry and Cycles are shared and read-only.
type Context struct {
	Decl     *registry.Declaration
	Registry *registry.Registry
	Resolver entry.Resolver
	Cycles   *cycle.Report
	Config   Config

	Overrides   chain.Overrides
	Correlation pairing.Correlation
}

// NewContext extracts the overrides of decl and correlates its members.
func NewContext(decl *registry.Declaration, reg *registry.Registry, res entry.Resolver, cycles *cycle.Report, cfg Config) *Context {
	c := &Context{
		Decl:     decl,
		Registry: reg,
		Resolver: res,
		Cycles:   cycles,
		Config:   cfg,
	}

	if decl.Chain != nil && decl.Unit != nil {
		c.Overrides = chain.Extract(decl.Unit.Info, res, decl.Chain, decl.Segment)
	}

	c.Correlation = pairing.Correlate(decl.Source, decl.Destination, c.Overrides)

	return c
}

// Info returns the type information of the declaring package.
func (c *Context) Info() *types.Info {
	return c.Decl.Unit.Info
}

func (c *Context) newFinding(code string, pos token.Pos, member string, args ...string) diagnostic.Finding {
	f := diagnostic.New(code, pos, args...)
	f.Position = c.Decl.Unit.Fset.Position(pos)
	f.TypePair = c.Decl.String()
	f.Member = member
	f.Decl = c.Decl.ID

	return f
}

// pairFinding reports a conventional member pair at the declaration.
func (c *Context) pairFinding(code string, p pairing.Pair) diagnostic.Finding {
	src, dst := typedesc.DisplayName(p.Source.Type), typedesc.DisplayName(p.Destination.Type)

	return c.newFinding(code, c.Decl.Pos, p.Name(), p.Name(), src, dst).
		With(diagnostic.PropVerdict, p.Verdict.Kind.String()).
		With(diagnostic.PropSourceMember, p.Source.Name).
		With(diagnostic.PropSourceType, src).
		With(diagnostic.PropDestinationType, dst)
}

// overridePos is the position of the ForMember selector of an override.
func overridePos(ov chain.Override) token.Pos {
	if sel, ok := ast.Unparen(ov.Call.Fun).(*ast.SelectorExpr); ok {
		return sel.Sel.Pos()
	}

	return ov.Call.Pos()
}

// conventional returns the pairs populated by name matching whose verdict
// is one of kinds. Pairs with unresolved member types are skipped.
func (c *Context) conventional(kinds ...compat.Kind) []pairing.Pair {
	var res []pairing.Pair
	for _, p := range c.Correlation.Pairs {
		if !p.Conventional() || !valid(p.Source.Type) || !valid(p.Destination.Type) {
			continue
		}

		for _, k := range kinds {
			if p.Verdict.Kind == k {
				res = append(res, p)

				break
			}
		}
	}

	return res
}

func valid(t types.Type) bool {
	if t == nil {
		return false
	}

	b, ok := t.(*types.Basic)

	return !ok || b.Kind() != types.Invalid
}

// matchPackage reports whether path is covered by one of the patterns.
func matchPackage(patterns []string, path string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/..."); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}

			continue
		}

		if path == p {
			return true
		}
	}

	return false
}
