package engine

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mapcheck/internal/cycle"
	"mapcheck/internal/diagnostic"
	"mapcheck/internal/entry"
	"mapcheck/internal/registry"
	"mapcheck/internal/rewrite"
	"mapcheck/internal/rules"
)

// Engine runs the rules over compilations. An Engine holds no state between
// runs and may be used concurrently.
type Engine struct {
	cfg      Config
	resolver entry.Resolver
	rules    []rules.Rule
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rs ...rules.Rule) Option {
	return func(e *Engine) {
		e.rules = rs
	}
}

// New returns an Engine.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalize()

	e := &Engine{
		cfg:      cfg,
		resolver: entry.New(cfg.APIPackage),
		rules:    rules.Default(),
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.rules = slices.DeleteFunc(slices.Clone(e.rules), func(r rules.Rule) bool {
		return slices.Contains(cfg.Disabled, r.Name())
	})

	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Result is the outcome of a run. Registry and Cycles are the snapshot the
// findings were computed against.
type Result struct {
	Findings []diagnostic.Finding
	Registry *registry.Registry
	Cycles   *cycle.Report

	generator *rewrite.Generator
}

// Fixes returns the candidate edits for one of the result's findings.
func (r *Result) Fixes(f diagnostic.Finding) []rewrite.CandidateEdit {
	decls := r.Registry.Declarations()
	if f.Decl < 0 || f.Decl >= len(decls) {
		return nil
	}

	return r.generator.Generate(f, decls[f.Decl])
}

// Run analyzes the units as one compilation. External are declarations of
// already analyzed packages; they satisfy nested mapping lookups but are
// never reported on. On cancellation Run returns no result.
func (e *Engine) Run(ctx context.Context, units []*registry.Unit, external []registry.Fact) (*Result, error) {
	start := time.Now()

	reg, err := registry.Build(ctx, units, registry.Options{
		Resolver: e.resolver,
		External: external,
		Logger:   e.log,
	})
	if err != nil {
		return nil, err
	}

	cycles, err := cycle.Detect(ctx, reg, e.resolver)
	if err != nil {
		return nil, err
	}

	e.log.Debug("cycles detected", zap.Int("cycles", len(cycles.Cycles())))

	decls := reg.Declarations()
	perDecl := make([][]diagnostic.Finding, len(decls))
	ruleCfg := rules.Config{IOPackages: e.cfg.IOPackages}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for i, d := range decls {
		if gctx.Err() != nil {
			break
		}

		if d.Unit == nil || d.Unit.Info == nil {
			e.log.Debug("declaration skipped", zap.Stringer("declaration", d), zap.String("reason", "no type information"))

			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			c := rules.NewContext(d, reg, e.resolver, cycles, ruleCfg)

			var found []diagnostic.Finding
			for _, rule := range e.rules {
				found = append(found, rule.Analyze(gctx, c)...)
			}

			perDecl[i] = found

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// a cancellation between the last Go and Wait leaves holes
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []diagnostic.Finding
	for _, found := range perDecl {
		findings = append(findings, found...)
	}

	diagnostic.Sort(findings)

	e.log.Debug("analysis finished",
		zap.Int("declarations", len(decls)),
		zap.Int("findings", len(findings)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Findings: findings,
		Registry: reg,
		Cycles:   cycles,
		generator: rewrite.New(e.resolver, reg,
			rewrite.WithDepth(e.cfg.MaxDepth),
			rewrite.WithLogger(e.log)),
	}, nil
}
