package engine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/engine"
	"mapcheck/internal/registry"
	"mapcheck/internal/rules"
	"mapcheck/internal/testutil"
)

const models = `package app

type Source struct {
	Name string
	Age  string
}

type Destination struct {
	Name string
	Age  int
}

type Node struct{ Next *Node }
type NodeDTO struct{ Next *NodeDTO }
`

const config = `package app

import "mapcheck/automap"

func configure(p *automap.Profile) {
	automap.CreateMap[Source, Destination](p)
	automap.CreateMap[Node, NodeDTO](p)
	automap.CreateMap[Source, Destination](p)
}
`

func load(t *testing.T, files map[string]string) *testutil.Package {
	t.Helper()

	return testutil.NewLoader().Add(testutil.DefaultPath, files).MustLoad(t, testutil.DefaultPath)
}

func run(t *testing.T, cfg engine.Config, files map[string]string) *engine.Result {
	t.Helper()

	pkg := load(t, files)

	res, err := engine.New(cfg, engine.WithLogger(zaptest.NewLogger(t))).
		Run(context.Background(), []*registry.Unit{pkg.Unit()}, nil)
	require.NoError(t, err)

	return res
}

func codes(findings []diagnostic.Finding) []string {
	res := make([]string, 0, len(findings))
	for _, f := range findings {
		res = append(res, fmt.Sprintf("%d:%s:%s", f.Position.Line, f.Code, f.Member))
	}

	return res
}

func TestRun(t *testing.T) {
	t.Parallel()

	res := run(t, engine.DefaultConfig(), map[string]string{"models.go": models, "config.go": config})

	assert.Equal(t, []string{
		"6:type_mismatch:Age",
		"7:recursive_mapping:Next",
		"8:duplicate_mapping:",
		"8:type_mismatch:Age",
	}, codes(res.Findings), spew.Sdump(res.Findings))

	assert.Len(t, res.Registry.Declarations(), 3)
	assert.Len(t, res.Cycles.Cycles(), 1)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	files := map[string]string{"models.go": models, "config.go": config}

	serial := engine.DefaultConfig()
	serial.Parallelism = 1

	parallel := engine.DefaultConfig()
	parallel.Parallelism = 8

	want := run(t, serial, files).Findings

	for i := range 5 {
		got := run(t, parallel, files).Findings
		assert.Equal(t, codes(want), codes(got), "run %d", i)
	}
}

func TestRunDisabledRules(t *testing.T) {
	t.Parallel()

	cfg := engine.DefaultConfig()
	cfg.Disabled = []string{rules.DuplicateMapping{}.Name(), rules.RecursiveMapping{}.Name()}

	res := run(t, cfg, map[string]string{"models.go": models, "config.go": config})
	assert.Equal(t, []string{"6:type_mismatch:Age", "8:type_mismatch:Age"}, codes(res.Findings))
}

func TestRunWithRules(t *testing.T) {
	t.Parallel()

	pkg := load(t, map[string]string{"models.go": models, "config.go": config})

	res, err := engine.New(engine.DefaultConfig(), engine.WithRules(rules.DuplicateMapping{})).
		Run(context.Background(), []*registry.Unit{pkg.Unit()}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"8:duplicate_mapping:"}, codes(res.Findings))
}

func TestRunExternalDeclarations(t *testing.T) {
	t.Parallel()

	lib := `package lib

type Address struct{ City string }
type AddressDTO struct{ City string }
`

	app := `package app

import (
	"mapcheck/automap"

	"example.com/lib"
)

type Order struct{ Ship lib.Address }
type OrderDTO struct{ Ship lib.AddressDTO }

func configure(p *automap.Profile) {
	automap.CreateMap[Order, OrderDTO](p)
}
`

	pkg := testutil.NewLoader().
		Add("example.com/lib", map[string]string{"lib.go": lib}).
		Add(testutil.DefaultPath, map[string]string{"app.go": app}).
		MustLoad(t, testutil.DefaultPath)

	e := engine.New(engine.DefaultConfig())

	res, err := e.Run(context.Background(), []*registry.Unit{pkg.Unit()}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"13:nested_mapping_missing:Ship"}, codes(res.Findings))

	external := []registry.Fact{{
		Key:  "example.com/lib.Address -> example.com/lib.AddressDTO",
		Pair: "lib.Address -> lib.AddressDTO",
	}}

	res, err = e.Run(context.Background(), []*registry.Unit{pkg.Unit()}, external)
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	pkg := load(t, map[string]string{"models.go": models, "config.go": config})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.New(engine.DefaultConfig()).Run(ctx, []*registry.Unit{pkg.Unit()}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

// cancelingRule cancels the run from inside a rule invocation.
type cancelingRule struct {
	cancel context.CancelFunc
}

func (cancelingRule) Name() string { return "canceling" }

func (r cancelingRule) Analyze(context.Context, *rules.Context) []diagnostic.Finding {
	r.cancel()

	return nil
}

func TestRunCanceledDuringRules(t *testing.T) {
	t.Parallel()

	pkg := load(t, map[string]string{"models.go": models, "config.go": config})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := engine.DefaultConfig()
	cfg.Parallelism = 1

	res, err := engine.New(cfg, engine.WithRules(rules.TypeMismatch{}, cancelingRule{cancel: cancel})).
		Run(ctx, []*registry.Unit{pkg.Unit()}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestResultFixes(t *testing.T) {
	t.Parallel()

	res := run(t, engine.DefaultConfig(), map[string]string{"models.go": models, "config.go": config})
	require.NotEmpty(t, res.Findings)

	var titles []string
	for _, c := range res.Fixes(res.Findings[0]) {
		titles = append(titles, c.Title)
	}

	assert.Equal(t, []string{"Map Age with a conversion", "Ignore member Age"}, titles)

	assert.Nil(t, res.Fixes(diagnostic.Finding{Decl: 42}))
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := engine.DefaultConfig()
	assert.Equal(t, testutil.APIPath, cfg.APIPackage)
	assert.Positive(t, cfg.Parallelism)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Contains(t, cfg.IOPackages, "database/sql")

	e := engine.New(engine.Config{})
	assert.Equal(t, cfg, e.Config())
}
