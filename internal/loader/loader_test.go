package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/engine"
	"mapcheck/internal/loader"
)

const root = "../.."

func TestLoad(t *testing.T) {
	t.Parallel()

	units, err := loader.Load(context.Background(), loader.Options{Dir: root, Log: zaptest.NewLogger(t)},
		"mapcheck/examples/store", "mapcheck/examples/warehouse")
	require.NoError(t, err)
	require.Len(t, units, 2)

	paths := []string{units[0].Pkg.Path(), units[1].Pkg.Path()}
	assert.ElementsMatch(t, []string{"mapcheck/examples/store", "mapcheck/examples/warehouse"}, paths)

	for _, u := range units {
		assert.NotEmpty(t, u.Files)
		assert.NotNil(t, u.Info)
		assert.NotNil(t, u.ReadFile)
	}

	order := units[0].Pkg.Scope().Lookup("Order")
	require.NotNil(t, order)
}

func TestLoadAndAnalyze(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	units, err := loader.Load(ctx, loader.Options{Dir: root}, "./examples/mappings")
	require.NoError(t, err)
	require.Len(t, units, 1)

	res, err := engine.New(engine.DefaultConfig()).Run(ctx, units, nil)
	require.NoError(t, err)
	assert.Len(t, res.Registry.Declarations(), 4)

	var weight *diagnostic.Finding
	for i, f := range res.Findings {
		if f.Code == diagnostic.CodeTypeMismatch && f.Member == "Weight" {
			weight = &res.Findings[i]
		}
	}

	require.NotNil(t, weight, "findings: %v", res.Findings)
	assert.Equal(t, diagnostic.SeverityError, weight.Severity)
	assert.Contains(t, weight.Position.Filename, "profile.go")
	assert.NotEmpty(t, res.Fixes(*weight))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := loader.Load(context.Background(), loader.Options{Dir: root}, "./examples/missing")
	require.Error(t, err)
}
