package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/entry"
	"mapcheck/internal/registry"
	"mapcheck/internal/testutil"
)

const types = `package app

type A struct{ X int }
type B struct{ X int }
type C struct{ X int }
`

func build(t *testing.T, files map[string]string, external ...registry.Fact) (*registry.Registry, *testutil.Package) {
	t.Helper()

	all := map[string]string{"types.go": types}
	for name, src := range files {
		all[name] = src
	}

	pkg := testutil.NewLoader().Lenient().Add(testutil.DefaultPath, all).MustLoad(t, testutil.DefaultPath)

	reg, err := registry.Build(context.Background(), []*registry.Unit{pkg.Unit()}, registry.Options{
		Resolver: entry.New(""),
		External: external,
	})
	require.NoError(t, err)

	return reg, pkg
}

func TestBuild(t *testing.T) {
	t.Parallel()

	reg, pkg := build(t, map[string]string{
		"b.go": `package app

import "mapcheck/automap"

func second(p *automap.Profile) {
	automap.CreateMap[A, B](p)
}
`,
		"a.go": `package app

import "mapcheck/automap"

func first(p *automap.Profile) {
	automap.CreateMap[A, B](p).ReverseMap()
	automap.CreateMap[B, C](p)
}
`,
	})

	decls := reg.Declarations()
	require.Len(t, decls, 4)

	assert.Equal(t, "app.A -> app.B", decls[0].String())
	assert.Equal(t, "app.B -> app.A", decls[1].String())
	assert.True(t, decls[1].Reverse)
	assert.Equal(t, pkg.Pos(t, "a.go", "ReverseMap"), decls[1].Pos)
	assert.Equal(t, "app.B -> app.C", decls[2].String())
	assert.Equal(t, "app.A -> app.B", decls[3].String())

	for i, d := range decls {
		assert.Equal(t, i, d.ID)
	}

	a, b, c := pkg.LookupType(t, "A"), pkg.LookupType(t, "B"), pkg.LookupType(t, "C")
	assert.True(t, reg.HasMapping(a, b))
	assert.True(t, reg.HasMapping(b, a))
	assert.True(t, reg.HasMapping(b, c))
	assert.False(t, reg.HasMapping(c, b))
	assert.False(t, reg.HasMapping(a, c))

	canonical, ok := reg.DuplicateOf(decls[3])
	require.True(t, ok)
	assert.Same(t, decls[0], canonical)

	_, ok = reg.DuplicateOf(decls[0])
	assert.False(t, ok)
	assert.Len(t, reg.DuplicatesOf(a, b), 1)
	assert.Len(t, reg.Canonical(), 3)
}

func TestBuildSkipsUnresolvedAndLookalikes(t *testing.T) {
	t.Parallel()

	reg, _ := build(t, map[string]string{"a.go": `package app

import "mapcheck/automap"

type TypeMap struct{}

func CreateMap[S, D any](p any) TypeMap { return TypeMap{} }

func generic[T any](p *automap.Profile) {
	automap.CreateMap[T, B](p)
}

func configure(p *automap.Profile) {
	automap.CreateMap[Missing, B](p)
	automap.CreateMap[[]A, map[string]Missing](p)
	CreateMap[A, B](p)
	automap.CreateMap[[]A, []B](p)
}
`})

	decls := reg.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, "[]app.A -> []app.B", decls[0].String())
}

func TestBuildExternalFacts(t *testing.T) {
	t.Parallel()

	reg, pkg := build(t, map[string]string{"a.go": `package app

import "mapcheck/automap"

func configure(p *automap.Profile) {
	automap.CreateMap[A, B](p)
}
`}, registry.Fact{Key: "example.com/app.B -> example.com/app.C", Pair: "app.B -> app.C"})

	a, b, c := pkg.LookupType(t, "A"), pkg.LookupType(t, "B"), pkg.LookupType(t, "C")
	assert.True(t, reg.HasMapping(b, c))
	assert.Len(t, reg.Declarations(), 1)

	_, ok := reg.Lookup(b, c)
	assert.False(t, ok, "external declarations are never reported locally")

	facts := reg.Facts(pkg.Pkg)
	require.Len(t, facts, 2)
	assert.Equal(t, "example.com/app.A -> example.com/app.B", facts[0].Key)
	assert.Equal(t, "example.com/app.B -> example.com/app.C", facts[1].Key)
	assert.True(t, reg.HasMapping(a, b))
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, types)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg, err := registry.Build(ctx, []*registry.Unit{pkg.Unit()}, registry.Options{Resolver: entry.New("")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, reg)
}
