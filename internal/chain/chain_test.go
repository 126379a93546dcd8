package chain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/chain"
	"mapcheck/internal/entry"
	"mapcheck/internal/testutil"
)

const src = `package app

import (
	"strconv"

	"mapcheck/automap"
)

type User struct {
	Name  string
	Age   string
	Email string
	Score int32
}

type UserDTO struct {
	Name     string
	Age      int
	Email    string
	Score    int64
	Internal string
	Display  string
}

type upper struct{}

func (upper) Convert(s string) string { return s }

func configure(p *automap.Profile, sel func(d *UserDTO) any) {
	automap.CreateMap[User, UserDTO](p).
		ForMember("Name", automap.MapFrom(func(u User) string { return u.Name })).
		ForMember(func(d *UserDTO) any { return &d.Age }, automap.MapFromErr(func(u User) (int, error) { return strconv.Atoi(u.Age) })).
		ForMember("Internal", automap.Ignore()).
		ForMember("Display", automap.ConvertUsing(upper{}, "Email")).
		ForMember(sel, automap.Ignore()).
		ForMember("score", opt()).
		MaxDepth(3).
		ReverseMap().
		ForMember("Email", automap.Ignore())

	m := automap.CreateMap[UserDTO, User](p)
	m.ForMember("Age", automap.Ignore())
	m = m.ForMember("Name", automap.Ignore())
	m.ReverseMap()
}

func opt() automap.MemberOption { return automap.Ignore() }
`

func TestDiscover(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, src)
	chains, err := chain.Discover(context.Background(), pkg.Info, entry.New(""), pkg.Files)
	require.NoError(t, err)
	require.Len(t, chains, 2)

	first := chains[0]
	require.Len(t, first.Steps, 10)
	assert.Equal(t, 2, first.Segments())
	assert.Equal(t, entry.CreateMap, first.Root().Kind)
	assert.Equal(t, 0, first.Anchor(0))
	assert.Equal(t, 8, first.Anchor(1))
	assert.Equal(t, entry.ReverseMap, first.Steps[8].Kind)
	assert.Equal(t, 7, first.Last(0))
	assert.Equal(t, 9, first.Last(1))
	assert.True(t, first.DepthLimited(0))
	assert.False(t, first.DepthLimited(1))
	assert.Nil(t, first.Bound)

	for i, step := range first.Steps {
		assert.Equal(t, i-1, step.Prev)
		assert.Same(t, first.Steps[0].Stmt, step.Stmt)
	}

	second := chains[1]
	require.NotNil(t, second.Bound)
	assert.Equal(t, "m", second.Bound.Name())
	require.Len(t, second.Steps, 4)
	assert.Equal(t, []entry.Kind{entry.CreateMap, entry.ForMember, entry.ForMember, entry.ReverseMap},
		[]entry.Kind{second.Steps[0].Kind, second.Steps[1].Kind, second.Steps[2].Kind, second.Steps[3].Kind})
	assert.Equal(t, 1, second.Steps[3].Segment)
	assert.NotSame(t, second.Steps[0].Stmt, second.Steps[1].Stmt)
	assert.Equal(t, "m", testutil.ExprText(second.Steps[1].Receiver()))
}

func TestExtract(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, src)
	chains, err := chain.Discover(context.Background(), pkg.Info, entry.New(""), pkg.Files)
	require.NoError(t, err)
	require.NotEmpty(t, chains)

	overrides := chain.Extract(pkg.Info, entry.New(""), chains[0], 0)
	require.Equal(t, 5, overrides.Len())

	tests := []struct {
		member       string
		kind         chain.OverrideKind
		sourceMember string
		sourceExpr   string
		fallible     bool
	}{
		{member: "Name", kind: chain.OverrideExplicitSource, sourceMember: "Name", sourceExpr: "u.Name"},
		{member: "Age", kind: chain.OverrideExplicitSource, sourceExpr: "strconv.Atoi(u.Age)", fallible: true},
		{member: "Internal", kind: chain.OverrideIgnore},
		{member: "Display", kind: chain.OverrideConverter, sourceMember: "Email", sourceExpr: "upper{}"},
		{member: "Score", kind: chain.OverrideUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.member, func(t *testing.T) {
			t.Parallel()

			ov, ok := overrides.Lookup(tt.member)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ov.Kind, ov.Kind.String())
			assert.Equal(t, tt.sourceMember, ov.SourceMember)
			assert.Equal(t, tt.fallible, ov.Fallible)

			if tt.sourceExpr != "" {
				assert.Equal(t, tt.sourceExpr, ov.SourceExpr)
			}
		})
	}

	assert.True(t, overrides.Reads("email"))
	assert.False(t, overrides.Reads("Score"))

	reverse := chain.Extract(pkg.Info, entry.New(""), chains[0], 1)
	ov, ok := reverse.Lookup("email")
	require.True(t, ok)
	assert.Equal(t, "Email", ov.Member)
	assert.Equal(t, chain.OverrideIgnore, ov.Kind)
}

func TestExtractLaterOverrideWins(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, `package app

import "mapcheck/automap"

type A struct{ X int }
type B struct{ X int }

func configure(p *automap.Profile) {
	automap.CreateMap[A, B](p).
		ForMember("X", automap.Ignore()).
		ForMember("X", automap.MapFrom(func(a A) int { return a.X }))
}
`)

	chains, err := chain.Discover(context.Background(), pkg.Info, entry.New(""), pkg.Files)
	require.NoError(t, err)
	require.Len(t, chains, 1)

	overrides := chain.Extract(pkg.Info, entry.New(""), chains[0], 0)
	require.Equal(t, 1, overrides.Len())
	require.Len(t, overrides.All(), 1)
	assert.Equal(t, chain.OverrideExplicitSource, overrides.All()[0].Kind)
	assert.Equal(t, 2, overrides.All()[0].Step)
}

func TestDiscoverCanceled(t *testing.T) {
	t.Parallel()

	pkg := testutil.Load(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chains, err := chain.Discover(ctx, pkg.Info, entry.New(""), pkg.Files)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, chains)
}
