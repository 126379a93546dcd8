package pairing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/chain"
	"mapcheck/internal/compat"
	"mapcheck/internal/entry"
	"mapcheck/internal/pairing"
	"mapcheck/internal/registry"
	"mapcheck/internal/testutil"
)

const src = `package app

import "mapcheck/automap"

type Src struct {
	URL    string
	Url    int
	Email  string
	Count  int32
	Legacy string
}

type Dst struct {
	Url    int
	EMAIL  string
	Count  int64
	Label  string
	Secret string
}

func configure(p *automap.Profile) {
	automap.CreateMap[Src, Dst](p).
		ForMember("Label", automap.MapFrom(func(s Src) string { return s.Legacy })).
		ForMember("Secret", automap.Ignore())
}
`

func correlate(t *testing.T) pairing.Correlation {
	t.Helper()

	pkg := testutil.Load(t, src)
	res := entry.New("")

	reg, err := registry.Build(context.Background(), []*registry.Unit{pkg.Unit()}, registry.Options{Resolver: res})
	require.NoError(t, err)
	require.Len(t, reg.Declarations(), 1)

	d := reg.Declarations()[0]

	return pairing.Correlate(d.Source, d.Destination, chain.Extract(pkg.Info, res, d.Chain, d.Segment))
}

func TestCorrelate(t *testing.T) {
	t.Parallel()

	c := correlate(t)

	tests := []struct {
		member       string
		source       string
		override     bool
		conventional bool
		verdict      compat.Kind
	}{
		{member: "Url", source: "Url", conventional: true, verdict: compat.ExactMatch},
		{member: "EMAIL", source: "Email", conventional: true, verdict: compat.ExactMatch},
		{member: "Count", source: "Count", conventional: true, verdict: compat.NumericConversion},
		{member: "Label", override: true},
		{member: "Secret", override: true},
	}

	require.Len(t, c.Pairs, len(tests))

	for i, tt := range tests {
		t.Run(tt.member, func(t *testing.T) {
			t.Parallel()

			p := c.Pairs[i]
			assert.Equal(t, tt.member, p.Name())
			assert.Equal(t, tt.override, p.Override != nil)
			assert.Equal(t, tt.conventional, p.Conventional())

			if tt.source == "" {
				assert.Nil(t, p.Source)

				return
			}

			require.NotNil(t, p.Source)
			assert.Equal(t, tt.source, p.Source.Name)
			assert.Equal(t, tt.verdict, p.Verdict.Kind)
		})
	}
}

func TestUnmatchedSources(t *testing.T) {
	t.Parallel()

	c := correlate(t)

	names := make([]string, 0, len(c.UnmatchedSources))
	for _, m := range c.UnmatchedSources {
		names = append(names, m.Name)
	}

	assert.Equal(t, []string{"Legacy"}, names)
	assert.Len(t, c.SourceMembers, 5)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	c := correlate(t)

	p, ok := c.Lookup("email")
	require.True(t, ok)
	assert.Equal(t, "EMAIL", p.Name())

	p, ok = c.Lookup("Label")
	require.True(t, ok)
	require.NotNil(t, p.Override)
	assert.Equal(t, "Legacy", p.Override.SourceMember)

	_, ok = c.Lookup("Missing")
	assert.False(t, ok)

	sm, ok := c.SourceMember("url")
	require.True(t, ok)
	assert.Equal(t, "URL", sm.Name)
}
