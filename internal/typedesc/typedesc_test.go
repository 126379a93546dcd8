package typedesc_test

import (
	"fmt"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/testutil"
	"mapcheck/internal/typedesc"
)

const src = `package app

import (
	"time"

	"github.com/google/uuid"
)

type Status string

type Base struct {
	ID      uuid.UUID
	Created time.Time
	secret  int
}

type Audit struct {
	Created string
	By      string
}

type Order struct {
	Base
	*Audit
	Name   string
	Status Status
	Tags   map[string]struct{}
	Flags  map[string]bool
	Lines  []Line
	Fixed  [4]int
	Prices map[string]float64
	Events chan Line
	Note   *string
	Box    Box[int]
}

type Line struct{ Qty int }

type Box[T any] struct{ V T }

type internalOrder struct{ Name string }

type Alias = Order

func local() any {
	type Local struct{}

	return Local{}
}
`

func load(t *testing.T) *testutil.Package {
	t.Helper()

	return testutil.NewLoader().
		Add("github.com/google/uuid", map[string]string{"uuid.go": "package uuid\n\ntype UUID [16]byte\n"}).
		Add(testutil.DefaultPath, map[string]string{"types.go": src}).
		MustLoad(t, testutil.DefaultPath)
}

func field(t *testing.T, pkg *testutil.Package, name string) types.Type {
	t.Helper()

	m, ok := typedesc.Find(typedesc.Members(pkg.LookupType(t, "Order")), name)
	require.True(t, ok, name)

	return m.Type
}

func TestKey(t *testing.T) {
	t.Parallel()

	pkg := load(t)

	assert.Equal(t, "example.com/app.Order", typedesc.Key(pkg.LookupType(t, "Order")))
	assert.Equal(t, "example.com/app.Order", typedesc.Key(pkg.LookupType(t, "Alias")))
	assert.Equal(t, "example.com/app.Line", typedesc.Key(pkg.LookupType(t, "Line")))
	assert.Equal(t, "[]example.com/app.Line", typedesc.Key(field(t, pkg, "Lines")))
	assert.Equal(t, "[4]int", typedesc.Key(field(t, pkg, "Fixed")))
	assert.Equal(t, "map[string]struct{}", typedesc.Key(field(t, pkg, "Tags")))
	assert.Equal(t, "chan example.com/app.Line", typedesc.Key(field(t, pkg, "Events")))
	assert.Equal(t, "*string", typedesc.Key(field(t, pkg, "Note")))
	assert.Equal(t, "example.com/app.Box[int]", typedesc.Key(field(t, pkg, "Box")))
	assert.Equal(t, "github.com/google/uuid.UUID", typedesc.Key(field(t, pkg, "ID")))

	assert.Equal(t, "example.com/app.Order -> example.com/app.Line",
		typedesc.PairKey(pkg.LookupType(t, "Order"), pkg.LookupType(t, "Line")))

	fn, ok := pkg.Pkg.Scope().Lookup("local").(*types.Func)
	require.True(t, ok)

	obj := fn.Scope().Lookup("Local")
	require.NotNil(t, obj)
	assert.Regexp(t, `^example\.com/app\.Local@\d+$`, typedesc.Key(obj.Type()))
}

func TestMembers(t *testing.T) {
	t.Parallel()

	pkg := load(t)
	members := typedesc.Members(pkg.LookupType(t, "Order"))

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}

	// promoted through Base; fields of the embedded pointer are not settable
	assert.Equal(t, []string{
		"Base", "Audit", "Name", "Status", "Tags", "Flags", "Lines", "Fixed", "Prices", "Events", "Note", "Box",
		"ID", "Created",
	}, names)

	created, ok := typedesc.Find(members, "Created")
	require.True(t, ok)
	assert.Equal(t, 1, created.Depth)
	assert.Equal(t, []int{0, 1}, created.Index)
	assert.Equal(t, "time.Time", created.Type.String())

	assert.Empty(t, typedesc.Members(types.Typ[types.Int]))
	assert.Len(t, typedesc.Members(types.NewPointer(pkg.LookupType(t, "Line"))), 1)
}

func TestFind(t *testing.T) {
	t.Parallel()

	members := []typedesc.Member{{Name: "URL"}, {Name: "Url"}, {Name: "Name"}}

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{"Url", "Url", true},
		{"URL", "URL", true},
		{"url", "URL", true},
		{"NAME", "Name", true},
		{"Missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, ok := typedesc.Find(members, tt.name)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, m.Name)
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	pkg := load(t)

	tests := []struct {
		member     string
		collection typedesc.CollectionKind
		family     typedesc.Family
		nullable   bool
		user       bool
	}{
		{member: "Name"},
		{member: "Status"},
		{member: "ID"},
		{member: "Created"},
		{member: "Base", user: true},
		{member: "Audit", nullable: true},
		{member: "Tags", collection: typedesc.CollectionSet, family: typedesc.FamilySet},
		{member: "Flags", collection: typedesc.CollectionSet, family: typedesc.FamilySet},
		{member: "Prices", collection: typedesc.CollectionMap, family: typedesc.FamilyMap},
		{member: "Lines", collection: typedesc.CollectionSlice, family: typedesc.FamilySequence},
		{member: "Fixed", collection: typedesc.CollectionArray, family: typedesc.FamilySequence},
		{member: "Events", collection: typedesc.CollectionChan, family: typedesc.FamilyQueue},
		{member: "Note", nullable: true},
		{member: "Box", user: true},
	}

	for _, tt := range tests {
		t.Run(tt.member, func(t *testing.T) {
			t.Parallel()

			d := typedesc.Describe(field(t, pkg, tt.member))
			assert.Equal(t, tt.collection, d.Collection)
			assert.Equal(t, tt.family, d.Collection.Family())
			assert.Equal(t, tt.nullable, d.Nullable)
			assert.Equal(t, tt.user, d.UserDefined)
		})
	}

	t.Run("elements", func(t *testing.T) {
		t.Parallel()

		lines, ok := typedesc.Describe(field(t, pkg, "Lines")).Elem()
		require.True(t, ok)
		assert.Equal(t, "app.Line", lines.Name)
		assert.Equal(t, typedesc.TypeID{PkgPath: "example.com/app", Name: "Line"}, lines.ID)

		note, ok := typedesc.Describe(field(t, pkg, "Note")).Elem()
		require.True(t, ok)
		assert.Equal(t, "string", note.Name)

		key, ok := typedesc.Describe(field(t, pkg, "Prices")).Key()
		require.True(t, ok)
		assert.Equal(t, "string", key.Name)

		_, ok = typedesc.Describe(field(t, pkg, "Tags")).Key()
		assert.False(t, ok)

		_, ok = typedesc.Describe(field(t, pkg, "ID")).Elem()
		assert.False(t, ok)
	})

	t.Run("exported", func(t *testing.T) {
		t.Parallel()

		assert.True(t, typedesc.Describe(pkg.LookupType(t, "Order")).Exported)
		assert.False(t, typedesc.Describe(pkg.LookupType(t, "internalOrder")).Exported)
	})
}

func ExampleTypeID_String() {
	fmt.Println(typedesc.TypeID{PkgPath: "mapcheck/examples/store", Name: "Order"})
	fmt.Println(typedesc.TypeID{Name: "int"})
	// Output:
	// mapcheck/examples/store.Order
	// int
}
