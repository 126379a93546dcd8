package diagnostic_test

import (
	"fmt"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/diagnostic"
)

func TestNew(t *testing.T) {
	t.Parallel()

	f := diagnostic.New(diagnostic.CodeTypeMismatch, token.NoPos, "Age", "string", "int")
	assert.Equal(t, diagnostic.SeverityError, f.Severity)
	assert.Equal(t, "member Age: cannot map string to int", f.Message)
	assert.Equal(t, []string{"Age", "string", "int"}, f.Args)

	f = f.With(diagnostic.PropVerdict, "incompatible")
	assert.Equal(t, "incompatible", f.Properties[diagnostic.PropVerdict])
}

func TestCatalogTemplates(t *testing.T) {
	t.Parallel()

	for _, e := range diagnostic.Catalog() {
		t.Run(e.Code, func(t *testing.T) {
			t.Parallel()

			n := strings.Count(e.Template, "%s")
			require.Equal(t, n, strings.Count(e.Template, "%"), "only %%s verbs are allowed")

			args := make([]string, n)
			for i := range args {
				args[i] = fmt.Sprintf("arg%d", i)
			}

			f := diagnostic.New(e.Code, token.NoPos, args...)
			assert.NotContains(t, f.Message, "%!")
			assert.Equal(t, e.Severity, f.Severity)
			assert.NotEmpty(t, e.Title)
			assert.NotEmpty(t, strings.TrimSpace(e.Description))
			assert.Contains(t, e.Markdown(), "`"+e.Code+"`")
		})
	}
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	assert.Less(t, diagnostic.SeverityHint, diagnostic.SeverityInfo)
	assert.Less(t, diagnostic.SeverityInfo, diagnostic.SeverityWarning)
	assert.Less(t, diagnostic.SeverityWarning, diagnostic.SeverityError)

	for _, s := range []diagnostic.Severity{diagnostic.SeverityHint, diagnostic.SeverityInfo, diagnostic.SeverityWarning, diagnostic.SeverityError} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back diagnostic.Severity
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	_, err := diagnostic.ParseSeverity("fatal")
	require.Error(t, err)
	assert.Equal(t, "unknown", diagnostic.Severity(42).String())
}

func TestSort(t *testing.T) {
	t.Parallel()

	at := func(file string, offset int, code, member string) diagnostic.Finding {
		return diagnostic.Finding{Code: code, Member: member, Position: token.Position{Filename: file, Offset: offset, Line: 1, Column: 1}}
	}

	findings := []diagnostic.Finding{
		at("b.go", 1, "a", ""),
		at("a.go", 20, "b", "Y"),
		at("a.go", 20, "b", "X"),
		at("a.go", 20, "a", ""),
		at("a.go", 3, "z", ""),
	}

	diagnostic.Sort(findings)

	var got []string
	for _, f := range findings {
		got = append(got, fmt.Sprintf("%s:%d:%s:%s", f.Position.Filename, f.Position.Offset, f.Code, f.Member))
	}

	assert.Equal(t, []string{"a.go:3:z:", "a.go:20:a:", "a.go:20:b:X", "a.go:20:b:Y", "b.go:1:a:"}, got)
	assert.Equal(t, 5, diagnostic.Count(findings, diagnostic.SeverityHint))
}

func ExampleFinding_String() {
	f := diagnostic.New(diagnostic.CodeNullableMismatch, token.NoPos, "Name", "*string", "string")
	f.Position = token.Position{Filename: "mapping.go", Line: 12, Column: 2}
	f.TypePair = "app.User -> app.UserDTO"
	f.Member = "Name"

	fmt.Println(f)
	// Output:
	// mapping.go:12:2 [app.User -> app.UserDTO] Name: error [nullable_mismatch] member Name: cannot map *string to string without a nil check
}
