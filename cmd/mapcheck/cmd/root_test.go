package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mapcheck dev (built from source)\n", out)
}

func TestExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "list",
			args: []string{"explain"},
			want: []string{diagnostic.CodeTypeMismatch, diagnostic.CodeConverterNilHandling, "error"},
		},
		{
			name: "code",
			args: []string{"explain", diagnostic.CodeRecursiveMapping},
			want: []string{"`" + diagnostic.CodeRecursiveMapping + "`", "default severity"},
		},
		{
			name:    "unknown",
			args:    []string{"explain", "no_such_code"},
			wantErr: `unknown code "no_such_code"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "check", "--dir", "../../..", "--format", "json", "--fail-on", "error", "./examples/mappings")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, len(doc.Findings), doc.Summary.Total)
	assert.Positive(t, doc.Summary.Errors)

	for _, f := range doc.Findings {
		assert.NotContains(t, f.Position.Filename, "../", "file names are relative to --dir")
	}
}

func TestCheckSeverityFilter(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "check", "--dir", "../../..", "--format", "yaml", "--severity", "error", "--fail-on", "error", "./examples/store")
	require.NoError(t, err)
	assert.Contains(t, out, "findings: []")
}

func TestCheckFlagErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"format", []string{"check", "--format", "xml"}, `unknown format "xml"`},
		{"severity", []string{"check", "--severity", "loud"}, "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestColorFor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	assert.True(t, colorFor("always", &buf))
	assert.False(t, colorFor("never", &buf))
	assert.False(t, colorFor("auto", &buf))
}
