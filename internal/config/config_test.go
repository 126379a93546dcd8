package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/internal/config"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, used, err := config.Load("", t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, config.DefaultConfig(), *cfg)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, ".mapcheck.yaml", `
engine:
  parallelism: 2
  max_depth: 5
  disabled: [performance]
logging:
  level: debug
output:
  format: json
  severity: warning
`)

	cfg, used, err := config.Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".mapcheck.yaml"), used)
	assert.Equal(t, 2, cfg.Engine.Parallelism)
	assert.Equal(t, 5, cfg.Engine.MaxDepth)
	assert.Equal(t, []string{"performance"}, cfg.Engine.Disabled)
	assert.Equal(t, "mapcheck/automap", cfg.Engine.APIPackage)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "warning", cfg.Output.Severity)
	assert.Equal(t, "error", cfg.Output.FailOn)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MAPCHECK_OUTPUT_FORMAT", "yaml")
	t.Setenv("MAPCHECK_ENGINE_MAX_DEPTH", "7")

	cfg, _, err := config.Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 7, cfg.Engine.MaxDepth)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"format", "output:\n  format: html\n"},
		{"color", "output:\n  color: sometimes\n"},
		{"severity", "output:\n  severity: fatal\n"},
		{"fail on", "output:\n  fail_on: fatal\n"},
		{"syntax", "output: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, dir, "bad.yaml", tt.content)

			_, _, err := config.Load(path, "")
			require.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, _, err := config.Load(filepath.Join(dir, "missing.yaml"), "")
		require.Error(t, err)
	})
}
