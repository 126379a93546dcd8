// Package config loads the command line configuration from .mapcheck.yaml
// and MAPCHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/engine"
	"mapcheck/internal/logging"
)

const (
	// FileName is the name of the configuration file looked up in the
	// working directory, without extension.
	FileName = ".mapcheck"
	// EnvPrefix prefixes the environment variables overriding the file.
	EnvPrefix = "MAPCHECK"
)

// Config is the command line configuration.
type Config struct {
	Engine  engine.Config  `mapstructure:"engine" yaml:"engine"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
	Output  Output         `mapstructure:"output" yaml:"output"`
}

// Output contains report settings.
type Output struct {
	// Format is text, json or yaml.
	Format string `mapstructure:"format" yaml:"format"`
	// Color is auto, always or never.
	Color string `mapstructure:"color" yaml:"color"`
	// Severity is the minimum severity reported.
	Severity string `mapstructure:"severity" yaml:"severity"`
	// FailOn is the minimum severity that makes the check fail.
	FailOn string `mapstructure:"fail_on" yaml:"fail_on"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		Engine:  engine.DefaultConfig(),
		Logging: logging.DefaultConfig(),
		Output: Output{
			Format:   "text",
			Color:    "auto",
			Severity: diagnostic.SeverityHint.String(),
			FailOn:   diagnostic.SeverityError.String(),
		},
	}
}

// Load reads the configuration. When path is empty, .mapcheck.yaml in dir
// is used if it exists. It returns the file actually read, if any.
func Load(path, dir string) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("engine.api_package", defaults.Engine.APIPackage)
	v.SetDefault("engine.parallelism", defaults.Engine.Parallelism)
	v.SetDefault("engine.max_depth", defaults.Engine.MaxDepth)
	v.SetDefault("engine.disabled", defaults.Engine.Disabled)
	v.SetDefault("engine.io_packages", defaults.Engine.IOPackages)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)
	v.SetDefault("logging.development", defaults.Logging.Development)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.color", defaults.Output.Color)
	v.SetDefault("output.severity", defaults.Output.Severity)
	v.SetDefault("output.fail_on", defaults.Output.FailOn)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")

		if dir == "" {
			dir = "."
		}

		v.AddConfigPath(dir)
	}

	resolved := ""

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	} else {
		resolved = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolved, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color: unknown mode %q", c.Output.Color)
	}

	if _, err := diagnostic.ParseSeverity(c.Output.Severity); err != nil {
		return fmt.Errorf("output.severity: %w", err)
	}

	if _, err := diagnostic.ParseSeverity(c.Output.FailOn); err != nil {
		return fmt.Errorf("output.fail_on: %w", err)
	}

	return nil
}
