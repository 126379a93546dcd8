package engine

import (
	"runtime"

	"mapcheck/internal/entry"
	"mapcheck/internal/rewrite"
	"mapcheck/internal/rules"
)

// Config configures an Engine.
type Config struct {
	// APIPackage is the import path of the mapping configuration API.
	APIPackage string `mapstructure:"api_package" yaml:"api_package"`
	// Parallelism bounds the number of declarations analyzed at once.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
	// MaxDepth is the depth suggested for recursive declarations.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// Disabled lists rules by name that are not run.
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`
	// IOPackages are the packages reported as I/O inside mappings.
	IOPackages []string `mapstructure:"io_packages" yaml:"io_packages"`
}

// DefaultConfig returns the configuration used by the analyzer and the CLI
// when nothing is configured.
func DefaultConfig() Config {
	return Config{
		APIPackage:  entry.DefaultPath,
		Parallelism: runtime.GOMAXPROCS(0),
		MaxDepth:    rewrite.DefaultDepth,
		IOPackages:  rules.DefaultIOPackages(),
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()

	if c.APIPackage == "" {
		c.APIPackage = def.APIPackage
	}

	if c.Parallelism <= 0 {
		c.Parallelism = def.Parallelism
	}

	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}

	if c.IOPackages == nil {
		c.IOPackages = def.IOPackages
	}

	return c
}
