// Package loader loads Go packages for the command line host. Every loaded
// package becomes one unit of a single compilation.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"mapcheck/internal/registry"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Options configures Load.
type Options struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string
	// Tags are extra build tags.
	Tags []string
	Log  *zap.Logger
}

// Load loads the packages matching patterns (e.g., "./...",
// "mapcheck/examples/store"). Any package error fails the load.
func Load(ctx context.Context, opts Options, patterns ...string) ([]*registry.Unit, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     opts.Dir,
	}

	if len(opts.Tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.Tags, ",")}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})

	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %w", errors.Join(errs...))
	}

	units := make([]*registry.Unit, 0, len(pkgs))
	for _, pkg := range pkgs {
		log.Debug("package loaded", zap.String("package", pkg.PkgPath), zap.Int("files", len(pkg.Syntax)))

		units = append(units, &registry.Unit{
			Fset:     pkg.Fset,
			Files:    pkg.Syntax,
			Info:     pkg.TypesInfo,
			Pkg:      pkg.Types,
			ReadFile: os.ReadFile,
		})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no packages match %v", patterns)
	}

	return units, nil
}
