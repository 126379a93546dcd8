package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/engine"
	"mapcheck/internal/loader"
	"mapcheck/internal/report"
)

type checkOptions struct {
	format   string
	color    string
	severity string
	failOn   string
	fix      bool
	dir      string
	tags     []string
}

func newCheckCmd(s *state) *cobra.Command {
	o := &checkOptions{}

	c := &cobra.Command{
		Use:   "check [packages]",
		Short: "Check the mapping declarations of packages",
		Long: `Load the packages, analyze every CreateMap declaration and report the
findings. Without arguments the packages below the current directory are
checked.

Examples:
  mapcheck check
  mapcheck check --format yaml ./internal/...
  mapcheck check --fix --severity warning ./...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runCheck(cmd, o, args)
		},
	}

	c.Flags().StringVarP(&o.format, "format", "f", "", "output format ("+strings.Join(report.Formats, ", ")+")")
	c.Flags().StringVar(&o.color, "color", "", "color mode (auto, always, never)")
	c.Flags().StringVar(&o.severity, "severity", "", "minimum severity reported (hint, info, warning, error)")
	c.Flags().StringVar(&o.failOn, "fail-on", "", "minimum severity that fails the check")
	c.Flags().BoolVar(&o.fix, "fix", false, "apply the first fix of every reported finding in place")
	c.Flags().StringVarP(&o.dir, "dir", "C", "", "directory the package patterns are resolved in")
	c.Flags().StringSliceVar(&o.tags, "tags", nil, "build tags")

	return c
}

func (s *state) runCheck(cmd *cobra.Command, o *checkOptions, args []string) error {
	out := s.cfg.Output
	if o.format != "" {
		out.Format = o.format
	}

	if o.color != "" {
		out.Color = o.color
	}

	if o.severity != "" {
		out.Severity = o.severity
	}

	if o.failOn != "" {
		out.FailOn = o.failOn
	}

	if !slices.Contains(report.Formats, out.Format) {
		return fmt.Errorf("unknown format %q", out.Format)
	}

	minSeverity, err := diagnostic.ParseSeverity(out.Severity)
	if err != nil {
		return err
	}

	failOn, err := diagnostic.ParseSeverity(out.FailOn)
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	res, err := s.analyze(cmd, o, patterns)
	if err != nil {
		return err
	}

	fixed := 0

	if o.fix {
		set, err := res.FixAll(minSeverity)
		if err != nil {
			return err
		}

		if err := writeFiles(set.Files); err != nil {
			return err
		}

		s.log.Info("fixes applied", zap.Int("applied", set.Applied), zap.Int("skipped", set.Skipped))

		fixed = set.Applied

		if len(set.Files) > 0 {
			if res, err = s.analyze(cmd, o, patterns); err != nil {
				return err
			}
		}
	}

	var findings []diagnostic.Finding
	for _, f := range res.Findings {
		if f.Severity >= minSeverity {
			findings = append(findings, f)
		}
	}

	base, _ := os.Getwd()
	if o.dir != "" {
		base, _ = filepath.Abs(o.dir)
	}

	w := cmd.OutOrStdout()
	if err := report.Write(w, findings, report.Options{
		Format:  out.Format,
		Color:   colorFor(out.Color, w),
		BaseDir: base,
		Fixed:   fixed,
	}); err != nil {
		return err
	}

	if n := diagnostic.Count(findings, failOn); n > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d findings at or above %s", n, failOn)}
	}

	return nil
}

func (s *state) analyze(cmd *cobra.Command, o *checkOptions, patterns []string) (*engine.Result, error) {
	ctx := cmd.Context()

	units, err := loader.Load(ctx, loader.Options{Dir: o.dir, Tags: o.tags, Log: s.log}, patterns...)
	if err != nil {
		return nil, err
	}

	return engine.New(s.cfg.Engine, engine.WithLogger(s.log)).Run(ctx, units, nil)
}

func writeFiles(files map[string][]byte) error {
	for name, src := range files {
		info, err := os.Stat(name)
		if err != nil {
			return err
		}

		if err := os.WriteFile(name, src, info.Mode().Perm()); err != nil {
			return fmt.Errorf("write fix: %w", err)
		}
	}

	return nil
}
