// Package cmd contains the mapcheck commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mapcheck/internal/config"
	"mapcheck/internal/logging"
	"mapcheck/internal/report"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// ExitError carries the exit code of a failed check.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// state is shared by the commands of one invocation.
type state struct {
	cfgFile string
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd returns the mapcheck command tree.
func NewRootCmd() *cobra.Command {
	s := &state{}

	root := &cobra.Command{
		Use:   "mapcheck",
		Short: "Check automap mapping configurations",
		Long: report.TitleStyle.Render("mapcheck") + report.SubtitleStyle.Render(" - static checks for automap profiles") + `

mapcheck finds the CreateMap declarations of the loaded packages and reports
type mismatches, missing nested mappings, unbounded recursion, unmapped
members, duplicate declarations, redundant overrides and expensive work
inside member overrides. Most findings come with fixes that can be applied
in place.

` + report.SubtitleStyle.Render("Examples:") + `
  mapcheck check ./...
  mapcheck check --format json ./internal/mapping
  mapcheck check --fix ./...
  mapcheck explain type_mismatch`,
		SilenceUsage:      true,
		PersistentPreRunE: s.init,
		PersistentPostRun: func(*cobra.Command, []string) {
			if s.log != nil {
				_ = s.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&s.cfgFile, "config", "", "config file (default is ./.mapcheck.yaml)")
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd(s), newExplainCmd(s), newVersionCmd())

	return root
}

// Execute runs the command line.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		NewRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		os.Exit(1)
	}
}

func (s *state) init(*cobra.Command, []string) error {
	cfg, _, err := config.Load(s.cfgFile, "")
	if err != nil {
		return err
	}

	if s.verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	s.cfg, s.log = cfg, log

	return nil
}

// colorFor reports whether output written to w is styled.
func colorFor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}

	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mapcheck "+versionString())
		},
	}
}
