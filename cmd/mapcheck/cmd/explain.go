package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"mapcheck/internal/diagnostic"
	"mapcheck/internal/report"
)

func newExplainCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe a finding code, or list every code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			color := colorFor(s.cfg.Output.Color, w)

			if len(args) == 0 {
				return listCodes(w, color)
			}

			entry, ok := diagnostic.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown code %q, run 'mapcheck explain' for the list", args[0])
			}

			md := entry.Markdown()
			if color {
				renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrapWidth))
				if err != nil {
					return err
				}

				if md, err = renderer.Render(md); err != nil {
					return err
				}
			}

			_, err := io.WriteString(w, md)

			return err
		},
	}
}

const wrapWidth = 80

func listCodes(w io.Writer, color bool) error {
	var b strings.Builder
	for _, e := range diagnostic.Catalog() {
		code := fmt.Sprintf("%-30s", e.Code)
		if color {
			code = report.CodeStyle.Render(code)
		}

		fmt.Fprintf(&b, "%s %-8s %s\n", code, e.Severity, e.Title)
	}

	_, err := io.WriteString(w, b.String())

	return err
}
