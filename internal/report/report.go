// Package report renders findings for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"mapcheck/internal/diagnostic"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "yaml"}

// Options configures Write.
type Options struct {
	Format string
	// Color enables styled text output.
	Color bool
	// BaseDir makes file names relative when set.
	BaseDir string
	// Fixed is the number of findings fixed in place, reported in the
	// summary of the text format.
	Fixed int
}

// Summary counts findings per severity.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Infos    int `json:"infos" yaml:"infos"`
	Hints    int `json:"hints" yaml:"hints"`
	Fixed    int `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// Summarize counts findings per severity.
func Summarize(findings []diagnostic.Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case diagnostic.SeverityError:
			s.Errors++
		case diagnostic.SeverityWarning:
			s.Warnings++
		case diagnostic.SeverityInfo:
			s.Infos++
		case diagnostic.SeverityHint:
			s.Hints++
		}
	}

	return s
}

// Document is the structured report.
type Document struct {
	Findings []diagnostic.Finding `json:"findings" yaml:"findings"`
	Summary  Summary              `json:"summary" yaml:"summary"`
}

// Write renders findings in the requested format.
func Write(w io.Writer, findings []diagnostic.Finding, opts Options) error {
	findings = relative(findings, opts.BaseDir)

	doc := Document{Findings: findings, Summary: Summarize(findings)}
	doc.Summary.Fixed = opts.Fixed

	if doc.Findings == nil {
		doc.Findings = []diagnostic.Finding{}
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(doc); err != nil {
			return err
		}

		return enc.Close()
	case "text", "":
		return writeText(w, doc, opts.Color)
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

func writeText(w io.Writer, doc Document, color bool) error {
	render := func(style lipgloss.Style, s string) string {
		if !color {
			return s
		}

		return style.Render(s)
	}

	var b strings.Builder

	for _, f := range doc.Findings {
		if f.Position.IsValid() {
			b.WriteString(render(CodeStyle, f.Position.String()) + ": ")
		}

		b.WriteString(render(severityStyle(f.Severity), f.Severity.String()))
		b.WriteString(" " + render(SubtitleStyle, "["+f.Code+"]") + " ")

		if f.TypePair != "" {
			b.WriteString(f.TypePair + ": ")
		}

		b.WriteString(f.Message + "\n")
	}

	s := doc.Summary
	if s.Total == 0 {
		b.WriteString(render(SuccessStyle, "no findings") + "\n")
	} else {
		fmt.Fprintf(&b, "%s (%d errors, %d warnings, %d infos, %d hints)\n",
			render(TitleStyle, plural(s.Total, "finding")), s.Errors, s.Warnings, s.Infos, s.Hints)
	}

	if s.Fixed > 0 {
		b.WriteString(render(SuccessStyle, plural(s.Fixed, "finding")+" fixed") + "\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func severityStyle(s diagnostic.Severity) lipgloss.Style {
	switch s {
	case diagnostic.SeverityError:
		return ErrorStyle
	case diagnostic.SeverityWarning:
		return WarningStyle
	case diagnostic.SeverityInfo:
		return CodeStyle
	default:
		return SubtitleStyle
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}

func relative(findings []diagnostic.Finding, base string) []diagnostic.Finding {
	if base == "" {
		return findings
	}

	res := make([]diagnostic.Finding, len(findings))
	for i, f := range findings {
		if rel, err := filepath.Rel(base, f.Position.Filename); err == nil && !strings.HasPrefix(rel, "..") {
			f.Position.Filename = rel
		}

		res[i] = f
	}

	return res
}
