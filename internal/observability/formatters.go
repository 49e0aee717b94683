// Package observability provides logger construction and formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResult outputs a human-readable summary of a persisted result record.
func (p *Printer) PrintResult(rec *types.ResultRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Code:      %s\n", rec.Code))
	sb.WriteString(fmt.Sprintf("Code type: %s\n", rec.CodeType))
	if rec.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run:       %s\n", rec.RunID))
	}
	sb.WriteString("\n")

	if rec.Kind() == types.ArtifactKindFile {
		sb.WriteString(fmt.Sprintf("Reports (%d):\n", len(rec.Reports)))
		for _, r := range rec.Reports {
			sb.WriteString(fmt.Sprintf("  • %s (%s, %s)\n", r.Name, r.ContentType, formatSize(r.SizeBytes)))
		}
		p.printBox("RUN RESULT", strings.TrimRight(sb.String(), "\n"))
		return
	}

	sb.WriteString("Metadata:\n")
	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", k+":", rec.Metadata[k]))
	}

	sb.WriteString(fmt.Sprintf("\nScore rows (%d):\n", len(rec.Data)))
	count := min(len(rec.Data), maxItemsToShow)
	for i := 0; i < count; i++ {
		row := rec.Data[i]
		sb.WriteString(fmt.Sprintf("  • %s  K %s  W %s\n", row.Definition, formatRange(row.Koennen), formatRange(row.Wollen)))
	}
	if len(rec.Data) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.Data)-maxItemsToShow))
	}

	p.printBox("RUN RESULT", strings.TrimRight(sb.String(), "\n"))
}

// PrintError outputs the error record of a failed run.
func (p *Printer) PrintError(rec *types.ErrorRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Code:      %s\n", rec.Code))
	sb.WriteString(fmt.Sprintf("Code type: %s\n", rec.CodeType))
	sb.WriteString(fmt.Sprintf("Kind:      %s\n", rec.Kind))
	sb.WriteString(fmt.Sprintf("Error:     %s", rec.Error))

	p.printBox("RUN FAILED", sb.String())
}

// PrintVariants outputs the registered variants.
func (p *Printer) PrintVariants(list []variants.Variant) {
	for _, v := range list {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Name:        %s\n", v.Name))
		sb.WriteString(fmt.Sprintf("Start URL:   %s\n", v.StartURL))
		if len(v.NavLabels) > 0 {
			sb.WriteString(fmt.Sprintf("Navigation:  %s\n", strings.Join(v.NavLabels, " > ")))
		}
		if len(v.FileTypes) > 0 {
			sb.WriteString("File types:\n")
			for _, ft := range v.FileTypes {
				sb.WriteString(fmt.Sprintf("  • %s\n", ft))
			}
		}
		sb.WriteString(fmt.Sprintf("CSV export:  %t\n", v.IncludesCSVExport))
		sb.WriteString(fmt.Sprintf("Credentials: %s, %s", v.Credentials.UserVar, v.Credentials.PasswordVar))

		p.printBox(string(v.ID), sb.String())
	}
}

func formatRange(r types.ScoreRange) string {
	return fmt.Sprintf("%s-%s/%s", formatScore(r.Min), formatScore(r.Max), formatScore(r.Mid))
}

func formatScore(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
