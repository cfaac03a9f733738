package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/docket/internal/agreement"
)

// Renderer writes term reports to files
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *TermReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *TermReport, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(report)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *TermReport) string {
	var b strings.Builder
	o := report.Overview

	fmt.Fprintf(&b, "# Term report: %s\n\n", report.Name)
	fmt.Fprintf(&b, "- **Source:** `%s`\n", report.Source)
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Records:** %d", report.Load.Records)
	if report.Load.Malformed > 0 {
		fmt.Fprintf(&b, " (%d malformed)", report.Load.Malformed)
	}
	b.WriteString("\n\n")

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total cases | %d |\n", o.TotalCases)
	fmt.Fprintf(&b, "| Unanimous decisions | %d%% (%d of %d) |\n", o.Unanimous.Percent, o.Unanimous.Count, o.Unanimous.Total)
	if o.MostFrequentSplit != nil {
		fmt.Fprintf(&b, "| Most frequent split | %s (%d cases) |\n", o.MostFrequentSplit.Key, o.MostFrequentSplit.Count)
	} else {
		b.WriteString("| Most frequent split | n/a |\n")
	}
	b.WriteString("\n")

	b.WriteString("## Justices\n\n")
	b.WriteString("| Justice | Majority | Concurring | Dissent |\n|---|---:|---:|---:|\n")
	for _, s := range report.Justices {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", s.Name, s.MajorityCount, s.ConcurringCount, s.DissentCount)
	}
	b.WriteString("\n")

	b.WriteString("## Agreement\n\n")
	fmt.Fprintf(&b, "Share of %d cases in which each pair sat together in the majority or in dissent.\n\n", report.Agreement.Total)
	b.WriteString("| |")
	for _, j := range report.Agreement.Justices {
		fmt.Fprintf(&b, " %s |", agreement.Initial(j))
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---:|", len(report.Agreement.Justices)))
	b.WriteString("\n")
	for _, row := range report.Agreement.Rows {
		fmt.Fprintf(&b, "| %s |", row.Justice)
		for _, cell := range row.Cells {
			fmt.Fprintf(&b, " %.0f%% |", cell.Agreement*100)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## Vote splits\n\n")
	b.WriteString("| Split | Cases | Share |\n|---|---:|---:|\n")
	for _, s := range o.Splits.Splits {
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", s.Key, s.Count, s.Percent)
	}
	b.WriteString("\n")

	b.WriteString("## Decision types\n\n")
	b.WriteString("| Type | Cases | Share |\n|---|---:|---:|\n")
	for _, d := range o.DecisionTypes {
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", d.Label, d.Count, d.Percent)
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "\n---\n\n_Report %s generated by docket. Counts describe recorded votes only._\n", report.ID)
	}

	return b.String()
}
