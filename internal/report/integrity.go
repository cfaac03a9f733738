package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/docket/internal/integrity"
)

const banner = "═══════════════════════════════════════════════════════════"

// Listing caps, matching what fits on one screen per section
const (
	maxVoteCountLines = 10
	maxDuplicateLines = 5
	maxDateLines      = 5
)

// WriteIntegrityJSON writes the audit as indented JSON
func WriteIntegrityJSON(w io.Writer, r *integrity.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode integrity report: %w", err)
	}
	return nil
}

// WriteIntegrityText writes the human-readable audit
func WriteIntegrityText(w io.Writer, source string, r *integrity.Report) error {
	p := &printer{w: w}

	p.line("")
	p.line(banner)
	p.line("  Docket Data Integrity Check")
	p.line(banner)
	p.line("")
	p.printf("  Source:        %s\n", source)
	p.printf("  Total cases:   %d\n", r.Total)
	p.line("")

	p.section("1. BASIC DATA COMPLETENESS")
	c := r.Completeness
	p.printf("%s Cases without title: %d\n", mark(c.MissingTitle == 0), c.MissingTitle)
	p.printf("%s Cases without justicesFor: %d\n", mark(c.MissingJusticesFor == 0), c.MissingJusticesFor)
	p.printf("%s Cases without dissentingJustices: %d\n", mark(c.MissingDissent == 0), c.MissingDissent)
	p.printf("%s Cases without date: %d\n", mark(c.MissingDate == 0), c.MissingDate)
	p.printf("%s Cases without opinionType: %d\n", mark(c.MissingOpinionType == 0), c.MissingOpinionType)
	p.printf("✓ Valid cases for analysis: %d\n", r.Usable)

	p.section("2. JUSTICE COVERAGE ANALYSIS")
	for _, cov := range r.Coverage {
		status := "✓"
		if cov.Low {
			status = "⚠"
		}
		p.printf("%s %s: %d/%d cases (%.1f%%)\n", status, cov.Justice, cov.Cases, cov.Total, cov.Percent)
	}

	p.section("3. VOTE COUNT CONSISTENCY")
	p.printf("%s Cases with inconsistent vote counts: %d\n", mark(len(r.VoteCounts) == 0), len(r.VoteCounts))
	if len(r.VoteCounts) <= maxVoteCountLines {
		for _, v := range r.VoteCounts {
			p.printf("  • %s: For:%d Against:%d Concur:%d (votesFor:%s votesAgainst:%s)\n",
				v.Case, v.For, v.Against, v.Concurring, tally(v.VotesFor), tally(v.VotesAgainst))
		}
	}

	p.section("4. UNKNOWN JUSTICES")
	if len(r.UnknownJustices) > 0 {
		p.printf("✗ Unknown justices found: %s\n", strings.Join(r.UnknownJustices, ", "))
	} else {
		p.line("✓ All justices are recognized")
	}

	p.section("5. DUPLICATE JUSTICES IN SAME CASE")
	p.printf("%s Cases with duplicate justices: %d\n", mark(len(r.Duplicates) == 0), len(r.Duplicates))
	if len(r.Duplicates) <= maxDuplicateLines {
		for _, d := range r.Duplicates {
			p.printf("  • %s\n", d)
		}
	}

	p.section("6. OPINION TYPE DISTRIBUTION")
	for _, t := range r.OpinionTypes {
		p.printf("  %s: %d cases (%.1f%%)\n", t.Label, t.Count, t.Percent)
	}

	p.section("7. DATE ANALYSIS")
	p.printf("%s Cases with invalid/suspicious dates: %d\n", mark(len(r.Dates) == 0), len(r.Dates))
	if len(r.Dates) <= maxDateLines {
		for _, d := range r.Dates {
			p.printf("  • %s: %s (%s)\n", d.Case, d.Date, d.Reason)
		}
	}

	p.section("8. DETAILED MISSING JUSTICE ANALYSIS")
	for _, mj := range r.MissingJustices {
		p.printf("\n%s missing from %d cases:\n", mj.Justice, mj.Count)
		for _, ex := range mj.Examples {
			p.printf("  • %s (%s) - Justices: %s\n", ex.Case, ex.Date, strings.Join(ex.Justices, ", "))
		}
		if more := mj.Count - len(mj.Examples); more > 0 {
			p.printf("  ... and %d more cases\n", more)
		}
	}

	p.section("9. RECONCILIATION DRIFT")
	p.printf("%s Cases whose justicesFor differs from majority + concurring: %d\n", mark(len(r.Drift) == 0), len(r.Drift))
	for _, d := range r.Drift {
		p.printf("  • %s: stored [%s], derived [%s]\n", d.Case, strings.Join(d.Stored, ", "), strings.Join(d.Derived, ", "))
	}

	p.line("")
	p.line(banner)
	p.line("  Summary")
	p.line(banner)
	p.line("")
	if r.HasIssues() {
		p.printf("✗ Found %d potential data integrity issues.\n", r.TotalIssues)
	} else {
		p.line("✓ No major data integrity issues found!")
	}
	p.printf("  Data completeness: %.1f%%\n", r.CompletenessPercent)
	p.printf("  Usable cases:      %d/%d\n", r.Usable, r.Total)
	p.line("")

	return p.err
}

// printer remembers the first write error so the report body stays linear
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) section(title string) {
	p.line("")
	p.line(title)
	p.line(strings.Repeat("-", len(title)))
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func tally(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}
