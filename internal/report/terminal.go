package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/docket/internal/aggregate"
	"github.com/ppiankov/docket/internal/agreement"
	"github.com/ppiankov/docket/internal/query"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fafff"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// OverviewText renders the term overview
func OverviewText(o aggregate.Overview) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Term overview"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Total cases:          %d\n", o.TotalCases)
	fmt.Fprintf(&b, "  Unanimous decisions:  %d%% %s\n", o.Unanimous.Percent,
		mutedStyle.Render(fmt.Sprintf("(%d of %d)", o.Unanimous.Count, o.Unanimous.Total)))
	if o.MostFrequentSplit != nil {
		fmt.Fprintf(&b, "  Most frequent split:  %s %s\n", o.MostFrequentSplit.Key,
			mutedStyle.Render(fmt.Sprintf("(%d cases)", o.MostFrequentSplit.Count)))
	} else {
		fmt.Fprintf(&b, "  Most frequent split:  %s\n", mutedStyle.Render("n/a"))
	}
	return b.String()
}

// JusticeTable renders per-justice bloc counts
func JusticeTable(stats []aggregate.JusticeStat) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.MajorityCount),
			strconv.Itoa(s.ConcurringCount),
			strconv.Itoa(s.DissentCount),
		})
	}

	return newTable("Justice", "Majority", "Concurring", "Dissent").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		}).
		String()
}

// SplitTable renders the vote-split histogram
func SplitTable(h aggregate.Histogram) string {
	rows := make([][]string, 0, len(h.Splits))
	for _, s := range h.Splits {
		rows = append(rows, []string{s.Key, strconv.Itoa(s.Count), fmt.Sprintf("%.1f%%", s.Percent)})
	}

	return newTable("Split", "Cases", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return cellStyle
			}
			return numberStyle
		}).
		String()
}

// DecisionTypeTable renders the decision-type distribution
func DecisionTypeTable(buckets []aggregate.Bucket) string {
	rows := make([][]string, 0, len(buckets))
	for _, d := range buckets {
		rows = append(rows, []string{d.Label, strconv.Itoa(d.Count), fmt.Sprintf("%.1f%%", d.Percent)})
	}

	return newTable("Type", "Cases", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return cellStyle
			}
			return numberStyle
		}).
		String()
}

// MatrixTable renders the agreement matrix with each cell shaded by its
// agreement color
func MatrixTable(m agreement.Matrix) string {
	headers := make([]string, 0, len(m.Justices)+1)
	headers = append(headers, "")
	for _, j := range m.Justices {
		headers = append(headers, agreement.Initial(j))
	}

	rows := make([][]string, 0, len(m.Rows))
	for _, row := range m.Rows {
		r := make([]string, 0, len(row.Cells)+1)
		r = append(r, row.Justice)
		for _, cell := range row.Cells {
			r = append(r, fmt.Sprintf("%.0f%%", cell.Agreement*100))
		}
		rows = append(rows, r)
	}

	t := newTable(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Align(lipgloss.Center)
			}
			if col == 0 || row >= len(m.Rows) || col-1 >= len(m.Rows[row].Cells) {
				return cellStyle
			}
			return numberStyle.
				Background(lipgloss.Color(m.Rows[row].Cells[col-1].Color)).
				Foreground(lipgloss.Color("#ffffff"))
		})

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Shared denominator: %d cases with majority and dissent recorded", m.Total)))
	return b.String()
}

// CaseList renders an explorer query result
func CaseList(p query.Params, r query.Result) string {
	var b strings.Builder
	b.WriteString(query.Summary(p, r))
	b.WriteString("\n")

	for _, c := range r.Cases {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(c.CaseTitle))
		b.WriteString("\n")
		if c.Date != "" {
			fmt.Fprintf(&b, "  Date:        %s\n", c.Date)
		}
		fmt.Fprintf(&b, "  For:         %s\n", joinOrNone(c.VotingFor))
		if len(c.ConcurringJustices) > 0 {
			fmt.Fprintf(&b, "  Concurring:  %s\n", strings.Join(c.ConcurringJustices, ", "))
		}
		fmt.Fprintf(&b, "  Dissenting:  %s\n", joinOrNone(c.DissentingJustices))
		if c.LinkURL != "" {
			fmt.Fprintf(&b, "  Opinion:     %s\n", mutedStyle.Render(c.LinkURL))
		}
	}
	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}
