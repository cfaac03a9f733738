package agreement

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ppiankov/docket/internal/filter"
	"github.com/ppiankov/docket/internal/model"
)

// Cell is the agreement between a row justice and a column justice
type Cell struct {
	Justice   string  `json:"justice"`
	Agreement float64 `json:"agreement"` // Fraction of the matrix total, 0..1
	Cases     int     `json:"cases"`
	Color     string  `json:"color"`
}

// Row holds one justice's agreement with every roster justice
type Row struct {
	Justice string `json:"justice"`
	Cells   []Cell `json:"cells"`
}

// Matrix is the symmetric pairwise agreement table in roster order
type Matrix struct {
	Justices []string `json:"justices"`
	Total    int      `json:"total"` // Cases with both majority and dissent blocs recorded
	Rows     []Row    `json:"rows"`
}

// Compute builds the agreement matrix. Two justices agree on a case when both
// sit in its majority bloc or both sit in its dissent bloc; concurrences are
// ignored. Every pair shares one denominator: the number of cases with both
// blocs recorded, whether or not the pair voted in them.
func Compute(records []model.CaseRecord, roster model.Roster) Matrix {
	valid := filter.Valid(records, filter.ViewAgreement...)
	total := len(valid)
	n := len(roster)

	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := roster[i], roster[j]
			shared := 0
			for _, c := range valid {
				together := (c.MajorityJustices.Has(a) && c.MajorityJustices.Has(b)) ||
					(c.DissentingJustices.Has(a) && c.DissentingJustices.Has(b))
				if together {
					shared++
				}
			}
			counts[i][j] = shared
			counts[j][i] = shared
		}
	}

	m := Matrix{
		Justices: roster.Names(),
		Total:    total,
		Rows:     make([]Row, n),
	}
	for i, a := range roster {
		row := Row{Justice: a, Cells: make([]Cell, n)}
		for j, b := range roster {
			var cell Cell
			if i == j {
				cell = Cell{Justice: b, Agreement: 1, Cases: total}
			} else {
				cell = Cell{Justice: b, Agreement: fraction(counts[i][j], total), Cases: counts[i][j]}
			}
			cell.Color = Color(cell.Agreement)
			row.Cells[j] = cell
		}
		m.Rows[i] = row
	}

	return m
}

// Lookup returns the cell for justices a and b
func (m Matrix) Lookup(a, b string) (Cell, bool) {
	for _, row := range m.Rows {
		if row.Justice != a {
			continue
		}
		for _, cell := range row.Cells {
			if cell.Justice == b {
				return cell, true
			}
		}
	}
	return Cell{}, false
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Color maps an agreement fraction onto the lightness of a single blue hue,
// from dark (15%) at 0 to bright (60%) at 1
func Color(agreement float64) string {
	if agreement < 0 {
		agreement = 0
	} else if agreement > 1 {
		agreement = 1
	}
	return colorful.Hsl(210, 0.9, 0.15+agreement*0.45).Hex()
}

// Initial returns the column header used for a justice. Kavanaugh gets two
// letters to tell the column apart from Kagan.
func Initial(justice string) string {
	if justice == "Kavanaugh" {
		return "KV"
	}
	if justice == "" {
		return ""
	}
	return justice[:1]
}
