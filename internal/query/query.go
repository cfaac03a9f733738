package query

import (
	"fmt"
	"strings"

	"github.com/ppiankov/docket/internal/filter"
	"github.com/ppiankov/docket/internal/model"
)

// Mode selects which bloc the chosen justices must share
type Mode string

const (
	ModeAll      Mode = "all"
	ModeMajority Mode = "majority"
	ModeDissent  Mode = "dissent"
)

// Modes lists the accepted modes in display order
var Modes = []Mode{ModeAll, ModeMajority, ModeDissent}

// ParseMode converts user input to a Mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeMajority, ModeDissent:
		return m, nil
	case "":
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, majority or dissent)", s)
	}
}

func (m Mode) phrase() string {
	switch m {
	case ModeMajority:
		return "the majority"
	case ModeDissent:
		return "dissent"
	default:
		return "the majority or in dissent"
	}
}

// Params is one explorer query
type Params struct {
	Justices         []string `json:"justices"`
	Mode             Mode     `json:"mode"`
	ExcludeUnanimous bool     `json:"exclude_unanimous"`
}

// Result holds the matching cases in source order
type Result struct {
	Cases   []*model.CaseRecord `json:"cases"`
	Matched int                 `json:"matched"`
	Total   int                 `json:"total"` // Size of the explorer view
	Percent float64             `json:"percent"`
}

// Engine answers explorer queries over one record collection
type Engine struct {
	valid []*model.CaseRecord
}

// NewEngine filters records down to the explorer view once. Records must
// already be reconciled.
func NewEngine(records []model.CaseRecord) *Engine {
	return &Engine{valid: filter.Valid(records, filter.ViewExplorer...)}
}

// Total returns the explorer view size
func (e *Engine) Total() int {
	return len(e.valid)
}

// Run returns the cases where every selected justice sits in the bloc the
// mode names. An empty selection matches nothing.
func (e *Engine) Run(p Params) Result {
	res := Result{Cases: []*model.CaseRecord{}, Total: len(e.valid)}

	justices := normalize(p.Justices)
	if len(justices) == 0 {
		return res
	}

	// Exclusion does not apply to dissent queries
	exclude := p.ExcludeUnanimous && p.Mode != ModeDissent

	for _, c := range e.valid {
		if exclude && c.IsUnanimous() {
			continue
		}
		if matches(c, justices, p.Mode) {
			res.Cases = append(res.Cases, c)
		}
	}

	res.Matched = len(res.Cases)
	if res.Total > 0 {
		res.Percent = float64(res.Matched) / float64(res.Total) * 100
	}
	return res
}

func matches(c *model.CaseRecord, justices []string, mode Mode) bool {
	switch mode {
	case ModeMajority:
		return c.VotingFor.HasAll(justices)
	case ModeDissent:
		return c.DissentingJustices.HasAll(justices)
	default:
		return c.VotingFor.HasAll(justices) || c.DissentingJustices.HasAll(justices)
	}
}

// normalize drops blank and repeated names, keeping first-seen order
func normalize(justices []string) []string {
	out := make([]string, 0, len(justices))
	seen := make(map[string]bool, len(justices))
	for _, j := range justices {
		j = strings.TrimSpace(j)
		if j == "" || seen[j] {
			continue
		}
		seen[j] = true
		out = append(out, j)
	}
	return out
}

// Summary renders the one-line description of a query result
func Summary(p Params, r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d case(s) found (%.1f%% of total)", r.Matched, r.Percent)

	justices := normalize(p.Justices)
	if len(justices) == 0 {
		b.WriteString(". Select one or more justices.")
		return b.String()
	}

	fmt.Fprintf(&b, " where %s voted together in %s", joinNames(justices), p.Mode.phrase())
	if p.ExcludeUnanimous && p.Mode != ModeDissent {
		b.WriteString(", excluding unanimous decisions")
	}
	b.WriteString(".")
	return b.String()
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
