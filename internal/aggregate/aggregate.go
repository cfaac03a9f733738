package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/docket/internal/filter"
	"github.com/ppiankov/docket/internal/model"
)

// OtherOpinionType buckets cases without an opinion type
const OtherOpinionType = "Other"

// Aggregator derives the term overview and per-justice statistics
type Aggregator struct {
	roster model.Roster
}

// NewAggregator creates an aggregator for the given roster
func NewAggregator(roster model.Roster) *Aggregator {
	return &Aggregator{roster: roster}
}

// JusticeStat counts one justice's bloc appearances
type JusticeStat struct {
	Name            string `json:"name"`
	MajorityCount   int    `json:"majority_count"`
	ConcurringCount int    `json:"concurring_count"`
	DissentCount    int    `json:"dissent_count"`
}

// Split is one vote-split histogram entry
type Split struct {
	Key     string  `json:"key"` // e.g. "6-3"
	For     int     `json:"votes_for"`
	Against int     `json:"votes_against"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"` // Share of the view total
}

// Histogram is the ordered vote-split distribution
type Histogram struct {
	Total  int     `json:"total"`
	Splits []Split `json:"splits"`
}

// Rate is a count over a total with an integer percentage
type Rate struct {
	Count   int    `json:"count"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Formula string `json:"formula"`
}

// Bucket is one decision-type count
type Bucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Overview is the term-level dashboard
type Overview struct {
	TotalCases        int       `json:"total_cases"`
	Unanimous         Rate      `json:"unanimous"`
	MostFrequentSplit *Split    `json:"most_frequent_split,omitempty"`
	Splits            Histogram `json:"splits"`
	DecisionTypes     []Bucket  `json:"decision_types"`
}

// JusticeStats counts majority, concurring and dissent appearances for every
// roster justice, in roster order
func (a *Aggregator) JusticeStats(records []model.CaseRecord) []JusticeStat {
	valid := filter.Valid(records, filter.ViewJustices...)

	stats := make([]JusticeStat, len(a.roster))
	index := make(map[string]int, len(a.roster))
	for i, name := range a.roster {
		stats[i] = JusticeStat{Name: name}
		index[name] = i
	}

	for _, c := range valid {
		for _, name := range uniqueNames(c.MajorityJustices) {
			if i, ok := index[name]; ok {
				stats[i].MajorityCount++
			}
		}
		for _, name := range uniqueNames(c.ConcurringJustices) {
			if i, ok := index[name]; ok {
				stats[i].ConcurringCount++
			}
		}
		for _, name := range uniqueNames(c.DissentingJustices) {
			if i, ok := index[name]; ok {
				stats[i].DissentCount++
			}
		}
	}

	return stats
}

// VoteSplits builds the histogram of votesFor-votesAgainst pairings, ordered
// by votes for descending, then votes against descending
func (a *Aggregator) VoteSplits(records []model.CaseRecord) Histogram {
	valid := filter.Valid(records, filter.ViewSplits...)

	counts := make(map[[2]int]int)
	for _, c := range valid {
		counts[[2]int{*c.VotesFor, *c.VotesAgainst}]++
	}

	splits := make([]Split, 0, len(counts))
	for k, n := range counts {
		splits = append(splits, Split{
			Key:     SplitKey(k[0], k[1]),
			For:     k[0],
			Against: k[1],
			Count:   n,
			Percent: percent(n, len(valid)),
		})
	}

	sort.Slice(splits, func(i, j int) bool {
		if splits[i].For != splits[j].For {
			return splits[i].For > splits[j].For
		}
		return splits[i].Against > splits[j].Against
	})

	return Histogram{Total: len(valid), Splits: splits}
}

// UnanimousRate is the share of titled cases recorded with zero votes
// against. Cases without a votesAgainst tally count toward the total only,
// so the rate shares its denominator with the overview's total cases.
func (a *Aggregator) UnanimousRate(records []model.CaseRecord) Rate {
	valid := filter.Valid(records, filter.ViewOverview...)

	unanimous := 0
	for _, c := range valid {
		if c.VotesAgainst != nil && *c.VotesAgainst == 0 {
			unanimous++
		}
	}

	pct := 0
	if len(valid) > 0 {
		pct = int(math.Round(float64(unanimous) / float64(len(valid)) * 100))
	}

	return Rate{
		Count:   unanimous,
		Total:   len(valid),
		Percent: pct,
		Formula: "round(votes_against == 0 / total * 100)",
	}
}

// DecisionTypes counts cases per opinion type, missing types bucketed as
// Other, ordered by count descending then label
func (a *Aggregator) DecisionTypes(records []model.CaseRecord) []Bucket {
	valid := filter.Valid(records, filter.ViewOverview...)

	counts := make(map[string]int)
	for _, c := range valid {
		label := c.OpinionType
		if label == "" {
			label = OtherOpinionType
		}
		counts[label]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		buckets = append(buckets, Bucket{Label: label, Count: n, Percent: percent(n, len(valid))})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})

	return buckets
}

// Summarize builds the term overview
func (a *Aggregator) Summarize(records []model.CaseRecord) Overview {
	splits := a.VoteSplits(records)

	overview := Overview{
		TotalCases:    filter.Count(records, filter.ViewOverview...),
		Unanimous:     a.UnanimousRate(records),
		Splits:        splits,
		DecisionTypes: a.DecisionTypes(records),
	}
	if top, ok := MostFrequentSplit(splits); ok {
		overview.MostFrequentSplit = &top
	}

	return overview
}

// MostFrequentSplit returns the split with the highest count. Ties go to the
// lexicographically smallest key so the answer never depends on map order.
func MostFrequentSplit(h Histogram) (Split, bool) {
	if len(h.Splits) == 0 {
		return Split{}, false
	}

	best := h.Splits[0]
	for _, s := range h.Splits[1:] {
		if s.Count > best.Count || (s.Count == best.Count && s.Key < best.Key) {
			best = s
		}
	}
	return best, true
}

// SplitKey formats a vote split the way the dataset writes it
func SplitKey(votesFor, votesAgainst int) string {
	return fmt.Sprintf("%d-%d", votesFor, votesAgainst)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// uniqueNames drops repeated names so a data-entry duplicate is counted once
func uniqueNames(b model.Bloc) []string {
	if len(b) < 2 {
		return b
	}
	seen := make(map[string]bool, len(b))
	out := make([]string, 0, len(b))
	for _, n := range b {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
