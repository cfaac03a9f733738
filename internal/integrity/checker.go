// Package integrity audits a case collection for data-quality problems.
//
// The audit is read-only and advisory. Nothing it finds changes what the
// views compute; the views already skip records they cannot use.
package integrity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/aggregate"
	"github.com/ppiankov/docket/internal/config"
	"github.com/ppiankov/docket/internal/filter"
	"github.com/ppiankov/docket/internal/model"
)

// MissingOpinionType labels cases without an opinion type
const MissingOpinionType = "Missing"

// Completeness counts records missing each audited field
type Completeness struct {
	MissingTitle       int `json:"missing_title"`
	MissingJusticesFor int `json:"missing_justices_for"`
	MissingDissent     int `json:"missing_dissenting_justices"`
	MissingDate        int `json:"missing_date"`
	MissingOpinionType int `json:"missing_opinion_type"`
}

// Coverage is how many usable cases a justice appears in
type Coverage struct {
	Justice string  `json:"justice"`
	Cases   int     `json:"cases"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Low     bool    `json:"low"`
}

// VoteCountIssue is a case whose tallies disagree with its blocs, or whose
// bench size is impossible
type VoteCountIssue struct {
	Case         string   `json:"case"`
	For          int      `json:"for"`
	Against      int      `json:"against"`
	Concurring   int      `json:"concurring"`
	VotesFor     *int     `json:"votes_for"`
	VotesAgainst *int     `json:"votes_against"`
	Reasons      []string `json:"reasons"`
}

// DateIssue is a missing, unparsable or out-of-range decision date
type DateIssue struct {
	Case   string `json:"case"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// Example is one case a justice is missing from
type Example struct {
	Case     string   `json:"case"`
	Date     string   `json:"date"`
	Justices []string `json:"justices"`
}

// MissingJustice lists usable cases a justice does not appear in
type MissingJustice struct {
	Justice  string    `json:"justice"`
	Count    int       `json:"count"`
	Examples []Example `json:"examples"`
}

// Drift is a case whose stored justicesFor differs from majority ∪ concurring
type Drift struct {
	Case    string     `json:"case"`
	Stored  model.Bloc `json:"stored"`
	Derived model.Bloc `json:"derived"`
}

// Report is the full audit result
type Report struct {
	Total               int                `json:"total"`
	Usable              int                `json:"usable"`
	CompletenessPercent float64            `json:"completeness_percent"`
	Completeness        Completeness       `json:"completeness"`
	Coverage            []Coverage         `json:"coverage"`
	CoverageThreshold   float64            `json:"coverage_threshold"`
	VoteCounts          []VoteCountIssue   `json:"vote_counts"`
	UnknownJustices     []string           `json:"unknown_justices"`
	Duplicates          []string           `json:"duplicates"`
	OpinionTypes        []aggregate.Bucket `json:"opinion_types"`
	Dates               []DateIssue        `json:"dates"`
	MinYear             int                `json:"min_year"`
	MaxYear             int                `json:"max_year"`
	MissingJustices     []MissingJustice   `json:"missing_justices"`
	Drift               []Drift            `json:"drift"`
	TotalIssues         int                `json:"total_issues"`
	Findings            []model.Finding    `json:"findings"`
}

// HasIssues reports whether any section found a problem
func (r *Report) HasIssues() bool {
	return r.TotalIssues > 0
}

// presence is the completeness view of a record
type presence struct {
	CaseTitle          string     `validate:"required"`
	JusticesFor        model.Bloc `validate:"required"`
	DissentingJustices model.Bloc `validate:"required"`
	Date               string     `validate:"required"`
	OpinionType        string     `validate:"required"`
}

// bench is the membership view of a record
type bench struct {
	Justices []string `validate:"dive,roster"`
}

// Checker audits case collections against a roster
type Checker struct {
	roster   model.Roster
	cfg      config.IntegrityConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewChecker creates a checker for roster with the given thresholds
func NewChecker(roster model.Roster, cfg config.IntegrityConfig, logger *zap.Logger) (*Checker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := validator.New()
	err := v.RegisterValidation("roster", func(fl validator.FieldLevel) bool {
		return roster.Contains(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register roster validation: %w", err)
	}

	return &Checker{
		roster:   roster,
		cfg:      cfg,
		validate: v,
		logger:   logger,
	}, nil
}

// Check runs every audit section over records
func (c *Checker) Check(records []model.CaseRecord) (*Report, error) {
	r := &Report{
		Total:             len(records),
		CoverageThreshold: c.cfg.CoverageWarnPercent,
		MinYear:           c.cfg.MinYear,
		MaxYear:           c.cfg.MaxYear,
	}

	if err := c.checkCompleteness(records, r); err != nil {
		return nil, err
	}

	valid := filter.Valid(records, filter.ViewExplorer...)
	r.Usable = len(valid)
	if r.Total > 0 {
		r.CompletenessPercent = float64(r.Usable) / float64(r.Total) * 100
	}

	c.checkCoverage(valid, r)
	c.checkVoteCounts(valid, r)
	if err := c.checkUnknownJustices(valid, r); err != nil {
		return nil, err
	}
	c.checkDuplicates(valid, r)
	c.checkOpinionTypes(valid, r)
	c.checkDates(valid, r)
	c.checkMissingJustices(valid, r)
	c.checkDrift(valid, r)

	r.TotalIssues = r.Completeness.MissingTitle +
		r.Completeness.MissingJusticesFor +
		r.Completeness.MissingDissent +
		len(r.VoteCounts) +
		len(r.UnknownJustices) +
		len(r.Duplicates) +
		len(r.Dates) +
		len(r.Drift)

	c.logger.Debug("integrity check complete",
		zap.Int("records", r.Total),
		zap.Int("usable", r.Usable),
		zap.Int("issues", r.TotalIssues),
		zap.Int("findings", len(r.Findings)))

	return r, nil
}

// seated returns every name recorded on a case across the majority (or the
// stored justicesFor when no majority bloc exists), dissent and concurring
// blocs, duplicates included
func seated(rec *model.CaseRecord) []string {
	if rec.MajorityJustices.Present() {
		return rec.AllJustices()
	}
	all := make([]string, 0, len(rec.JusticesFor)+len(rec.DissentingJustices)+len(rec.ConcurringJustices))
	all = append(all, rec.JusticesFor...)
	all = append(all, rec.DissentingJustices...)
	all = append(all, rec.ConcurringJustices...)
	return all
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Checker) checkCompleteness(records []model.CaseRecord, r *Report) error {
	missing := map[string][]string{}

	for i := range records {
		rec := &records[i]
		err := c.validate.Struct(presence{
			CaseTitle:          rec.CaseTitle,
			JusticesFor:        rec.VotingFor,
			DissentingJustices: rec.DissentingJustices,
			Date:               rec.Date,
			OpinionType:        rec.OpinionType,
		})
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate record %d: %w", i, err)
		}
		for _, fe := range verrs {
			missing[fe.Field()] = append(missing[fe.Field()], label(rec, i))
		}
	}

	r.Completeness = Completeness{
		MissingTitle:       len(missing["CaseTitle"]),
		MissingJusticesFor: len(missing["JusticesFor"]),
		MissingDissent:     len(missing["DissentingJustices"]),
		MissingDate:        len(missing["Date"]),
		MissingOpinionType: len(missing["OpinionType"]),
	}

	fields := []struct {
		name     string
		key      string
		severity model.Severity
	}{
		{"caseTitle", "CaseTitle", model.SeverityCritical},
		{"justicesFor", "JusticesFor", model.SeverityCritical},
		{"dissentingJustices", "DissentingJustices", model.SeverityCritical},
		{"date", "Date", model.SeverityInfo},
		{"opinionType", "OpinionType", model.SeverityInfo},
	}
	for _, f := range fields {
		cases := missing[f.key]
		if len(cases) == 0 {
			continue
		}
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingMissingField,
			Severity:    f.severity,
			Description: fmt.Sprintf("%d case(s) without %s", len(cases), f.name),
			Cases:       cases,
			Data:        map[string]any{"field": f.name, "count": len(cases)},
		})
	}
	return nil
}

// label names a record in findings, falling back to its position
func label(rec *model.CaseRecord, i int) string {
	if rec.CaseTitle != "" {
		return rec.CaseTitle
	}
	return fmt.Sprintf("#%d", i)
}

func (c *Checker) checkCoverage(valid []*model.CaseRecord, r *Report) {
	for _, justice := range c.roster {
		n := 0
		for _, rec := range valid {
			if contains(seated(rec), justice) {
				n++
			}
		}

		cov := Coverage{Justice: justice, Cases: n, Total: len(valid)}
		if len(valid) > 0 {
			cov.Percent = float64(n) / float64(len(valid)) * 100
		}
		cov.Low = cov.Percent < c.cfg.CoverageWarnPercent
		r.Coverage = append(r.Coverage, cov)

		if cov.Low {
			r.Findings = append(r.Findings, model.Finding{
				Type:     model.FindingCoverage,
				Severity: model.SeverityWarning,
				Description: fmt.Sprintf("%s appears in %d/%d cases (%.1f%%), below %.0f%%",
					justice, n, len(valid), cov.Percent, c.cfg.CoverageWarnPercent),
				Data: map[string]any{"justice": justice, "cases": n, "total": len(valid), "percent": cov.Percent},
			})
		}
	}
}

func (c *Checker) checkVoteCounts(valid []*model.CaseRecord, r *Report) {
	var titles []string
	for _, rec := range valid {
		forCount := len(rec.VotingFor)
		against := len(rec.DissentingJustices)
		total := len(seated(rec))

		var reasons []string
		if rec.VotesFor != nil && *rec.VotesFor != forCount {
			reasons = append(reasons, fmt.Sprintf("votesFor %d != %d justices for", *rec.VotesFor, forCount))
		}
		if rec.VotesAgainst != nil && *rec.VotesAgainst != against {
			reasons = append(reasons, fmt.Sprintf("votesAgainst %d != %d dissenting", *rec.VotesAgainst, against))
		}
		if total == 0 {
			reasons = append(reasons, "no justices recorded")
		} else if total > model.FullBench {
			reasons = append(reasons, fmt.Sprintf("%d justices recorded", total))
		}
		if len(reasons) == 0 {
			continue
		}

		r.VoteCounts = append(r.VoteCounts, VoteCountIssue{
			Case:         rec.CaseTitle,
			For:          forCount,
			Against:      against,
			Concurring:   len(rec.ConcurringJustices),
			VotesFor:     rec.VotesFor,
			VotesAgainst: rec.VotesAgainst,
			Reasons:      reasons,
		})
		titles = append(titles, rec.CaseTitle)
	}

	if len(titles) > 0 {
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingVoteCount,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("%d case(s) with inconsistent vote counts", len(titles)),
			Cases:       titles,
		})
	}
}

func (c *Checker) checkUnknownJustices(valid []*model.CaseRecord, r *Report) error {
	seen := map[string]bool{}
	var cases []string

	for _, rec := range valid {
		err := c.validate.Struct(bench{Justices: seated(rec)})
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate %s: %w", rec.CaseTitle, err)
		}
		for _, fe := range verrs {
			name, _ := fe.Value().(string)
			if !seen[name] {
				seen[name] = true
				r.UnknownJustices = append(r.UnknownJustices, name)
			}
		}
		cases = append(cases, rec.CaseTitle)
	}

	if len(r.UnknownJustices) > 0 {
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingUnknownJustice,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("%d unrecognized justice name(s)", len(r.UnknownJustices)),
			Cases:       cases,
			Data:        map[string]any{"names": r.UnknownJustices},
		})
	}
	return nil
}

func (c *Checker) checkDuplicates(valid []*model.CaseRecord, r *Report) {
	for _, rec := range valid {
		names := seated(rec)
		unique := make(map[string]bool, len(names))
		for _, n := range names {
			unique[n] = true
		}
		if len(unique) != len(names) {
			r.Duplicates = append(r.Duplicates, rec.CaseTitle)
		}
	}

	if len(r.Duplicates) > 0 {
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingDuplicateJustice,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("%d case(s) list a justice more than once", len(r.Duplicates)),
			Cases:       r.Duplicates,
		})
	}
}

func (c *Checker) checkOpinionTypes(valid []*model.CaseRecord, r *Report) {
	counts := map[string]int{}
	for _, rec := range valid {
		t := rec.OpinionType
		if t == "" {
			t = MissingOpinionType
		}
		counts[t]++
	}

	for t, n := range counts {
		b := aggregate.Bucket{Label: t, Count: n}
		if len(valid) > 0 {
			b.Percent = float64(n) / float64(len(valid)) * 100
		}
		r.OpinionTypes = append(r.OpinionTypes, b)
	}
	sort.Slice(r.OpinionTypes, func(i, j int) bool {
		if r.OpinionTypes[i].Count != r.OpinionTypes[j].Count {
			return r.OpinionTypes[i].Count > r.OpinionTypes[j].Count
		}
		return r.OpinionTypes[i].Label < r.OpinionTypes[j].Label
	})

	if len(r.OpinionTypes) > 0 {
		dist := make(map[string]any, len(counts))
		for t, n := range counts {
			dist[t] = n
		}
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingOpinionTypes,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%d opinion type(s)", len(r.OpinionTypes)),
			Data:        dist,
		})
	}
}

func (c *Checker) checkDates(valid []*model.CaseRecord, r *Report) {
	var titles []string
	for _, rec := range valid {
		var reason string
		if rec.Date == "" {
			reason = "missing"
		} else if t, ok := rec.DecidedOn(); !ok {
			reason = "unparsable"
		} else if y := t.Year(); y < c.cfg.MinYear || y > c.cfg.MaxYear {
			reason = fmt.Sprintf("year %d outside %d-%d", y, c.cfg.MinYear, c.cfg.MaxYear)
		} else {
			continue
		}
		r.Dates = append(r.Dates, DateIssue{Case: rec.CaseTitle, Date: rec.Date, Reason: reason})
		titles = append(titles, rec.CaseTitle)
	}

	if len(titles) > 0 {
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingDate,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d case(s) with invalid or suspicious dates", len(titles)),
			Cases:       titles,
		})
	}
}

func (c *Checker) checkMissingJustices(valid []*model.CaseRecord, r *Report) {
	for _, justice := range c.roster {
		mj := MissingJustice{Justice: justice}
		for _, rec := range valid {
			names := seated(rec)
			if contains(names, justice) {
				continue
			}
			mj.Count++
			if len(mj.Examples) < c.cfg.ExampleLimit {
				mj.Examples = append(mj.Examples, Example{Case: rec.CaseTitle, Date: rec.Date, Justices: names})
			}
		}
		if mj.Count == 0 {
			continue
		}
		r.MissingJustices = append(r.MissingJustices, mj)

		examples := make([]string, 0, len(mj.Examples))
		for _, ex := range mj.Examples {
			examples = append(examples, ex.Case)
		}
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingMissingJustice,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%s missing from %d case(s)", justice, mj.Count),
			Cases:       examples,
			Data:        map[string]any{"justice": justice, "count": mj.Count},
		})
	}
}

func (c *Checker) checkDrift(valid []*model.CaseRecord, r *Report) {
	var titles []string
	for _, rec := range valid {
		if !rec.MajorityJustices.Present() {
			continue
		}
		derived := model.Union(rec.MajorityJustices, rec.ConcurringJustices)
		if rec.JusticesFor.Present() && model.SameMembers(rec.JusticesFor, derived) {
			continue
		}
		r.Drift = append(r.Drift, Drift{Case: rec.CaseTitle, Stored: rec.JusticesFor, Derived: derived})
		titles = append(titles, rec.CaseTitle)
	}

	if len(titles) > 0 {
		r.Findings = append(r.Findings, model.Finding{
			Type:        model.FindingReconcileDrift,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d case(s) whose stored justicesFor differs from majority plus concurring; run docket reconcile", len(titles)),
			Cases:       titles,
		})
	}
}
