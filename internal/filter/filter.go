// Package filter selects the case records a view can use.
//
// A record missing a field a view needs is left out of that view, silently.
// Reporting such records is the integrity checker's job, not the views'.
package filter

import "github.com/ppiankov/docket/internal/model"

// Field names a CaseRecord field a view may require
type Field string

const (
	FieldTitle        Field = "caseTitle"
	FieldDate         Field = "date"
	FieldOpinionType  Field = "opinionType"
	FieldMajority     Field = "majorityJustices"
	FieldConcurring   Field = "concurringJustices"
	FieldDissent      Field = "dissentingJustices"
	FieldJusticesFor  Field = "justicesFor"
	FieldVotingFor    Field = "votingFor"
	FieldVotesFor     Field = "votesFor"
	FieldVotesAgainst Field = "votesAgainst"
)

// Requirement sets for each derived view
var (
	ViewOverview  = []Field{FieldTitle}
	ViewSplits    = []Field{FieldTitle, FieldVotesFor, FieldVotesAgainst}
	ViewJustices  = []Field{FieldTitle, FieldMajority, FieldDissent}
	ViewAgreement = []Field{FieldTitle, FieldMajority, FieldDissent}
	ViewExplorer  = []Field{FieldTitle, FieldVotingFor, FieldDissent}
)

// Has reports whether the record carries field with the expected shape
func Has(c *model.CaseRecord, field Field) bool {
	switch field {
	case FieldTitle:
		return c.CaseTitle != ""
	case FieldDate:
		return c.Date != ""
	case FieldOpinionType:
		return c.OpinionType != ""
	case FieldMajority:
		return c.MajorityJustices.Present()
	case FieldConcurring:
		return c.ConcurringJustices.Present()
	case FieldDissent:
		return c.DissentingJustices.Present()
	case FieldJusticesFor:
		return c.JusticesFor.Present()
	case FieldVotingFor:
		return c.VotingFor.Present()
	case FieldVotesFor:
		return c.VotesFor != nil
	case FieldVotesAgainst:
		return c.VotesAgainst != nil
	default:
		return false
	}
}

// Matches reports whether the record carries every required field
func Matches(c *model.CaseRecord, required ...Field) bool {
	for _, f := range required {
		if !Has(c, f) {
			return false
		}
	}
	return true
}

// Valid returns the records carrying every required field, in source order.
// The returned slice shares elements with records; callers must not mutate them.
func Valid(records []model.CaseRecord, required ...Field) []*model.CaseRecord {
	out := make([]*model.CaseRecord, 0, len(records))
	for i := range records {
		if Matches(&records[i], required...) {
			out = append(out, &records[i])
		}
	}
	return out
}

// Count returns how many records carry every required field
func Count(records []model.CaseRecord, required ...Field) int {
	n := 0
	for i := range records {
		if Matches(&records[i], required...) {
			n++
		}
	}
	return n
}
