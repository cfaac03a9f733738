package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// CaseRecord represents one adjudicated case from the dataset
type CaseRecord struct {
	CaseTitle          string `json:"caseTitle,omitempty"`
	Date               string `json:"date,omitempty"`
	OpinionType        string `json:"opinionType,omitempty"`
	MajorityJustices   Bloc   `json:"majorityJustices,omitzero"`
	ConcurringJustices Bloc   `json:"concurringJustices,omitzero"`
	DissentingJustices Bloc   `json:"dissentingJustices,omitzero"`
	JusticesFor        Bloc   `json:"justicesFor,omitzero"`
	VotesFor           *int   `json:"votesFor,omitempty"`
	VotesAgainst       *int   `json:"votesAgainst,omitempty"`
	LinkURL            string `json:"linkUrl,omitempty"`
	FullText           string `json:"fullText,omitempty"`

	// VotingFor is the canonical "voted for the outcome" bloc, filled by Reconcile.
	VotingFor Bloc `json:"-"`
}

// Bloc is a set of justice names. A nil Bloc means the field was absent
// or not an array of strings; an empty non-nil Bloc is present and empty.
type Bloc []string

// Present reports whether the bloc was supplied with the expected shape
func (b Bloc) Present() bool {
	return b != nil
}

// Has reports whether name is a member of the bloc
func (b Bloc) Has(name string) bool {
	for _, n := range b {
		if n == name {
			return true
		}
	}
	return false
}

// HasAll reports whether every name is a member of the bloc
func (b Bloc) HasAll(names []string) bool {
	for _, n := range names {
		if !b.Has(n) {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts arrays of strings; any other shape decodes to nil
func (b *Bloc) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil || names == nil {
		*b = nil
		return nil
	}
	*b = names
	return nil
}

// Union returns the deduplicated union of blocs, keeping first-seen order.
// The result is nil only when every input is nil.
func Union(blocs ...Bloc) Bloc {
	var out Bloc
	seen := make(map[string]bool)
	for _, b := range blocs {
		if b == nil {
			continue
		}
		if out == nil {
			out = Bloc{}
		}
		for _, n := range b {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// SameMembers reports whether two blocs contain the same set of names
func SameMembers(a, b Bloc) bool {
	as := make(map[string]bool, len(a))
	for _, n := range a {
		as[n] = true
	}
	bs := make(map[string]bool, len(b))
	for _, n := range b {
		bs[n] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for n := range as {
		if !bs[n] {
			return false
		}
	}
	return true
}

// rawCase mirrors CaseRecord with every field left undecoded
type rawCase struct {
	CaseTitle          json.RawMessage `json:"caseTitle"`
	Date               json.RawMessage `json:"date"`
	OpinionType        json.RawMessage `json:"opinionType"`
	MajorityJustices   Bloc            `json:"majorityJustices"`
	ConcurringJustices Bloc            `json:"concurringJustices"`
	DissentingJustices Bloc            `json:"dissentingJustices"`
	JusticesFor        Bloc            `json:"justicesFor"`
	VotesFor           json.RawMessage `json:"votesFor"`
	VotesAgainst       json.RawMessage `json:"votesAgainst"`
	LinkURL            json.RawMessage `json:"linkUrl"`
	FullText           json.RawMessage `json:"fullText"`
}

// UnmarshalJSON decodes a record leniently: a field with the wrong shape is
// treated as absent. Only input that is not a JSON object is an error.
func (c *CaseRecord) UnmarshalJSON(data []byte) error {
	var raw rawCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CaseRecord{
		CaseTitle:          decodeString(raw.CaseTitle),
		Date:               decodeString(raw.Date),
		OpinionType:        decodeString(raw.OpinionType),
		MajorityJustices:   raw.MajorityJustices,
		ConcurringJustices: raw.ConcurringJustices,
		DissentingJustices: raw.DissentingJustices,
		JusticesFor:        raw.JusticesFor,
		VotesFor:           decodeTally(raw.VotesFor),
		VotesAgainst:       decodeTally(raw.VotesAgainst),
		LinkURL:            decodeString(raw.LinkURL),
		FullText:           decodeString(raw.FullText),
	}
	return nil
}

func decodeString(data json.RawMessage) string {
	var s string
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

func decodeTally(data json.RawMessage) *int {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if f != float64(int(f)) {
		return nil
	}
	n := int(f)
	return &n
}

// Reconcile fills VotingFor from majority ∪ concurring, falling back to the
// stored justicesFor field when no majority bloc is recorded.
func (c *CaseRecord) Reconcile() {
	if c.MajorityJustices.Present() {
		c.VotingFor = Union(c.MajorityJustices, c.ConcurringJustices)
		return
	}
	if c.JusticesFor.Present() {
		c.VotingFor = Union(c.JusticesFor)
		return
	}
	c.VotingFor = nil
}

// IsUnanimous reports whether the case was decided without dissent.
// The votesAgainst tally wins when present; otherwise an empty dissent bloc.
func (c *CaseRecord) IsUnanimous() bool {
	if c.VotesAgainst != nil {
		return *c.VotesAgainst == 0
	}
	return c.DissentingJustices.Present() && len(c.DissentingJustices) == 0
}

// AllJustices returns every name across majority, dissent and concurring
// blocs, duplicates included
func (c *CaseRecord) AllJustices() []string {
	all := make([]string, 0, len(c.MajorityJustices)+len(c.DissentingJustices)+len(c.ConcurringJustices))
	all = append(all, c.MajorityJustices...)
	all = append(all, c.DissentingJustices...)
	all = append(all, c.ConcurringJustices...)
	return all
}

// dateLayouts are the date formats seen in the dataset
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
}

// DecidedOn parses the decision date
func (c *CaseRecord) DecidedOn() (time.Time, bool) {
	s := strings.TrimSpace(c.Date)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Int returns a pointer to n, for building tallies in fixtures
func Int(n int) *int {
	return &n
}
