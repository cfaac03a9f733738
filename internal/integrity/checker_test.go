package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/docket/internal/config"
	"github.com/ppiankov/docket/internal/model"
)

var roster = model.Roster{"Roberts", "Thomas", "Kagan"}

func newChecker(t *testing.T) *Checker {
	t.Helper()
	c, err := NewChecker(roster, config.DefaultConfig().Integrity, nil)
	require.NoError(t, err)
	return c
}

func reconciled(records ...model.CaseRecord) []model.CaseRecord {
	for i := range records {
		records[i].Reconcile()
	}
	return records
}

func clean() []model.CaseRecord {
	return reconciled(
		model.CaseRecord{
			CaseTitle: "Case1", Date: "2023-06-30", OpinionType: "Majority",
			MajorityJustices: model.Bloc{"Roberts", "Thomas"}, DissentingJustices: model.Bloc{"Kagan"},
			JusticesFor: model.Bloc{"Roberts", "Thomas"}, VotesFor: model.Int(2), VotesAgainst: model.Int(1),
		},
		model.CaseRecord{
			CaseTitle: "Case2", Date: "2024-01-15", OpinionType: "Per Curiam",
			MajorityJustices: model.Bloc{"Roberts", "Thomas", "Kagan"}, DissentingJustices: model.Bloc{},
			JusticesFor: model.Bloc{"Roberts", "Thomas", "Kagan"}, VotesFor: model.Int(3), VotesAgainst: model.Int(0),
		},
	)
}

func findings(r *Report, typ model.FindingType) []model.Finding {
	var out []model.Finding
	for _, f := range r.Findings {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func TestCheck_Clean(t *testing.T) {
	r, err := newChecker(t).Check(clean())
	require.NoError(t, err)

	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 2, r.Usable)
	assert.Equal(t, 100.0, r.CompletenessPercent)
	assert.False(t, r.HasIssues())
	assert.Empty(t, r.VoteCounts)
	assert.Empty(t, r.UnknownJustices)
	assert.Empty(t, r.Duplicates)
	assert.Empty(t, r.Dates)
	assert.Empty(t, r.Drift)
	assert.Empty(t, r.MissingJustices)

	for _, f := range r.Findings {
		assert.False(t, f.IsIssue(), "unexpected issue finding: %+v", f)
	}
}

func TestCheck_Completeness(t *testing.T) {
	records := append(clean(), reconciled(
		model.CaseRecord{MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "NoBlocs"},
		model.CaseRecord{CaseTitle: "NoDate", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
	)...)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Completeness.MissingTitle)
	assert.Equal(t, 1, r.Completeness.MissingJusticesFor)
	assert.Equal(t, 1, r.Completeness.MissingDissent)
	assert.Equal(t, 3, r.Completeness.MissingDate)
	assert.Equal(t, 3, r.Completeness.MissingOpinionType)
	assert.Equal(t, 3, r.Usable)
	assert.InDelta(t, 60.0, r.CompletenessPercent, 0.001)

	missing := findings(r, model.FindingMissingField)
	require.Len(t, missing, 5)
	assert.Equal(t, []string{"#2"}, missing[0].Cases, "untitled records are named by position")
	assert.Equal(t, model.SeverityCritical, missing[0].Severity)
	assert.Equal(t, model.SeverityInfo, missing[3].Severity, "missing date is informational")
}

func TestCheck_VoteCounts(t *testing.T) {
	records := reconciled(
		model.CaseRecord{
			CaseTitle: "TallyOff", MajorityJustices: model.Bloc{"Roberts", "Thomas"}, DissentingJustices: model.Bloc{"Kagan"},
			VotesFor: model.Int(3), VotesAgainst: model.Int(1),
		},
		model.CaseRecord{
			CaseTitle: "ZeroAgainstWithDissent", MajorityJustices: model.Bloc{"Roberts", "Thomas"}, DissentingJustices: model.Bloc{"Kagan"},
			VotesAgainst: model.Int(0),
		},
		model.CaseRecord{CaseTitle: "Empty", MajorityJustices: model.Bloc{}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{
			CaseTitle: "Concurrence", MajorityJustices: model.Bloc{"Roberts"}, ConcurringJustices: model.Bloc{"Thomas"},
			DissentingJustices: model.Bloc{"Kagan"}, VotesFor: model.Int(2), VotesAgainst: model.Int(1),
		},
	)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	require.Len(t, r.VoteCounts, 3)
	assert.Equal(t, "TallyOff", r.VoteCounts[0].Case)
	assert.Equal(t, "ZeroAgainstWithDissent", r.VoteCounts[1].Case, "zero tallies are compared too")
	assert.Equal(t, "Empty", r.VoteCounts[2].Case)
	assert.Contains(t, r.VoteCounts[2].Reasons, "no justices recorded")

	vc := findings(r, model.FindingVoteCount)
	require.Len(t, vc, 1)
	assert.Equal(t, []string{"TallyOff", "ZeroAgainstWithDissent", "Empty"}, vc[0].Cases)
}

func TestCheck_OversizedBench(t *testing.T) {
	big := model.Bloc{"Roberts", "Thomas", "Kagan", "A", "B", "C", "D", "E", "F", "G"}
	r, err := newChecker(t).Check(reconciled(model.CaseRecord{
		CaseTitle: "Ten", MajorityJustices: big, DissentingJustices: model.Bloc{},
	}))
	require.NoError(t, err)
	require.Len(t, r.VoteCounts, 1)
	assert.Contains(t, r.VoteCounts[0].Reasons, "10 justices recorded")
}

func TestCheck_UnknownAndDuplicateJustices(t *testing.T) {
	records := reconciled(
		model.CaseRecord{
			CaseTitle: "Breyer", MajorityJustices: model.Bloc{"Roberts", "Breyer"}, DissentingJustices: model.Bloc{"Thomas", "Ginsburg"},
		},
		model.CaseRecord{
			CaseTitle: "Twice", MajorityJustices: model.Bloc{"Roberts", "Thomas"}, DissentingJustices: model.Bloc{"Thomas"},
		},
		model.CaseRecord{
			CaseTitle: "Again", MajorityJustices: model.Bloc{"Kagan"}, DissentingJustices: model.Bloc{"Breyer"},
		},
	)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	assert.Equal(t, []string{"Breyer", "Ginsburg"}, r.UnknownJustices)
	assert.Equal(t, []string{"Twice"}, r.Duplicates)

	unknown := findings(r, model.FindingUnknownJustice)
	require.Len(t, unknown, 1)
	assert.Equal(t, []string{"Breyer", "Again"}, unknown[0].Cases)
}

func TestCheck_CoverageAndMissingJustices(t *testing.T) {
	records := clean()
	records = append(records, reconciled(model.CaseRecord{
		CaseTitle: "NoKagan", Date: "2022-10-03",
		MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{"Thomas"},
	})...)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	require.Len(t, r.Coverage, len(roster))
	assert.False(t, r.Coverage[0].Low)
	kagan := r.Coverage[2]
	assert.Equal(t, "Kagan", kagan.Justice)
	assert.Equal(t, 2, kagan.Cases)
	assert.True(t, kagan.Low)

	require.Len(t, r.MissingJustices, 1)
	assert.Equal(t, "Kagan", r.MissingJustices[0].Justice)
	assert.Equal(t, []string{"Roberts", "Thomas"}, r.MissingJustices[0].Examples[0].Justices)

	require.Len(t, findings(r, model.FindingCoverage), 1)
}

func TestCheck_MissingJusticeExampleLimit(t *testing.T) {
	var records []model.CaseRecord
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, model.CaseRecord{CaseTitle: title, MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}})
	}

	r, err := newChecker(t).Check(reconciled(records...))
	require.NoError(t, err)

	require.Len(t, r.MissingJustices, 2)
	for _, mj := range r.MissingJustices {
		assert.Equal(t, 5, mj.Count)
		assert.Len(t, mj.Examples, 3)
	}
}

func TestCheck_Dates(t *testing.T) {
	records := reconciled(
		model.CaseRecord{CaseTitle: "Ok", Date: "June 30, 2023", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "Missing", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "Garbage", Date: "sometime", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "Old", Date: "2019-05-01", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "Future", Date: "2026-01-01", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
	)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	require.Len(t, r.Dates, 4)
	reasons := map[string]string{}
	for _, d := range r.Dates {
		reasons[d.Case] = d.Reason
	}
	assert.Equal(t, "missing", reasons["Missing"])
	assert.Equal(t, "unparsable", reasons["Garbage"])
	assert.Equal(t, "year 2019 outside 2020-2025", reasons["Old"])
	assert.Equal(t, "year 2026 outside 2020-2025", reasons["Future"])
}

func TestCheck_OpinionTypes(t *testing.T) {
	records := clean()
	records = append(records, reconciled(
		model.CaseRecord{CaseTitle: "X", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
		model.CaseRecord{CaseTitle: "Y", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{}},
	)...)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	require.Len(t, r.OpinionTypes, 3)
	assert.Equal(t, MissingOpinionType, r.OpinionTypes[0].Label)
	assert.Equal(t, 2, r.OpinionTypes[0].Count)
	assert.Equal(t, "Majority", r.OpinionTypes[1].Label)
	assert.Equal(t, "Per Curiam", r.OpinionTypes[2].Label)
}

func TestCheck_Drift(t *testing.T) {
	records := reconciled(
		model.CaseRecord{
			CaseTitle: "Stale", MajorityJustices: model.Bloc{"Roberts"}, ConcurringJustices: model.Bloc{"Thomas"},
			JusticesFor: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{"Kagan"},
		},
		model.CaseRecord{
			CaseTitle: "Absent", MajorityJustices: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{},
		},
		model.CaseRecord{
			CaseTitle: "Fine", MajorityJustices: model.Bloc{"Roberts", "Thomas"}, JusticesFor: model.Bloc{"Thomas", "Roberts"},
			DissentingJustices: model.Bloc{},
		},
		model.CaseRecord{
			CaseTitle: "StoredOnly", JusticesFor: model.Bloc{"Roberts"}, DissentingJustices: model.Bloc{},
		},
	)

	r, err := newChecker(t).Check(records)
	require.NoError(t, err)

	require.Len(t, r.Drift, 2)
	assert.Equal(t, "Stale", r.Drift[0].Case)
	assert.Equal(t, model.Bloc{"Roberts", "Thomas"}, r.Drift[0].Derived)
	assert.Equal(t, "Absent", r.Drift[1].Case)
	assert.True(t, r.HasIssues())
}

func TestCheck_DoesNotMutate(t *testing.T) {
	records := clean()
	before := make([]model.CaseRecord, len(records))
	copy(before, records)

	_, err := newChecker(t).Check(records)
	require.NoError(t, err)
	assert.Equal(t, before, records)
}
