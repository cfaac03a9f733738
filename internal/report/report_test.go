package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/docket/internal/config"
	"github.com/ppiankov/docket/internal/dataset"
	"github.com/ppiankov/docket/internal/integrity"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/query"
)

var roster = model.Roster{"Roberts", "Thomas", "Kagan", "Kavanaugh"}

func snapshot() *dataset.Snapshot {
	records := []model.CaseRecord{
		{
			CaseTitle: "Case1", Date: "2023-06-30", OpinionType: "Majority",
			MajorityJustices: model.Bloc{"Roberts", "Thomas"}, DissentingJustices: model.Bloc{"Kagan"},
			VotesFor: model.Int(2), VotesAgainst: model.Int(1), LinkURL: "https://example.com/case1.pdf",
		},
		{
			CaseTitle: "Case2", Date: "2023-05-01", OpinionType: "Majority",
			MajorityJustices: model.Bloc{"Roberts", "Kagan"}, DissentingJustices: model.Bloc{"Thomas"},
			VotesFor: model.Int(2), VotesAgainst: model.Int(1),
		},
		{
			CaseTitle: "Case3", Date: "2023-03-01",
			MajorityJustices: model.Bloc{"Roberts", "Thomas", "Kagan"}, DissentingJustices: model.Bloc{},
			VotesFor: model.Int(3), VotesAgainst: model.Int(0),
		},
	}
	for i := range records {
		records[i].Reconcile()
	}
	return &dataset.Snapshot{
		Source:   "data/scData.json",
		Records:  records,
		Stats:    dataset.LoadStats{Records: 3},
		LoadedAt: time.Now(),
	}
}

func TestBuild(t *testing.T) {
	r := Build(snapshot(), roster)

	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err, "report id is a uuid")
	assert.Equal(t, "scData", r.Name)
	assert.Equal(t, 3, r.Overview.TotalCases)
	assert.Equal(t, 33, r.Overview.Unanimous.Percent)
	require.Len(t, r.Justices, len(roster))
	assert.Equal(t, 3, r.Justices[0].MajorityCount)
	assert.Equal(t, 3, r.Agreement.Total)
	assert.NotEqual(t, Build(snapshot(), roster).ID, r.ID)
}

func TestRenderer_Files(t *testing.T) {
	dir := t.TempDir()
	r := Build(snapshot(), roster)
	renderer := NewRenderer(true)

	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, renderer.RenderJSON(r, jsonPath))
	require.NoError(t, renderer.RenderMarkdown(r, mdPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded TermReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, r.Agreement.Total, decoded.Agreement.Total)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Term report: scData")
	assert.Contains(t, string(md), "| Most frequent split | 2-1 (2 cases) |")
	assert.Contains(t, string(md), "| KV |")
	assert.Contains(t, string(md), "| Roberts | 3 | 0 | 0 |")
	assert.Contains(t, string(md), r.ID)
}

func TestRenderer_NoFooter(t *testing.T) {
	r := Build(snapshot(), roster)
	md := NewRenderer(false).Markdown(r)
	assert.NotContains(t, md, "generated by docket")
}

func TestTerminalTables(t *testing.T) {
	r := Build(snapshot(), roster)

	justices := JusticeTable(r.Justices)
	for _, name := range roster {
		assert.Contains(t, justices, name)
	}

	matrix := MatrixTable(r.Agreement)
	assert.Contains(t, matrix, "KV")
	assert.Contains(t, matrix, "100%")
	assert.Contains(t, matrix, "67%")
	assert.Contains(t, matrix, "Shared denominator: 3")

	splits := SplitTable(r.Overview.Splits)
	assert.Contains(t, splits, "2-1")
	assert.Contains(t, splits, "66.7%")

	types := DecisionTypeTable(r.Overview.DecisionTypes)
	assert.Contains(t, types, "Majority")
	assert.Contains(t, types, "Other")

	overview := OverviewText(r.Overview)
	assert.Contains(t, overview, "33%")
}

func TestCaseList(t *testing.T) {
	snap := snapshot()
	e := query.NewEngine(snap.Records)
	p := query.Params{Justices: []string{"Thomas"}, Mode: query.ModeAll, ExcludeUnanimous: true}

	out := CaseList(p, e.Run(p))
	assert.True(t, strings.HasPrefix(out, "2 case(s) found"))
	assert.Contains(t, out, "Case1")
	assert.Contains(t, out, "Case2")
	assert.NotContains(t, out, "Case3")
	assert.Contains(t, out, "https://example.com/case1.pdf")
}

func TestWriteIntegrity(t *testing.T) {
	snap := snapshot()
	checker, err := integrity.NewChecker(roster, config.DefaultConfig().Integrity, nil)
	require.NoError(t, err)
	audit, err := checker.Check(snap.Records)
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, WriteIntegrityText(&text, snap.Source, audit))
	out := text.String()
	assert.Contains(t, out, "Docket Data Integrity Check")
	assert.Contains(t, out, "1. BASIC DATA COMPLETENESS")
	assert.Contains(t, out, "9. RECONCILIATION DRIFT")
	assert.Contains(t, out, "⚠ Kavanaugh: 0/3 cases (0.0%)")
	assert.Contains(t, out, "Kavanaugh missing from 3 cases:")
	assert.Contains(t, out, "Usable cases:      3/3")

	var js bytes.Buffer
	require.NoError(t, WriteIntegrityJSON(&js, audit))
	var decoded integrity.Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, audit.TotalIssues, decoded.TotalIssues)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestWriteIntegrityText_WriteError(t *testing.T) {
	checker, err := integrity.NewChecker(roster, config.DefaultConfig().Integrity, nil)
	require.NoError(t, err)
	audit, err := checker.Check(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, WriteIntegrityText(failingWriter{}, "x", audit), os.ErrClosed)
}
