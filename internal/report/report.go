package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/docket/internal/aggregate"
	"github.com/ppiankov/docket/internal/agreement"
	"github.com/ppiankov/docket/internal/dataset"
	"github.com/ppiankov/docket/internal/model"
)

// TermReport bundles every derived view of one dataset
type TermReport struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Source      string                  `json:"source"`
	GeneratedAt time.Time               `json:"generated_at"`
	Load        dataset.LoadStats       `json:"load"`
	Roster      []string                `json:"roster"`
	Overview    aggregate.Overview      `json:"overview"`
	Justices    []aggregate.JusticeStat `json:"justices"`
	Agreement   agreement.Matrix        `json:"agreement"`
}

// Build derives a TermReport from a loaded snapshot
func Build(snap *dataset.Snapshot, roster model.Roster) *TermReport {
	agg := aggregate.NewAggregator(roster)

	return &TermReport{
		ID:          uuid.NewString(),
		Name:        dataset.Name(snap.Source),
		Source:      snap.Source,
		GeneratedAt: time.Now().UTC(),
		Load:        snap.Stats,
		Roster:      roster.Names(),
		Overview:    agg.Summarize(snap.Records),
		Justices:    agg.JusticeStats(snap.Records),
		Agreement:   agreement.Compute(snap.Records, roster),
	}
}
