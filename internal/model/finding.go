package model

// Finding is one integrity observation with the data behind it
type Finding struct {
	Type        FindingType    `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Cases       []string       `json:"cases,omitempty"` // Offending case titles, possibly truncated
	Data        map[string]any `json:"data,omitempty"`
}

// FindingType classifies an integrity finding
type FindingType string

const (
	FindingMissingField     FindingType = "missing_field"
	FindingCoverage         FindingType = "justice_coverage"
	FindingVoteCount        FindingType = "vote_count"
	FindingUnknownJustice   FindingType = "unknown_justice"
	FindingDuplicateJustice FindingType = "duplicate_justice"
	FindingOpinionTypes     FindingType = "opinion_types"
	FindingDate             FindingType = "date"
	FindingMissingJustice   FindingType = "missing_justice"
	FindingReconcileDrift   FindingType = "reconcile_drift"
)

// Severity indicates how much a finding matters
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IsIssue reports whether the finding counts against dataset integrity
func (f Finding) IsIssue() bool {
	return f.Severity != SeverityInfo
}
