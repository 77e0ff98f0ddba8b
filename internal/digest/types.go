// Package digest defines the structured change-digest produced by an
// analysis run, the self-check verdict, and the single canonical schema
// both the validator and the provider-facing response schemas are built
// from.
package digest

// Structural caps. These constants are the one source of truth: the
// ozzo rules in validate.go and the genai schemas in schema.go are both
// derived from them.
const (
	MaxSummaryWords = 60
	MaxNotesWords   = 40
	MaxWhatChanged  = 7
	MaxDeadlines    = 7
	MaxActions      = 7
	MaxRiskFlags    = 5
	MaxEvidence     = 5
)

// Enum values accepted on the wire.
var (
	ImpactLevels    = []string{"low", "med", "high"}
	Priorities      = []string{"P0", "P1", "P2"}
	ProvenanceTypes = []string{"old", "new", "diff"}
	Modes           = []string{"demo", "live"}
)

// WhatChanged is one observed change with its impact and source references.
type WhatChanged struct {
	Change   string   `json:"change"`
	Impact   string   `json:"impact"`
	Evidence []string `json:"evidence"`
}

// Deadline is a dated obligation extracted from the documents. Date and
// Owner are nullable: null is valid, an empty string is not.
type Deadline struct {
	Date     *string  `json:"date"`
	Item     string   `json:"item"`
	Owner    *string  `json:"owner"`
	Evidence []string `json:"evidence"`
}

// ActionItem is one checklist entry with a priority class.
type ActionItem struct {
	Action   string   `json:"action"`
	Priority string   `json:"priority"`
	Evidence []string `json:"evidence"`
}

// RiskFlag marks a concern the model raised about the change.
type RiskFlag struct {
	Flag     string   `json:"flag"`
	Why      string   `json:"why"`
	Evidence []string `json:"evidence"`
}

// Provenance points a finding back at a location in a source document.
type Provenance struct {
	SourceID string `json:"source_id"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// Meta records how a digest was produced.
type Meta struct {
	Mode          string `json:"mode"`
	Model         string `json:"model"`
	TokenEstimate string `json:"token_estimate"`
}

// Digest is the structured output of one analysis run. Immutable once
// produced.
type Digest struct {
	ExecutiveSummary string        `json:"executive_summary"`
	WhatChanged      []WhatChanged `json:"what_changed"`
	Deadlines        []Deadline    `json:"deadlines"`
	ActionChecklist  []ActionItem  `json:"action_checklist"`
	RiskFlags        []RiskFlag    `json:"risk_flags"`
	Provenance       []Provenance  `json:"provenance"`
	Meta             Meta          `json:"meta"`
}

// Selfcheck is the verdict of the second evaluation pass over a Digest.
type Selfcheck struct {
	ValidJSON    bool   `json:"valid_json"`
	SchemaPass   bool   `json:"schema_pass"`
	WordLimitsOK bool   `json:"word_limits_ok"`
	SafetyOK     bool   `json:"safety_ok"`
	Notes        string `json:"notes"`
}
