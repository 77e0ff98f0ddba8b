package digest

import (
	"fmt"

	genai "google.golang.org/genai"
)

// Provider-facing response schemas. Generated from the same constants
// validate.go enforces so the provider contract and the validator cannot
// drift apart. The hard caps stay with the validator; the schema carries
// them as instructions the model sees.

func evidenceSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: fmt.Sprintf("Source references, max %d entries", MaxEvidence),
	}
}

func nullableString(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Nullable: genai.Ptr(true), Description: desc}
}

// DigestResponseSchema describes the Digest shape for structured output.
func DigestResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"executive_summary": {
				Type:        genai.TypeString,
				Description: fmt.Sprintf("Concise summary, max %d words", MaxSummaryWords),
			},
			"what_changed": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Max %d entries", MaxWhatChanged),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"change":   {Type: genai.TypeString},
						"impact":   {Type: genai.TypeString, Enum: ImpactLevels},
						"evidence": evidenceSchema(),
					},
					Required: []string{"change", "impact", "evidence"},
				},
			},
			"deadlines": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Max %d entries", MaxDeadlines),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":     nullableString("ISO date when known, null otherwise"),
						"item":     {Type: genai.TypeString},
						"owner":    nullableString("Responsible party, null when unknown"),
						"evidence": evidenceSchema(),
					},
					Required: []string{"date", "item", "owner", "evidence"},
				},
			},
			"action_checklist": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Max %d entries", MaxActions),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action":   {Type: genai.TypeString},
						"priority": {Type: genai.TypeString, Enum: Priorities},
						"evidence": evidenceSchema(),
					},
					Required: []string{"action", "priority", "evidence"},
				},
			},
			"risk_flags": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Max %d entries", MaxRiskFlags),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"flag":     {Type: genai.TypeString},
						"why":      {Type: genai.TypeString},
						"evidence": evidenceSchema(),
					},
					Required: []string{"flag", "why", "evidence"},
				},
			},
			"provenance": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"source_id": {Type: genai.TypeString},
						"location":  {Type: genai.TypeString},
						"type":      {Type: genai.TypeString, Enum: ProvenanceTypes},
					},
					Required: []string{"source_id", "location", "type"},
				},
			},
			"meta": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"mode":           {Type: genai.TypeString, Enum: Modes},
					"model":          {Type: genai.TypeString},
					"token_estimate": {Type: genai.TypeString},
				},
				Required: []string{"mode", "model", "token_estimate"},
			},
		},
		Required: []string{
			"executive_summary",
			"what_changed",
			"deadlines",
			"action_checklist",
			"risk_flags",
			"provenance",
			"meta",
		},
	}
}

// SelfcheckResponseSchema describes the Selfcheck shape for structured output.
func SelfcheckResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"valid_json":     {Type: genai.TypeBoolean},
			"schema_pass":    {Type: genai.TypeBoolean},
			"word_limits_ok": {Type: genai.TypeBoolean},
			"safety_ok":      {Type: genai.TypeBoolean},
			"notes": {
				Type:        genai.TypeString,
				Description: fmt.Sprintf("Max %d words of feedback", MaxNotesWords),
			},
		},
		Required: []string{"valid_json", "schema_pass", "word_limits_ok", "safety_ok", "notes"},
	}
}
