package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDigest() *Digest {
	date := "2026-03-01"
	owner := "City Clerk"
	return &Digest{
		ExecutiveSummary: "Parking permit fees increase and the appeal window shortens.",
		WhatChanged: []WhatChanged{
			{Change: "Permit fee raised", Impact: "high", Evidence: []string{"new:L12"}},
		},
		Deadlines: []Deadline{
			{Date: &date, Item: "Appeals due", Owner: &owner, Evidence: []string{"new:L30"}},
			{Date: nil, Item: "Fee takes effect", Owner: nil, Evidence: nil},
		},
		ActionChecklist: []ActionItem{
			{Action: "Notify residents", Priority: "P0", Evidence: []string{"diff:h2"}},
		},
		RiskFlags: []RiskFlag{
			{Flag: "Short notice", Why: "Only two weeks before enforcement", Evidence: []string{"new:L31"}},
		},
		Provenance: []Provenance{
			{SourceID: "minutes-2026-02", Location: "L12", Type: "new"},
		},
		Meta: Meta{Mode: "demo", Model: "gemini-2.0-flash", TokenEstimate: "~1.2K tokens"},
	}
}

func TestValidateDigest_Valid(t *testing.T) {
	require.NoError(t, ValidateDigest(validDigest()))
}

func TestValidateDigest_ListCaps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Digest)
	}{
		{"what_changed over cap", func(d *Digest) {
			for i := 0; i <= MaxWhatChanged; i++ {
				d.WhatChanged = append(d.WhatChanged, WhatChanged{Change: "c", Impact: "low"})
			}
		}},
		{"deadlines over cap", func(d *Digest) {
			for i := 0; i <= MaxDeadlines; i++ {
				d.Deadlines = append(d.Deadlines, Deadline{Item: "i"})
			}
		}},
		{"action_checklist over cap", func(d *Digest) {
			for i := 0; i <= MaxActions; i++ {
				d.ActionChecklist = append(d.ActionChecklist, ActionItem{Action: "a", Priority: "P1"})
			}
		}},
		{"risk_flags over cap", func(d *Digest) {
			for i := 0; i <= MaxRiskFlags; i++ {
				d.RiskFlags = append(d.RiskFlags, RiskFlag{Flag: "f", Why: "w"})
			}
		}},
		{"evidence over cap", func(d *Digest) {
			d.WhatChanged[0].Evidence = []string{"1", "2", "3", "4", "5", "6"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDigest()
			tt.mutate(d)
			assert.Error(t, ValidateDigest(d))
		})
	}
}

func TestValidateDigest_AtCapPasses(t *testing.T) {
	d := validDigest()
	d.WhatChanged = nil
	for i := 0; i < MaxWhatChanged; i++ {
		d.WhatChanged = append(d.WhatChanged, WhatChanged{Change: "c", Impact: "med"})
	}
	d.RiskFlags = nil
	for i := 0; i < MaxRiskFlags; i++ {
		d.RiskFlags = append(d.RiskFlags, RiskFlag{Flag: "f", Why: "w"})
	}
	require.NoError(t, ValidateDigest(d))
}

func TestValidateDigest_SummaryWordCount(t *testing.T) {
	d := validDigest()

	d.ExecutiveSummary = strings.Repeat("word ", MaxSummaryWords)
	assert.NoError(t, ValidateDigest(d), "exactly 60 words should pass")

	d.ExecutiveSummary = strings.Repeat("word ", MaxSummaryWords+1)
	assert.Error(t, ValidateDigest(d), "61 words should fail")

	d.ExecutiveSummary = ""
	assert.NoError(t, ValidateDigest(d), "empty summary counts zero words")

	d.ExecutiveSummary = "  \t  "
	assert.NoError(t, ValidateDigest(d), "whitespace-only tokens are discarded")
}

func TestValidateDigest_EnumMembership(t *testing.T) {
	d := validDigest()
	d.WhatChanged[0].Impact = "medium"
	assert.Error(t, ValidateDigest(d), "unrecognized impact must fail, not coerce")

	d = validDigest()
	d.ActionChecklist[0].Priority = "P3"
	assert.Error(t, ValidateDigest(d))

	d = validDigest()
	d.Provenance[0].Type = "patch"
	assert.Error(t, ValidateDigest(d))

	d = validDigest()
	d.Meta.Mode = "replay"
	assert.Error(t, ValidateDigest(d))
}

func TestValidateDigest_NullableDeadlineFields(t *testing.T) {
	d := validDigest()
	require.NoError(t, ValidateDigest(d), "nil date and owner are valid")

	empty := ""
	d.Deadlines[1].Date = &empty
	assert.Error(t, ValidateDigest(d), "empty-string date is invalid")

	d = validDigest()
	d.Deadlines[1].Owner = &empty
	assert.Error(t, ValidateDigest(d), "empty-string owner is invalid")
}

func TestValidateSelfcheck(t *testing.T) {
	sc := &Selfcheck{ValidJSON: true, SchemaPass: true, WordLimitsOK: true, SafetyOK: true, Notes: "all good"}
	require.NoError(t, ValidateSelfcheck(sc))

	sc.Notes = strings.Repeat("word ", MaxNotesWords+1)
	assert.Error(t, ValidateSelfcheck(sc))

	sc.Notes = strings.Repeat("word ", MaxNotesWords)
	assert.NoError(t, ValidateSelfcheck(sc))
}

func TestResponseSchemasCoverWireFields(t *testing.T) {
	ds := DigestResponseSchema()
	for _, f := range []string{"executive_summary", "what_changed", "deadlines", "action_checklist", "risk_flags", "provenance", "meta"} {
		assert.Contains(t, ds.Properties, f)
		assert.Contains(t, ds.Required, f)
	}
	ss := SelfcheckResponseSchema()
	for _, f := range []string{"valid_json", "schema_pass", "word_limits_ok", "safety_ok", "notes"} {
		assert.Contains(t, ss.Properties, f)
	}
}
