package digest

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// maxWords rejects strings whose whitespace-split word count exceeds n.
// Empty tokens are discarded, so an empty string counts zero words.
func maxWords(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(strings.Fields(s)) > n {
			return fmt.Errorf("must be %d words or fewer", n)
		}
		return nil
	}
}

func in(values []string) validation.Rule {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return validation.In(args...)
}

func (c WhatChanged) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Change, validation.Required),
		validation.Field(&c.Impact, validation.Required, in(ImpactLevels)),
		validation.Field(&c.Evidence, validation.Length(0, MaxEvidence)),
	)
}

func (d Deadline) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Date, validation.NilOrNotEmpty),
		validation.Field(&d.Item, validation.Required),
		validation.Field(&d.Owner, validation.NilOrNotEmpty),
		validation.Field(&d.Evidence, validation.Length(0, MaxEvidence)),
	)
}

func (a ActionItem) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Action, validation.Required),
		validation.Field(&a.Priority, validation.Required, in(Priorities)),
		validation.Field(&a.Evidence, validation.Length(0, MaxEvidence)),
	)
}

func (r RiskFlag) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Flag, validation.Required),
		validation.Field(&r.Why, validation.Required),
		validation.Field(&r.Evidence, validation.Length(0, MaxEvidence)),
	)
}

func (p Provenance) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SourceID, validation.Required),
		validation.Field(&p.Location, validation.Required),
		validation.Field(&p.Type, validation.Required, in(ProvenanceTypes)),
	)
}

func (m Meta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Mode, validation.Required, in(Modes)),
		validation.Field(&m.Model, validation.Required),
		validation.Field(&m.TokenEstimate, validation.Required),
	)
}

// ValidateDigest checks the structural contract: list caps, enum
// membership, word caps, nullable fields. A nil error means the digest
// conforms. Violations never abort a pipeline run; callers record them
// as step errors.
func ValidateDigest(d *Digest) error {
	if d == nil {
		return fmt.Errorf("digest is nil")
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.ExecutiveSummary, validation.By(maxWords(MaxSummaryWords))),
		validation.Field(&d.WhatChanged, validation.Length(0, MaxWhatChanged)),
		validation.Field(&d.Deadlines, validation.Length(0, MaxDeadlines)),
		validation.Field(&d.ActionChecklist, validation.Length(0, MaxActions)),
		validation.Field(&d.RiskFlags, validation.Length(0, MaxRiskFlags)),
		validation.Field(&d.Provenance),
		validation.Field(&d.Meta),
	)
}

// ValidateSelfcheck checks the self-check verdict shape. The boolean
// fields carry no structural constraints; only the notes word cap can
// fail.
func ValidateSelfcheck(s *Selfcheck) error {
	if s == nil {
		return fmt.Errorf("selfcheck is nil")
	}
	return validation.ValidateStruct(s,
		validation.Field(&s.Notes, validation.By(maxWords(MaxNotesWords))),
	)
}
