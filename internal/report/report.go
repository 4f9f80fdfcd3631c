// Package report assembles the full diagnostic report: request validation at
// the boundary, the scoring → decision → evidence → narrative pipeline, and
// the CTA catalog.
package report

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/bluenomad/postmortem-backend/internal/llm"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// MinUserTextLen is the minimum situation-text length in runes.
const MinUserTextLen = 10

// Request is the report request body. Validate must pass before the pipeline
// runs; once accepted, a report is always produced.
type Request struct {
	UserText   string                    `json:"user_text"`
	Structured scoring.StructuredAnswers `json:"structured"`
	Checklist  scoring.ChecklistAnswers  `json:"checklist"`
}

// Validate is the pure boundary check: user_text length, the three mandatory
// structured answers, and checklist value ranges. Checklist keys are not
// restricted — unknown keys are never read by the bucket tables, and missing
// keys are covered by the scorer's neutral default.
func (r Request) Validate() error {
	var errs []error

	if utf8.RuneCountInString(r.UserText) < MinUserTextLen {
		errs = append(errs, fmt.Errorf("user_text must be at least %d characters", MinUserTextLen))
	}

	if !r.Structured.LastInteractionType.Valid() {
		errs = append(errs, errors.New("structured.last_interaction_type must be one of A, B, C, D"))
	}
	if !r.Structured.ContactInitiation.Valid() {
		errs = append(errs, errors.New("structured.contact_initiation must be one of A, B, C, D"))
	}
	if !r.Structured.PartnerState.Valid() {
		errs = append(errs, errors.New("structured.partner_state must be one of A, B, C, D"))
	}

	for qid, v := range r.Checklist {
		if v < 1 || v > 5 {
			errs = append(errs, fmt.Errorf("checklist.%s: value %d out of range [1,5]", qid, v))
		}
	}

	return errors.Join(errs...)
}

// Response is the assembled report returned to the client.
type Response struct {
	Scores    scoring.Scores  `json:"scores"`
	Verdict   verdict.Verdict `json:"verdict"`
	Narrative llm.Narrative   `json:"narrative"`
	CTAs      []CTA           `json:"ctas"`
}
