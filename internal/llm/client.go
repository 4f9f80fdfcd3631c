// Package llm defines the interface for AI-generated report narratives and
// contact-risk analysis, with OpenAI-backed and Anthropic-backed
// implementations plus a deterministic local fallback.
//
// The contract is strict separation of authority: the verdict and scores are
// decided before any call into this package, the prompt marks them as fixed,
// and nothing a provider returns can change them. A provider may only explain.
package llm

import (
	"context"
	"errors"

	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// Narrative is the four-field structured output of a narrative generation.
// Responses that do not carry all four fields are rejected and replaced by
// the local fallback.
type Narrative struct {
	WhyThisVerdict string   `json:"why_this_verdict"`
	YourState      string   `json:"your_state"`
	PartnerState   string   `json:"partner_state"`
	EvidencePoints []string `json:"evidence_points"`
}

// Validate checks the fixed 4-field schema. A schema violation is treated
// identically to a transport failure by callers.
func (n Narrative) Validate() error {
	var errs []error
	if n.WhyThisVerdict == "" {
		errs = append(errs, errors.New("narrative: why_this_verdict is empty"))
	}
	if n.YourState == "" {
		errs = append(errs, errors.New("narrative: your_state is empty"))
	}
	if n.PartnerState == "" {
		errs = append(errs, errors.New("narrative: partner_state is empty"))
	}
	if n.EvidencePoints == nil {
		errs = append(errs, errors.New("narrative: evidence_points is missing"))
	}
	return errors.Join(errs...)
}

// NarrativeInput carries everything a provider needs to write the narrative.
// UserText must already be redacted — this package never redacts.
type NarrativeInput struct {
	UserText       string
	Structured     scoring.StructuredAnswers
	Scores         scoring.Scores
	Verdict        verdict.Verdict
	EvidencePoints []string
}

// RiskLevel classifies a proposed contact message.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ContactRisk is the result of analysing a message the user wants to send.
type ContactRisk struct {
	RiskLevel         RiskLevel `json:"risk_level"`
	RiskScore         int       `json:"risk_score"` // 0–100
	Analysis          string    `json:"analysis"`
	SuggestedRevision *string   `json:"suggested_revision"` // nil when the message is fine as-is
}

// Validate checks the contact-risk schema.
func (c ContactRisk) Validate() error {
	var errs []error
	switch c.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
	default:
		errs = append(errs, errors.New("contact risk: unknown risk_level"))
	}
	if c.RiskScore < 0 || c.RiskScore > 100 {
		errs = append(errs, errors.New("contact risk: risk_score out of [0,100]"))
	}
	if c.Analysis == "" {
		errs = append(errs, errors.New("contact risk: analysis is empty"))
	}
	return errors.Join(errs...)
}

// ContactRiskInput is the input to AnalyzeContactRisk. Scores and Verdict are
// the current report state the analysis is anchored to.
type ContactRiskInput struct {
	ProposedMessage string
	Scores          scoring.Scores
	Verdict         verdict.Verdict
}

// Narrator is the interface the report pipeline and the contact-risk handler
// use to reach a text-generation provider.
//
// Implementations must be safe to call concurrently. A non-nil error means the
// call failed entirely; callers fall back to DefaultNarrative or
// DefaultContactRisk rather than surfacing the error to the user.
type Narrator interface {
	// GenerateNarrative writes the explanatory report prose for an
	// already-decided verdict. Implementations validate the provider response
	// against the 4-field schema before returning it.
	GenerateNarrative(ctx context.Context, in NarrativeInput) (Narrative, error)

	// AnalyzeContactRisk evaluates a message the user is considering sending,
	// given the current scores and verdict.
	AnalyzeContactRisk(ctx context.Context, in ContactRiskInput) (ContactRisk, error)
}
