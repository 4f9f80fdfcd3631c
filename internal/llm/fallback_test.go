package llm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bluenomad/postmortem-backend/internal/llm"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubNarrator struct {
	narrative llm.Narrative
	risk      llm.ContactRisk
	err       error
	calls     int
}

func (s *stubNarrator) GenerateNarrative(_ context.Context, _ llm.NarrativeInput) (llm.Narrative, error) {
	s.calls++
	return s.narrative, s.err
}

func (s *stubNarrator) AnalyzeContactRisk(_ context.Context, _ llm.ContactRiskInput) (llm.ContactRisk, error) {
	s.calls++
	return s.risk, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// Use this instead of nil — fallback.go calls f.logger.Warn() which panics on nil.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInput() llm.NarrativeInput {
	return llm.NarrativeInput{
		UserText:   "연락이 없어서 불안합니다",
		Structured: scoring.StructuredAnswers{LastInteractionType: "A", ContactInitiation: "A", PartnerState: "A"},
		Scores:     scoring.Scores{A: 70, B: 40, C: 40, R: 40, G: 30},
		Verdict:    verdict.Decide(70, 40, 40),
	}
}

// ─── FallbackNarrator ─────────────────────────────────────────────────────────

func TestFallbackNarrator_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubNarrator{
		narrative: llm.Narrative{
			WhyThisVerdict: "primary why",
			YourState:      "primary you",
			PartnerState:   "primary partner",
			EvidencePoints: []string{"p1"},
		},
	}
	secondary := &stubNarrator{
		narrative: llm.Narrative{WhyThisVerdict: "secondary why"},
	}

	narrator := llm.NewFallbackNarrator(primary, secondary, discardLogger())

	result, err := narrator.GenerateNarrative(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WhyThisVerdict != "primary why" {
		t.Errorf("expected primary result, got: %q", result.WhyThisVerdict)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
	if primary.calls != 1 {
		t.Errorf("primary should be called once, got %d calls", primary.calls)
	}
}

func TestFallbackNarrator_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubNarrator{err: errors.New("openai timeout")}
	secondary := &stubNarrator{
		narrative: llm.Narrative{
			WhyThisVerdict: "secondary why",
			YourState:      "s",
			PartnerState:   "s",
			EvidencePoints: []string{"s1"},
		},
	}

	narrator := llm.NewFallbackNarrator(primary, secondary, discardLogger())

	result, err := narrator.GenerateNarrative(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WhyThisVerdict != "secondary why" {
		t.Errorf("expected secondary result, got: %q", result.WhyThisVerdict)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls: primary=%d secondary=%d, want 1/1", primary.calls, secondary.calls)
	}
}

func TestFallbackNarrator_BothFail_ReturnsError(t *testing.T) {
	primary := &stubNarrator{err: errors.New("primary error")}
	secondary := &stubNarrator{err: errors.New("secondary error")}

	narrator := llm.NewFallbackNarrator(primary, secondary, discardLogger())

	if _, err := narrator.GenerateNarrative(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected error when both narrators fail")
	}
}

func TestFallbackNarrator_NilPrimary_UsesSecondaryDirectly(t *testing.T) {
	secondary := &stubNarrator{
		narrative: llm.Narrative{WhyThisVerdict: "only secondary"},
	}

	narrator := llm.NewFallbackNarrator(nil, secondary, discardLogger())

	result, err := narrator.GenerateNarrative(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WhyThisVerdict != "only secondary" {
		t.Errorf("expected secondary result, got: %q", result.WhyThisVerdict)
	}
}

func TestFallbackNarrator_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := errors.New("primary blew up")
	primary := &stubNarrator{err: primaryErr}

	narrator := llm.NewFallbackNarrator(primary, nil, discardLogger())

	_, err := narrator.GenerateNarrative(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, primaryErr) {
		t.Errorf("expected to find primaryErr in chain, got: %v", err)
	}
}

func TestFallbackNarrator_ContactRiskFailover(t *testing.T) {
	primary := &stubNarrator{err: errors.New("openai 500")}
	secondary := &stubNarrator{
		risk: llm.ContactRisk{RiskLevel: llm.RiskHigh, RiskScore: 80, Analysis: "위험"},
	}

	narrator := llm.NewFallbackNarrator(primary, secondary, discardLogger())

	result, err := narrator.AnalyzeContactRisk(context.Background(), llm.ContactRiskInput{
		ProposedMessage: "우리 다시 만나자",
		Scores:          scoring.Scores{A: 70, B: 30, C: 30, R: 30, G: 40},
		Verdict:         verdict.Decide(70, 30, 30),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskLevel != llm.RiskHigh || result.RiskScore != 80 {
		t.Errorf("expected secondary risk result, got %+v", result)
	}
}

// ─── Schema validation ────────────────────────────────────────────────────────

func TestNarrative_Validate(t *testing.T) {
	valid := llm.Narrative{
		WhyThisVerdict: "w",
		YourState:      "y",
		PartnerState:   "p",
		EvidencePoints: []string{},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid narrative rejected: %v", err)
	}

	tests := []struct {
		name string
		n    llm.Narrative
	}{
		{"missing why", llm.Narrative{YourState: "y", PartnerState: "p", EvidencePoints: []string{}}},
		{"missing your_state", llm.Narrative{WhyThisVerdict: "w", PartnerState: "p", EvidencePoints: []string{}}},
		{"missing partner_state", llm.Narrative{WhyThisVerdict: "w", YourState: "y", EvidencePoints: []string{}}},
		{"nil evidence_points", llm.Narrative{WhyThisVerdict: "w", YourState: "y", PartnerState: "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.n.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestContactRisk_Validate(t *testing.T) {
	valid := llm.ContactRisk{RiskLevel: llm.RiskLow, RiskScore: 10, Analysis: "괜찮습니다"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid contact risk rejected: %v", err)
	}

	tests := []struct {
		name string
		c    llm.ContactRisk
	}{
		{"unknown level", llm.ContactRisk{RiskLevel: "EXTREME", RiskScore: 10, Analysis: "a"}},
		{"score too high", llm.ContactRisk{RiskLevel: llm.RiskLow, RiskScore: 101, Analysis: "a"}},
		{"score negative", llm.ContactRisk{RiskLevel: llm.RiskLow, RiskScore: -1, Analysis: "a"}},
		{"empty analysis", llm.ContactRisk{RiskLevel: llm.RiskLow, RiskScore: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
