package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackNarrator wraps two Narrator implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the secondary.
// This gives you OpenAI as the default with Anthropic as the safety net
// (or vice versa — the choice is made in main.go).
type fallbackNarrator struct {
	primary   Narrator
	secondary Narrator
	logger    *slog.Logger
}

// NewFallbackNarrator returns a Narrator that calls primary and, on failure,
// falls back to secondary. Either argument may be nil — if primary is nil it
// goes straight to secondary; if secondary is nil and primary fails, the
// primary error is returned directly.
func NewFallbackNarrator(primary, secondary Narrator, logger *slog.Logger) Narrator {
	return &fallbackNarrator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// GenerateNarrative tries the primary Narrator. If it fails and a secondary is
// configured, it logs the primary error and tries the secondary.
func (f *fallbackNarrator) GenerateNarrative(ctx context.Context, in NarrativeInput) (Narrative, error) {
	if f.primary != nil {
		result, err := f.primary.GenerateNarrative(ctx, in)
		if err == nil {
			return result, nil
		}
		f.logger.Warn("llm: primary narrator failed, trying secondary",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		if f.secondary == nil {
			return Narrative{}, fmt.Errorf("llm: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.GenerateNarrative(ctx, in)
}

// AnalyzeContactRisk applies the same primary-then-secondary policy.
func (f *fallbackNarrator) AnalyzeContactRisk(ctx context.Context, in ContactRiskInput) (ContactRisk, error) {
	if f.primary != nil {
		result, err := f.primary.AnalyzeContactRisk(ctx, in)
		if err == nil {
			return result, nil
		}
		f.logger.Warn("llm: primary narrator failed, trying secondary",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		if f.secondary == nil {
			return ContactRisk{}, fmt.Errorf("llm: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.AnalyzeContactRisk(ctx, in)
}
