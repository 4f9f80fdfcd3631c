package report

import (
	"context"
	"log/slog"

	"github.com/bluenomad/postmortem-backend/internal/evidence"
	"github.com/bluenomad/postmortem-backend/internal/llm"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// Generator runs the report pipeline. Each step is a separate stage so the
// Generate method reads like a spec. The narrator is injected at construction
// time and reused across requests; no per-request state survives Generate.
type Generator struct {
	narrator llm.Narrator
	logger   *slog.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(narrator llm.Narrator, logger *slog.Logger) *Generator {
	return &Generator{
		narrator: narrator,
		logger:   logger,
	}
}

// Generate executes the full pipeline for one validated request:
//
//  1. Redact sensitive substrings from the situation text.
//  2. Compute scores from the checklist and structured answers.
//  3. Decide the verdict — frozen from here on.
//  4. Extract evidence points from the redacted text.
//  5. Generate the narrative. Provider failure or a schema-invalid response
//     degrades to the deterministic local fallback; it never fails the report
//     and never feeds back into scores or verdict.
//  6. Attach the CTA set.
//
// Callers must run Request.Validate first; Generate itself cannot fail.
func (g *Generator) Generate(ctx context.Context, req Request) Response {
	// ── 1. Redaction ──────────────────────────────────────────────────────────
	sanitized := evidence.Redact(req.UserText)

	// ── 2. Scores ─────────────────────────────────────────────────────────────
	scores := scoring.ComputeScores(req.Checklist, req.Structured)

	// ── 3. Verdict ────────────────────────────────────────────────────────────
	v := verdict.Decide(scores.A, scores.B, scores.C)

	// ── 4. Evidence ───────────────────────────────────────────────────────────
	points := evidence.ExtractPoints(sanitized)

	// ── 5. Narrative ──────────────────────────────────────────────────────────
	narrative := g.narrate(ctx, llm.NarrativeInput{
		UserText:       sanitized,
		Structured:     req.Structured,
		Scores:         scores,
		Verdict:        v,
		EvidencePoints: points,
	})

	// ── 6. CTAs ───────────────────────────────────────────────────────────────
	ctas := BuildCTAs(v.Code)

	return Response{
		Scores:    scores,
		Verdict:   v,
		Narrative: narrative,
		CTAs:      ctas,
	}
}

// narrate wraps the narrator call with the fallback contract: any error, and
// any response that slips through without a valid schema, becomes the
// deterministic local narrative. The degradation is logged for operators and
// invisible to the user.
func (g *Generator) narrate(ctx context.Context, in llm.NarrativeInput) llm.Narrative {
	if g.narrator == nil {
		return llm.DefaultNarrative(in.Scores, in.Verdict, in.EvidencePoints)
	}

	narrative, err := g.narrator.GenerateNarrative(ctx, in)
	if err != nil {
		g.logger.Warn("report: narrative generation failed, using fallback",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		return llm.DefaultNarrative(in.Scores, in.Verdict, in.EvidencePoints)
	}
	if err := narrative.Validate(); err != nil {
		g.logger.Warn("report: narrative failed schema validation, using fallback",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		return llm.DefaultNarrative(in.Scores, in.Verdict, in.EvidencePoints)
	}

	return narrative
}

// AnalyzeContactRisk runs the secondary LLM variant with the same fallback
// discipline: a failed or invalid analysis degrades to the fixed neutral
// result, never an error.
func (g *Generator) AnalyzeContactRisk(ctx context.Context, in llm.ContactRiskInput) llm.ContactRisk {
	if g.narrator == nil {
		return llm.DefaultContactRisk()
	}

	// Same boundary rule as Generate: no raw user text past this point.
	in.ProposedMessage = evidence.Redact(in.ProposedMessage)

	risk, err := g.narrator.AnalyzeContactRisk(ctx, in)
	if err != nil {
		g.logger.Warn("report: contact risk analysis failed, using fallback",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		return llm.DefaultContactRisk()
	}
	if err := risk.Validate(); err != nil {
		g.logger.Warn("report: contact risk failed schema validation, using fallback",
			"error", err,
			"verdict", in.Verdict.Code,
		)
		return llm.DefaultContactRisk()
	}

	return risk
}
