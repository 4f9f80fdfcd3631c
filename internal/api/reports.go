package api

import (
	"net/http"

	"github.com/bluenomad/postmortem-backend/internal/llm"
	"github.com/bluenomad/postmortem-backend/internal/report"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// ─── POST /api/report ─────────────────────────────────────────────────────────

// handleCreateReport runs the full diagnostic pipeline for one submission.
//
// Validation is the only rejection point. Once the request is accepted the
// response is always a complete report: the generator absorbs provider
// failures internally, so this handler has no 5xx path of its own.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req report.Request
	if !decode(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		s.logger.Info("report: rejected request", "error", err, logField(r))
		respond(w, http.StatusBadRequest, map[string]string{
			"error":   "입력 데이터가 올바르지 않습니다.",
			"details": err.Error(),
		})
		return
	}

	resp := s.generator.Generate(r.Context(), req)
	respond(w, http.StatusOK, resp)
}

// ─── POST /api/contact-risk ───────────────────────────────────────────────────

type contactRiskRequest struct {
	ProposedMessage string          `json:"proposed_message"`
	Scores          scoring.Scores  `json:"scores"`
	Verdict         verdict.Verdict `json:"verdict"`
}

// handleContactRisk evaluates a message the user is about to send, anchored to
// the scores and verdict of an already-generated report. Same degradation
// contract as the report pipeline: analysis failures produce the fixed neutral
// result, never an error response.
func (s *Server) handleContactRisk(w http.ResponseWriter, r *http.Request) {
	var req contactRiskRequest
	if !decode(w, r, &req) {
		return
	}

	if req.ProposedMessage == "" || req.Verdict.Code == "" {
		respondErr(w, http.StatusBadRequest, "필수 데이터가 누락되었습니다.")
		return
	}

	result := s.generator.AnalyzeContactRisk(r.Context(), llm.ContactRiskInput{
		ProposedMessage: req.ProposedMessage,
		Scores:          req.Scores,
		Verdict:         req.Verdict,
	})

	respond(w, http.StatusOK, result)
}
