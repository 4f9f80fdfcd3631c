package api

import (
	"net/http"
	"strings"

	"github.com/bluenomad/postmortem-backend/internal/email"
	"github.com/bluenomad/postmortem-backend/internal/evidence"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// ─── POST /api/send-result ────────────────────────────────────────────────────

type sendResultRequest struct {
	Email            string         `json:"email"`
	VerdictCode      verdict.Code   `json:"verdict_code"`
	Scores           scoring.Scores `json:"scores"`
	SituationSummary string         `json:"situation_summary"`
}

type sendResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleSendResult queues the finished analysis summary for email delivery.
// The response means "accepted for delivery" — actual sending happens in the
// dispatch pool with its own retries.
func (s *Server) handleSendResult(w http.ResponseWriter, r *http.Request) {
	var req sendResultRequest
	if !decode(w, r, &req) {
		return
	}

	if !strings.Contains(req.Email, "@") {
		respondErr(w, http.StatusBadRequest, "유효한 이메일 주소를 입력해주세요.")
		return
	}
	if req.VerdictCode == "" {
		respondErr(w, http.StatusBadRequest, "분석 결과가 없습니다.")
		return
	}

	err := s.dispatcher.EnqueueResult(r.Context(), email.ResultParams{
		To:      req.Email,
		Code:    req.VerdictCode,
		Scores:  req.Scores,
		Summary: evidence.Redact(req.SituationSummary),
	})
	if err != nil {
		s.logger.Error("send-result: enqueue failed", "error", err, logField(r))
		respondErr(w, http.StatusInternalServerError, "이메일 전송에 실패했습니다. 잠시 후 다시 시도해주세요.")
		return
	}

	respond(w, http.StatusOK, sendResultResponse{
		Success: true,
		Message: "이메일이 성공적으로 전송되었습니다.",
	})
}
