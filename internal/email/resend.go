package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "noreply@testresults.bluenomad.space"
	fromName   string // e.g. "마음정리연구소"
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName string) Sender {
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── VERDICT DISPLAY COPY ─────────────────────────────────────────────────────

// verdictLabels maps verdict codes to the Korean display names used in the
// subject line and the result card.
var verdictLabels = map[verdict.Code]string{
	verdict.AnxietyOnly:         "내 불안 주도",
	verdict.PartnerWithdrawal:   "상대 이탈",
	verdict.CompoundCrisis:      "복합 위기",
	verdict.WaitAndObserve:      "관망 구간",
	verdict.ReunionConsiderable: "재회 검토 가능",
}

var verdictDescriptions = map[verdict.Code]string{
	verdict.CompoundCrisis:    "감정 반응은 높지만, 상대의 관계 투자와 상호성은 이미 크게 감소한 상태입니다.",
	verdict.PartnerWithdrawal: "상대가 관계에서 이미 이탈한 상태로, 현재 접촉은 회피를 강화할 가능성이 높습니다.",
	verdict.AnxietyOnly:       "관계 자체는 유지되고 있으나, 당신의 불안 반응이 관계를 압박하고 있습니다.",
	verdict.WaitAndObserve:    "끝났다고 단정하기도, 재회를 밀어붙이기도 위험한 관망 구간입니다.",
}

const defaultVerdictDescription = "당신의 감정 투자와 상대의 반응 사이에 불균형이 존재합니다."

func verdictLabel(code verdict.Code) string {
	if label, ok := verdictLabels[code]; ok {
		return label
	}
	return "감정 비대칭"
}

func verdictDescription(code verdict.Code) string {
	if desc, ok := verdictDescriptions[code]; ok {
		return desc
	}
	return defaultVerdictDescription
}

func actionAdvice(code verdict.Code) string {
	switch code {
	case verdict.CompoundCrisis, verdict.PartnerWithdrawal:
		return "연락 중단 + 감정 안정 기간 확보"
	case verdict.AnxietyOnly:
		return "불안 반응 조절 + 거리두기 연습"
	case verdict.ReunionConsiderable:
		return "전략적 거리두기 유지"
	default:
		return "현실 기반 판단 + 감정 분리"
	}
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendResult sends the analysis-result summary email.
func (c *resendClient) SendResult(ctx context.Context, p ResultParams) error {
	label := verdictLabel(p.Code)
	subject := fmt.Sprintf("💕 당신의 관계 패턴 분석 결과: %s", label)

	html := resultHTML(label, verdictDescription(p.Code), actionAdvice(p.Code), p)

	return c.send(ctx, p.To, subject, html)
}

// SendReceipt sends the post-payment receipt email.
func (c *resendClient) SendReceipt(ctx context.Context, p ReceiptParams) error {
	product := p.ProductName
	if product == "" {
		product = "리포트"
	}
	subject := fmt.Sprintf("💕 %s 구매가 완료되었습니다", product)

	html := receiptHTML(product, p)

	return c.send(ctx, p.To, subject, html)
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, html string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	reqBody := resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.resend.com/emails",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// formatKRW renders 7900 as "₩7,900".
func formatKRW(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-₩" + string(out)
	}
	return "₩" + string(out)
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

func resultHTML(label, description, advice string, p ResultParams) string {
	summarySection := ""
	if p.Summary != "" {
		summarySection = fmt.Sprintf(`
  <div style="background: #f3f4f6; border-radius: 12px; padding: 24px; margin-bottom: 24px;">
    <h3 style="color: #1f2937; margin: 0 0 12px 0; font-size: 16px;">📝 입력하신 상황</h3>
    <p style="color: #6b7280; margin: 0; font-size: 14px; line-height: 1.6;">%s</p>
  </div>`, p.Summary)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif; background: #f8fafc; max-width: 600px; margin: 0 auto; padding: 40px 20px;">
  <div style="background: #1e293b; padding: 24px; text-align: center; border-radius: 12px 12px 0 0;">
    <p style="color: #ffffff; font-size: 20px; font-weight: bold; margin: 0;">🔍 관계진단리포트</p>
  </div>
  <div style="background: #ffffff; padding: 32px 40px; border-radius: 0 0 12px 12px;">
    <h1 style="color: #1e293b; font-size: 24px; text-align: center; margin: 0 0 24px;">관계 진단 결과</h1>

    <div style="background: #fef2f2; border: 1px solid #fecaca; border-radius: 12px; padding: 24px; text-align: center; margin-bottom: 24px;">
      <p style="color: #666666; margin: 0 0 8px 0;">현재 이 관계는</p>
      <p style="color: #e11d48; font-size: 20px; font-weight: bold; margin: 0 0 12px 0;">'%s' 상태입니다</p>
      <p style="color: #6b7280; font-size: 14px; margin: 0;">%s</p>
    </div>
%s
    <h3 style="color: #1f2937; font-size: 16px;">📊 점수 분석</h3>
    <table style="width: 100%%; border-collapse: collapse;" cellpadding="0" cellspacing="0">
      <tbody>
        <tr><td style="padding: 10px 12px; color: #374151; font-size: 14px;">애착 반응 지수 (A)</td><td style="padding: 10px 12px; text-align: right; font-weight: bold;">%d/100</td></tr>
        <tr style="background: #f8fafc;"><td style="padding: 10px 12px; color: #374151; font-size: 14px;">관계 투자 지수 (B)</td><td style="padding: 10px 12px; text-align: right; font-weight: bold;">%d/100</td></tr>
        <tr><td style="padding: 10px 12px; color: #374151; font-size: 14px;">상호성 지수 (C)</td><td style="padding: 10px 12px; text-align: right; font-weight: bold;">%d/100</td></tr>
        <tr style="background: #f8fafc;"><td style="padding: 10px 12px; color: #374151; font-size: 14px;">관계 현실 지수 (R)</td><td style="padding: 10px 12px; text-align: right; font-weight: bold;">%d/100</td></tr>
      </tbody>
    </table>

    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">

    <h3 style="color: #1f2937; font-size: 16px;">📌 지금 가장 이득인 선택</h3>
    <p style="color: #1f2937; font-weight: bold; margin: 0 0 8px 0;">%s</p>
    <p style="color: #6b7280; font-size: 14px; margin: 0;">
      이 선택은 이별을 확정하라는 의미가 아니라,
      더 큰 손해를 막기 위한 전략적 정지입니다.
    </p>

    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">

    <h3 style="color: #b91c1c; font-size: 16px;">⚠️ 주의사항</h3>
    <p style="color: #6b7280; font-size: 14px; margin: 0;">
      지금 이 상태에서 충동적으로 연락하면
      관계 회복 선택지는 더 줄어듭니다.
    </p>

    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">

    <h3 style="color: #1f2937; font-size: 16px;">📋 결과가 바뀔 수 있는 조건</h3>
    <p style="color: #6b7280; font-size: 14px; margin: 0 0 4px 0;">• 상대의 자발적 반응</p>
    <p style="color: #6b7280; font-size: 14px; margin: 0 0 4px 0;">• 연락 주도권 변화</p>
    <p style="color: #6b7280; font-size: 14px; margin: 0;">• 감정 표현 신호 발생</p>
  </div>
  <div style="text-align: center; color: #9ca3af; font-size: 12px; padding: 24px;">
    <p style="margin: 0 0 4px 0;">© 관계진단리포트. All rights reserved.</p>
    <p style="margin: 0;">본 서비스는 개인의 성향을 단정하지 않으며, 입력된 정보와 현재 관계 행동 구조를 기반으로 한 심리학적 분석 결과를 제공합니다.</p>
  </div>
</body>
</html>`,
		label, description, summarySection,
		p.Scores.A, p.Scores.B, p.Scores.C, p.Scores.R,
		advice)
}

func receiptHTML(product string, p ReceiptParams) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif; max-width: 600px; margin: 0 auto; padding: 40px 20px;">
  <div style="text-align: center; margin-bottom: 40px;">
    <h1 style="color: #e11d48; margin-bottom: 10px;">💕 마음정리연구소</h1>
    <p style="color: #6b7280;">결제가 완료되었습니다</p>
  </div>

  <div style="background: #fef2f2; border-radius: 12px; padding: 24px; margin-bottom: 24px;">
    <h2 style="color: #1f2937; margin: 0 0 16px 0; font-size: 18px;">%s</h2>
    <p style="color: #6b7280; margin: 0 0 8px 0; font-size: 14px;">
      <strong>결제 금액:</strong> %s
    </p>
    <p style="color: #6b7280; margin: 0 0 8px 0; font-size: 14px;">
      <strong>주문 번호:</strong> %s
    </p>
    <p style="color: #6b7280; margin: 0; font-size: 14px;">
      <strong>결제 일시:</strong> %s
    </p>
  </div>

  <div style="background: #f3f4f6; border-radius: 12px; padding: 24px; margin-bottom: 24px;">
    <h3 style="color: #1f2937; margin: 0 0 12px 0; font-size: 16px;">📋 안내사항</h3>
    <p style="color: #6b7280; margin: 0; font-size: 14px; line-height: 1.6;">
      구매하신 리포트는 준비가 완료되는 대로 이 이메일 주소로 발송됩니다.
      문의사항이 있으시면 언제든지 연락해 주세요.
    </p>
  </div>

  <div style="text-align: center; color: #9ca3af; font-size: 12px;">
    <p>이 이메일은 마음정리연구소에서 발송되었습니다.</p>
  </div>
</body>
</html>`,
		product,
		formatKRW(p.Amount),
		p.OrderID,
		p.ApprovedAt.Format("2006-01-02 15:04"))
}
