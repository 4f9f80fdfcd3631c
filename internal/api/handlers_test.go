package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluenomad/postmortem-backend/internal/api"
	"github.com/bluenomad/postmortem-backend/internal/email"
	"github.com/bluenomad/postmortem-backend/internal/payments"
	"github.com/bluenomad/postmortem-backend/internal/report"
	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubPayments satisfies payments.Client. Fields may be set per-test to
// control behaviour.
type stubPayments struct {
	createParams []payments.CreatePaymentIntentParams
	createErr    error

	verifyEvent payments.Event
	verifyErr   error
}

func (p *stubPayments) CreatePaymentIntent(_ context.Context, params payments.CreatePaymentIntentParams) (payments.PaymentIntent, error) {
	p.createParams = append(p.createParams, params)
	if p.createErr != nil {
		return payments.PaymentIntent{}, p.createErr
	}
	return payments.PaymentIntent{
		ID:           "pi_test123",
		ClientSecret: "pi_test123_secret_abc",
	}, nil
}

func (p *stubPayments) VerifyWebhook(_ []byte, sigHeader, _ string) (payments.Event, error) {
	if p.verifyErr != nil {
		return payments.Event{}, p.verifyErr
	}
	if sigHeader != "valid-sig" {
		return payments.Event{}, errors.New("signature mismatch")
	}
	return p.verifyEvent, nil
}

// stubEnqueuer satisfies dispatch.Enqueuer and records handed-off jobs.
type stubEnqueuer struct {
	results  []email.ResultParams
	receipts []email.ReceiptParams
	err      error
}

func (e *stubEnqueuer) EnqueueResult(_ context.Context, p email.ResultParams) error {
	if e.err != nil {
		return e.err
	}
	e.results = append(e.results, p)
	return nil
}

func (e *stubEnqueuer) EnqueueReceipt(_ context.Context, p email.ReceiptParams) error {
	if e.err != nil {
		return e.err
	}
	e.receipts = append(e.receipts, p)
	return nil
}

// ─── TEST HARNESS ─────────────────────────────────────────────────────────────

type testServer struct {
	handler  http.Handler
	payments *stubPayments
	enqueuer *stubEnqueuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pay := &stubPayments{}
	enq := &stubEnqueuer{}

	// Nil narrator: the generator degrades to the deterministic local
	// narrative, which keeps these tests provider-free.
	gen := report.NewGenerator(nil, logger)

	handler := api.NewServer(gen, pay, enq, api.Config{
		StripeWebhookSecret: "whsec_test",
		Env:                 "test",
	}, logger)

	return &testServer{handler: handler, payments: pay, enqueuer: enq}
}

func (ts *testServer) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response (status %d): %v\nbody: %s", rec.Code, err, rec.Body.String())
	}
}

func validReportBody() map[string]any {
	checklist := map[string]int{}
	for _, items := range [][]scoring.ItemSpec{scoring.AItems, scoring.BItems, scoring.CItems} {
		for _, spec := range items {
			checklist[spec.QID] = 3
		}
	}
	return map[string]any{
		"user_text": "연락이 끊긴 지 2주가 넘었고 아직도 답장을 기다리고 있습니다.",
		"structured": map[string]string{
			"last_interaction_type": "A",
			"contact_initiation":    "A",
			"partner_state":         "A",
		},
		"checklist": checklist,
	}
}

// ─── HEALTH ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

// ─── POST /api/report ─────────────────────────────────────────────────────────

func TestCreateReport_Success(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/report", validReportBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp report.Response
	decodeBody(t, rec, &resp)

	validCode := false
	for _, c := range verdict.Codes {
		if resp.Verdict.Code == c {
			validCode = true
		}
	}
	if !validCode {
		t.Errorf("verdict code: got %q", resp.Verdict.Code)
	}
	if len(resp.CTAs) != 3 {
		t.Errorf("ctas: got %d, want 3", len(resp.CTAs))
	}
	if resp.Narrative.WhyThisVerdict == "" || resp.Narrative.YourState == "" {
		t.Error("narrative fields should never be empty")
	}
}

func TestCreateReport_ShortUserTextRejected(t *testing.T) {
	ts := newTestServer(t)
	body := validReportBody()
	body["user_text"] = "짧음"
	rec := ts.postJSON(t, "/api/report", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "입력 데이터가 올바르지 않습니다." {
		t.Errorf("error message: got %q", resp["error"])
	}
	if resp["details"] == "" {
		t.Error("expected details field on validation failure")
	}
}

func TestCreateReport_InvalidStructuredAnswerRejected(t *testing.T) {
	ts := newTestServer(t)
	body := validReportBody()
	body["structured"] = map[string]string{
		"last_interaction_type": "E",
		"contact_initiation":    "A",
		"partner_state":         "A",
	}
	rec := ts.postJSON(t, "/api/report", body)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestCreateReport_MalformedJSONRejected(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

// ─── POST /api/contact-risk ───────────────────────────────────────────────────

func TestContactRisk_FallbackWithNilNarrator(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/contact-risk", map[string]any{
		"proposed_message": "자니? 우리 얘기 좀 하자.",
		"scores":           scoring.Scores{A: 70, B: 30, C: 30, R: 30, G: 40},
		"verdict":          verdict.Decide(70, 30, 30),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RiskLevel string `json:"risk_level"`
		RiskScore int    `json:"risk_score"`
		Analysis  string `json:"analysis"`
	}
	decodeBody(t, rec, &resp)
	if resp.RiskLevel != "MEDIUM" || resp.RiskScore != 50 {
		t.Errorf("fallback result: got %s/%d, want MEDIUM/50", resp.RiskLevel, resp.RiskScore)
	}
	if resp.Analysis == "" {
		t.Error("analysis should never be empty")
	}
}

func TestContactRisk_MissingFieldsRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/contact-risk", map[string]any{
		"proposed_message": "",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

// ─── POST /api/checkout ───────────────────────────────────────────────────────

func TestCreateCheckout_Success(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/checkout", map[string]string{
		"sku":   report.SKUTextRisk,
		"email": "buyer@example.com",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ClientSecret string `json:"client_secret"`
		OrderID      string `json:"order_id"`
		Amount       int64  `json:"amount"`
	}
	decodeBody(t, rec, &resp)
	if resp.ClientSecret != "pi_test123_secret_abc" {
		t.Errorf("client_secret: got %q", resp.ClientSecret)
	}
	if !strings.HasPrefix(resp.OrderID, "ord_") {
		t.Errorf("order_id: got %q, want ord_ prefix", resp.OrderID)
	}
	if resp.Amount != 5900 {
		t.Errorf("amount: got %d, want 5900", resp.Amount)
	}

	if len(ts.payments.createParams) != 1 {
		t.Fatalf("expected 1 CreatePaymentIntent call, got %d", len(ts.payments.createParams))
	}
	params := ts.payments.createParams[0]
	if params.Currency != "krw" {
		t.Errorf("currency: got %q", params.Currency)
	}
	if params.Amount != 5900 {
		t.Errorf("amount sent to Stripe: got %d", params.Amount)
	}
	if params.Metadata["sku"] != report.SKUTextRisk {
		t.Errorf("metadata sku: got %q", params.Metadata["sku"])
	}
	if params.Metadata["order_id"] != resp.OrderID {
		t.Errorf("metadata order_id %q does not match response %q", params.Metadata["order_id"], resp.OrderID)
	}
}

func TestCreateCheckout_UnknownSKURejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/checkout", map[string]string{
		"sku":   "FREE_LUNCH",
		"email": "buyer@example.com",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	if len(ts.payments.createParams) != 0 {
		t.Error("Stripe should not be called for an unknown SKU")
	}
}

func TestCreateCheckout_MissingEmailRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/checkout", map[string]string{"sku": report.SKURecheck14D})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestCreateCheckout_StripeErrorReturns500(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.createErr = errors.New("stripe: down")
	rec := ts.postJSON(t, "/api/checkout", map[string]string{
		"sku":   report.SKUSimulation,
		"email": "buyer@example.com",
	})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
}

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

func succeededEvent(id string) payments.Event {
	raw, _ := json.Marshal(map[string]any{
		"id":            "pi_evt_test",
		"amount":        7900,
		"currency":      "krw",
		"receipt_email": "buyer@example.com",
		"metadata": map[string]string{
			"sku":      report.SKURecheck14D,
			"order_id": "ord_abc",
		},
	})
	return payments.Event{ID: id, Type: "payment_intent.succeeded", DataRaw: raw}
}

func postWebhook(ts *testServer, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", sig)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_InvalidSignatureRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.verifyEvent = succeededEvent("evt_1")

	rec := postWebhook(ts, "bad-sig")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	if len(ts.enqueuer.receipts) != 0 {
		t.Error("no receipt should be enqueued for an unverified event")
	}
}

func TestStripeWebhook_PaymentSucceededEnqueuesReceipt(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.verifyEvent = succeededEvent("evt_2")

	rec := postWebhook(ts, "valid-sig")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	if len(ts.enqueuer.receipts) != 1 {
		t.Fatalf("expected 1 receipt enqueued, got %d", len(ts.enqueuer.receipts))
	}
	receipt := ts.enqueuer.receipts[0]
	if receipt.To != "buyer@example.com" {
		t.Errorf("To: got %q", receipt.To)
	}
	if receipt.Amount != 7900 {
		t.Errorf("Amount: got %d", receipt.Amount)
	}
	if receipt.ProductName != "관계 변화 후 재분석 리포트" {
		t.Errorf("ProductName: got %q", receipt.ProductName)
	}
	if receipt.OrderID != "ord_abc" {
		t.Errorf("OrderID: got %q", receipt.OrderID)
	}
}

func TestStripeWebhook_DuplicateEventSkipped(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.verifyEvent = succeededEvent("evt_dup")

	if rec := postWebhook(ts, "valid-sig"); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: got %d, want 200", rec.Code)
	}
	if rec := postWebhook(ts, "valid-sig"); rec.Code != http.StatusOK {
		t.Fatalf("second delivery: got %d, want 200", rec.Code)
	}

	if len(ts.enqueuer.receipts) != 1 {
		t.Errorf("expected 1 receipt for duplicate deliveries, got %d", len(ts.enqueuer.receipts))
	}
}

func TestStripeWebhook_UnhandledEventAcked(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.verifyEvent = payments.Event{ID: "evt_3", Type: "charge.refunded", DataRaw: []byte(`{}`)}

	rec := postWebhook(ts, "valid-sig")
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if len(ts.enqueuer.receipts) != 0 {
		t.Error("no receipt should be enqueued for an unhandled event type")
	}
}

func TestStripeWebhook_MissingReceiptEmailStillAcked(t *testing.T) {
	ts := newTestServer(t)
	raw, _ := json.Marshal(map[string]any{"id": "pi_noemail", "amount": 5900})
	ts.payments.verifyEvent = payments.Event{ID: "evt_4", Type: "payment_intent.succeeded", DataRaw: raw}

	rec := postWebhook(ts, "valid-sig")
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if len(ts.enqueuer.receipts) != 0 {
		t.Error("no receipt should be enqueued without an email address")
	}
}

// ─── POST /api/send-result ────────────────────────────────────────────────────

func TestSendResult_Success(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/send-result", map[string]any{
		"email":             "user@example.com",
		"verdict_code":      verdict.CompoundCrisis,
		"scores":            scoring.Scores{A: 72, B: 31, C: 28, R: 30, G: 42},
		"situation_summary": "어제 010-1234-5678로 전화했지만 받지 않았습니다.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	if len(ts.enqueuer.results) != 1 {
		t.Fatalf("expected 1 result enqueued, got %d", len(ts.enqueuer.results))
	}
	job := ts.enqueuer.results[0]
	if job.Code != verdict.CompoundCrisis {
		t.Errorf("Code: got %q", job.Code)
	}
	if job.Scores.A != 72 {
		t.Errorf("Scores.A: got %d", job.Scores.A)
	}
	if strings.Contains(job.Summary, "010-1234-5678") {
		t.Error("summary should have the phone number redacted before enqueue")
	}
	if !strings.Contains(job.Summary, "[전화번호]") {
		t.Errorf("summary should carry the redaction placeholder, got %q", job.Summary)
	}
}

func TestSendResult_InvalidEmailRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/send-result", map[string]any{
		"email":        "not-an-email",
		"verdict_code": verdict.AnxietyOnly,
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestSendResult_MissingVerdictRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.postJSON(t, "/api/send-result", map[string]any{
		"email": "user@example.com",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestSendResult_EnqueueFailureReturns500(t *testing.T) {
	ts := newTestServer(t)
	ts.enqueuer.err = errors.New("dispatch: queue is full")
	rec := ts.postJSON(t, "/api/send-result", map[string]any{
		"email":        "user@example.com",
		"verdict_code": verdict.WaitAndObserve,
	})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
}
