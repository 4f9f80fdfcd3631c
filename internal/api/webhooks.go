package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/email"
	"github.com/bluenomad/postmortem-backend/internal/payments"
	"github.com/bluenomad/postmortem-backend/internal/report"
)

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

// handleStripeWebhook is the entry point for all Stripe webhook deliveries.
//
// Stripe delivers events at-least-once and may retry on non-2xx responses.
// The only event we act on is payment_intent.succeeded, which queues the
// purchase-receipt email. Everything else is acked immediately so Stripe stops
// retrying.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// Stripe recommends reading the raw body before any other processing so
	// the signature check runs against the exact bytes Stripe signed.
	r.Body = http.MaxBytesReader(w, r.Body, 65536) // 64 KB — generous for any Stripe event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the Stripe-Signature header ─────────────────────────────────
	sig := r.Header.Get("Stripe-Signature")
	event, err := s.stripe.VerifyWebhook(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	// ── 3. Duplicate guard ────────────────────────────────────────────────────
	if s.markEventSeen(event.ID) {
		s.logger.Debug("webhook: duplicate event, skipping", "event_id", event.ID, logField(r))
		w.WriteHeader(http.StatusOK)
		return
	}

	// ── 4. Dispatch by event type ─────────────────────────────────────────────
	switch event.Type {
	case "payment_intent.succeeded":
		s.onPaymentSucceeded(r, event)

	case "payment_intent.payment_failed":
		s.onPaymentFailed(r, event)

	default:
		s.logger.Debug("webhook: unhandled event type", "type", event.Type, logField(r))
	}

	// Always ack. The receipt email is best-effort: a delivery failure is
	// retried by the dispatch pool, not by Stripe.
	w.WriteHeader(http.StatusOK)
}

// markEventSeen records the event ID and reports whether it was already known.
// The set is process-local; it is pruned wholesale once it grows past 4096
// entries, which comfortably exceeds Stripe's retry window at this volume.
func (s *Server) markEventSeen(eventID string) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	if _, ok := s.seenEvents[eventID]; ok {
		return true
	}
	if len(s.seenEvents) >= 4096 {
		s.seenEvents = make(map[string]struct{})
	}
	s.seenEvents[eventID] = struct{}{}
	return false
}

// ─── EVENT HANDLERS ───────────────────────────────────────────────────────────

func (s *Server) onPaymentSucceeded(r *http.Request, event payments.Event) {
	cp, err := payments.ExtractConfirmedPayment(event)
	if err != nil {
		s.logger.Error("webhook: malformed payment_intent.succeeded",
			"event_id", event.ID,
			"error", err,
			logField(r),
		)
		return
	}

	if !strings.Contains(cp.Email, "@") {
		s.logger.Info("webhook: payment confirmed without receipt email",
			"pi", cp.PaymentIntentID,
			"order_id", cp.OrderID,
			logField(r),
		)
		return
	}

	productName := ""
	if cta, ok := report.FindCTA(cp.SKU); ok {
		productName = cta.Title
	}

	err = s.dispatcher.EnqueueReceipt(r.Context(), email.ReceiptParams{
		To:          cp.Email,
		ProductName: productName,
		Amount:      cp.Amount,
		OrderID:     cp.OrderID,
		ApprovedAt:  time.Now(),
	})
	if err != nil {
		s.logger.Error("webhook: receipt enqueue failed",
			"pi", cp.PaymentIntentID,
			"order_id", cp.OrderID,
			"error", err,
			logField(r),
		)
		return
	}

	s.logger.Info("webhook: payment confirmed",
		"pi", cp.PaymentIntentID,
		"order_id", cp.OrderID,
		"amount", cp.Amount,
		"currency", cp.Currency,
		logField(r),
	)
}

func (s *Server) onPaymentFailed(r *http.Request, event payments.Event) {
	piID, err := payments.ExtractPaymentIntentID(event)
	if err != nil {
		s.logger.Warn("webhook: payment_failed without PI id", "event_id", event.ID, logField(r))
		return
	}

	// Informational only — there is no order state to roll back.
	s.logger.Info("webhook: payment failed", "pi", piID, logField(r))
}
