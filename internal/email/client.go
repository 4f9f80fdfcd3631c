// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation.
package email

import (
	"context"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// ResultParams holds the data needed to send the analysis-result email.
type ResultParams struct {
	To      string       // recipient email address
	Code    verdict.Code // decided verdict; drives the subject and body copy
	Scores  scoring.Scores
	Summary string // redacted situation summary; may be empty
}

// ReceiptParams holds the data for the post-payment receipt email.
type ReceiptParams struct {
	To          string
	ProductName string
	Amount      int64 // KRW — zero-decimal, 7900 means ₩7,900
	OrderID     string
	ApprovedAt  time.Time
}

// Sender is the interface the dispatch workers use to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendResult sends the finished analysis summary. Called by the dispatch
	// worker after the /api/send-result handler enqueues a job.
	SendResult(ctx context.Context, p ResultParams) error

	// SendReceipt sends the purchase receipt. Called by the dispatch worker
	// after the Stripe webhook confirms a payment.
	SendReceipt(ctx context.Context, p ReceiptParams) error
}
