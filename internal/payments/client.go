// Package payments defines the interface for Stripe API calls and webhook
// verification used by the checkout and webhook handlers.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CreatePaymentIntentParams holds the inputs for creating a Stripe PI.
// Amount is in KRW, which Stripe treats as zero-decimal: 7900 means ₩7,900.
type CreatePaymentIntentParams struct {
	Amount   int64
	Currency string
	Email    string
	Metadata map[string]string
}

// PaymentIntent is the subset of a Stripe PaymentIntent that callers need.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	CustomerID   string // may be empty if no Customer was created
}

// Event is a parsed Stripe webhook event. DataRaw contains the raw JSON of the
// event's data.object so handlers can unmarshal only what they need.
type Event struct {
	ID      string
	Type    string
	DataRaw json.RawMessage
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the api package uses for all Stripe calls.
// The concrete implementation wraps the official stripe-go SDK.
// Tests inject a stub.
type Client interface {
	// CreatePaymentIntent creates a new PI and returns its client_secret.
	CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error)

	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event. Returns an error if the signature is invalid or expired.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── EVENT HELPERS ────────────────────────────────────────────────────────────

// succeededIntent is the slice of a payment_intent object the webhook handler
// needs to send the receipt email.
type succeededIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// ConfirmedPayment is the normalized view of a succeeded PaymentIntent event.
type ConfirmedPayment struct {
	PaymentIntentID string
	Amount          int64
	Currency        string
	Email           string
	SKU             string
	OrderID         string
}

// ExtractConfirmedPayment pulls the fields the receipt flow needs from a
// payment_intent.succeeded event. The SKU and order ID travel in the PI
// metadata written at checkout time.
func ExtractConfirmedPayment(event Event) (ConfirmedPayment, error) {
	var obj succeededIntent
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return ConfirmedPayment{}, fmt.Errorf("payments: unmarshal payment intent: %w", err)
	}
	if obj.ID == "" {
		return ConfirmedPayment{}, fmt.Errorf("payments: payment intent id is empty in event %s", event.ID)
	}

	return ConfirmedPayment{
		PaymentIntentID: obj.ID,
		Amount:          obj.Amount,
		Currency:        obj.Currency,
		Email:           obj.ReceiptEmail,
		SKU:             obj.Metadata["sku"],
		OrderID:         obj.Metadata["order_id"],
	}, nil
}

// ExtractPaymentIntentID pulls just the id field from the event's data.object.
// Works for any payment_intent.* event.
func ExtractPaymentIntentID(event Event) (string, error) {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return "", fmt.Errorf("payments: unmarshal payment intent id: %w", err)
	}
	if obj.ID == "" {
		return "", fmt.Errorf("payments: payment intent id is empty in event %s", event.ID)
	}
	return obj.ID, nil
}
