package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bluenomad/postmortem-backend/internal/payments"
	"github.com/bluenomad/postmortem-backend/internal/report"
	"github.com/google/uuid"
)

// ─── POST /api/checkout ───────────────────────────────────────────────────────

type createCheckoutRequest struct {
	SKU   string `json:"sku"`
	Email string `json:"email"`
}

type createCheckoutResponse struct {
	// ClientSecret is the Stripe PaymentIntent client_secret. The browser
	// passes this to Stripe.js to render the payment UI and confirm the charge.
	ClientSecret string `json:"client_secret"`
	OrderID      string `json:"order_id"`
	Amount       int64  `json:"amount"`
	ProductName  string `json:"product_name"`
}

// handleCreateCheckout creates a Stripe PaymentIntent for one of the catalog
// SKUs and returns the client_secret to the browser.
//
// The amount always comes from the server-side catalog — the client sends only
// the SKU, never a price. The order ID is minted here and travels in the PI
// metadata so the webhook can tie the receipt email back to the purchase.
func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	if req.SKU == "" || req.Email == "" {
		respondErr(w, http.StatusBadRequest, "필수 파라미터가 누락되었습니다.")
		return
	}
	if !strings.Contains(req.Email, "@") {
		respondErr(w, http.StatusBadRequest, "유효한 이메일 주소를 입력해주세요.")
		return
	}

	cta, ok := report.FindCTA(req.SKU)
	if !ok {
		respondErr(w, http.StatusBadRequest, "알 수 없는 상품입니다.")
		return
	}

	orderID := "ord_" + uuid.NewString()

	pi, err := s.stripe.CreatePaymentIntent(r.Context(), payments.CreatePaymentIntentParams{
		Amount:   cta.Price, // KRW is zero-decimal: 7900 means ₩7,900
		Currency: "krw",
		Email:    req.Email,
		Metadata: map[string]string{
			"sku":      cta.SKU,
			"order_id": orderID,
		},
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create payment intent: %w", err))
		return
	}

	s.logger.Info("checkout: payment intent created",
		"sku", cta.SKU,
		"order_id", orderID,
		"pi", pi.ID,
		logField(r),
	)

	respond(w, http.StatusOK, createCheckoutResponse{
		ClientSecret: pi.ClientSecret,
		OrderID:      orderID,
		Amount:       cta.Price,
		ProductName:  cta.Title,
	})
}
