// Package api implements the HTTP layer for the relationship diagnostic
// service. Handlers are methods on *Server. Each handler file is responsible
// for one resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/dispatch"
	"github.com/bluenomad/postmortem-backend/internal/payments"
	"github.com/bluenomad/postmortem-backend/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// StripeWebhookSecret is the signing secret from the Stripe dashboard.
	StripeWebhookSecret string

	// Env is "production", "staging", or "development".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// generator runs the scoring → decision → narrative pipeline.
	generator *report.Generator

	// stripe creates PaymentIntents and verifies webhook signatures.
	stripe payments.Client

	// dispatcher queues transactional email off the request path.
	dispatcher dispatch.Enqueuer

	cfg    Config
	logger *slog.Logger

	// seenEvents tracks webhook event IDs already handled by this process.
	// Stripe delivers at-least-once; with no durable store this guard is
	// process-local, and a duplicate slipping through after a restart costs
	// one extra courtesy email.
	seenMu     sync.Mutex
	seenEvents map[string]struct{}
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	generator *report.Generator,
	stripeClient payments.Client,
	dispatcher dispatch.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		generator:  generator,
		stripe:     stripeClient,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		seenEvents: make(map[string]struct{}),
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Diagnostic pipeline — no auth (anonymous one-shot analysis).
		r.Post("/report", s.handleCreateReport)
		r.Post("/contact-risk", s.handleContactRisk)

		// Payments.
		r.Post("/checkout", s.handleCreateCheckout)

		// Stripe webhook — no auth (signature verification inside handler).
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		// Result delivery.
		r.Post("/send-result", s.handleSendResult)
	})

	return r
}
