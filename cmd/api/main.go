package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/api"
	"github.com/bluenomad/postmortem-backend/internal/config"
	"github.com/bluenomad/postmortem-backend/internal/dispatch"
	"github.com/bluenomad/postmortem-backend/internal/email"
	"github.com/bluenomad/postmortem-backend/internal/llm"
	"github.com/bluenomad/postmortem-backend/internal/payments"
	"github.com/bluenomad/postmortem-backend/internal/report"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Stripe ────────────────────────────────────────────────────────────────
	stripeClient := payments.NewClient(cfg.StripeSecretKey)

	// ── Narrator ──────────────────────────────────────────────────────────────
	// OpenAI is primary. Anthropic is the fallback when ANTHROPIC_API_KEY is
	// also set. With no key at all the pipeline runs on the deterministic
	// local narrative — the service stays fully functional.
	var narrator llm.Narrator
	switch {
	case cfg.OpenAIAPIKey != "" && cfg.AnthropicAPIKey != "":
		primary := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		secondary := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		narrator = llm.NewFallbackNarrator(primary, secondary, logger)
		logger.Info("llm: using OpenAI with Anthropic fallback")
	case cfg.OpenAIAPIKey != "":
		narrator = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("llm: using OpenAI only")
	case cfg.AnthropicAPIKey != "":
		narrator = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		logger.Info("llm: using Anthropic only")
	default:
		logger.Warn("llm: no provider configured, reports use the local narrative")
	}

	// ── Report pipeline ───────────────────────────────────────────────────────
	generator := report.NewGenerator(narrator, logger)

	// ── Email (Resend) ────────────────────────────────────────────────────────
	mailer := email.NewResendClient(
		cfg.ResendAPIKey,
		cfg.EmailFromAddr,
		cfg.EmailFromName,
	)

	// ── Dispatch pool ─────────────────────────────────────────────────────────
	runner := dispatch.NewRunner(mailer, dispatch.RunnerConfig{
		Workers:    cfg.WorkerCount,
		JobTimeout: cfg.JobTimeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		generator,
		stripeClient,
		runner, // *Runner satisfies dispatch.Enqueuer
		api.Config{
			StripeWebhookSecret: cfg.StripeWebhookSecret,
			Env:                 cfg.Env,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generous — the report endpoint waits on an LLM round trip
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Dispatch pool and HTTP server both
	// respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the dispatch pool in a background goroutine. It blocks until ctx is done.
	go runner.Start(ctx)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// The dispatch goroutines exit when ctx is cancelled (already done).
	// runner.Start blocks until all of them finish — nothing extra needed.
	logger.Info("shutdown complete")
	return nil
}
