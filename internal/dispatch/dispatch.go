// Package dispatch contains the background delivery pool that sends
// transactional email off the request path. It is intentionally decoupled from
// the HTTP layer: the api package holds a dispatch.Enqueuer interface and
// calls Enqueue* — it never imports the concrete Runner type.
//
// The queue is in-process only. There is no durable store behind it, so a job
// that is in flight when the process dies is lost; for courtesy email that is
// an accepted trade.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bluenomad/postmortem-backend/internal/email"
	"github.com/google/uuid"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off email
// delivery. Keeping it here (not in api/) means api/ does not need to import
// dispatch/'s concrete types.
//
// The concrete implementation is *Runner. In tests, any struct with the two
// Enqueue methods satisfies the interface.
type Enqueuer interface {
	EnqueueResult(ctx context.Context, p email.ResultParams) error
	EnqueueReceipt(ctx context.Context, p email.ReceiptParams) error
}

// ─── JOB ──────────────────────────────────────────────────────────────────────

// job is one queued delivery. Exactly one of result/receipt is set.
type job struct {
	id      uuid.UUID
	result  *email.ResultParams
	receipt *email.ReceiptParams
}

func (j job) kind() string {
	if j.result != nil {
		return "result"
	}
	return "receipt"
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued; call DefaultRunnerConfig() to get them.
type RunnerConfig struct {
	// Workers is the number of concurrent delivery goroutines. Default: 3.
	Workers int

	// JobTimeout is the per-delivery context deadline. Default: 30s.
	// Set this longer than the Resend client's HTTP timeout.
	JobTimeout time.Duration

	// MaxRetries is the number of times a delivery is attempted before the
	// job is dropped. Default: 3.
	MaxRetries int
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    3,
		JobTimeout: 30 * time.Second,
		MaxRetries: 3,
	}
}

// Runner manages a pool of delivery goroutines fed by an in-process channel.
type Runner struct {
	sender email.Sender
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan job
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(sender email.Sender, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRunnerConfig().Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultRunnerConfig().JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRunnerConfig().MaxRetries
	}

	return &Runner{
		sender: sender,
		cfg:    cfg,
		logger: logger,
		// Buffer = Workers*2 so Enqueue never blocks under normal load.
		queue: make(chan job, cfg.Workers*2),
	}
}

// EnqueueResult queues the analysis-result email. It satisfies the Enqueuer
// interface. If the channel is full it returns an error rather than blocking
// the HTTP response.
func (r *Runner) EnqueueResult(_ context.Context, p email.ResultParams) error {
	return r.enqueue(job{id: uuid.New(), result: &p})
}

// EnqueueReceipt queues the purchase-receipt email.
func (r *Runner) EnqueueReceipt(_ context.Context, p email.ReceiptParams) error {
	return r.enqueue(job{id: uuid.New(), receipt: &p})
}

func (r *Runner) enqueue(j job) error {
	select {
	case r.queue <- j:
		r.logger.Info("dispatch: enqueued job", "job_id", j.id, "kind", j.kind())
		return nil
	default:
		return errors.New("dispatch: queue is full")
	}
}

// Start launches the delivery pool. It blocks until ctx is cancelled and all
// workers have returned. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("dispatch: starting", "workers", r.cfg.Workers)

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	r.logger.Info("dispatch: stopped")
}

// work is the inner loop for each delivery goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("dispatch: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("dispatch: goroutine stopping")
			return
		case j := <-r.queue:
			r.runWithRetry(ctx, j, log)
		}
	}
}

// deliver performs one send attempt for the job.
func (r *Runner) deliver(ctx context.Context, j job) error {
	if j.result != nil {
		return r.sender.SendResult(ctx, *j.result)
	}
	return r.sender.SendReceipt(ctx, *j.receipt)
}

// runWithRetry attempts delivery up to MaxRetries times. After exhausting
// retries the job is dropped with an error log; there is nothing durable to
// mark.
func (r *Runner) runWithRetry(ctx context.Context, j job, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.deliver(jobCtx, j)
		cancel()

		if lastErr == nil {
			log.Info("dispatch: job delivered", "job_id", j.id, "kind", j.kind(), "attempt", attempt)
			return
		}

		log.Warn("dispatch: delivery attempt failed",
			"job_id", j.id,
			"kind", j.kind(),
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2s, 4s, 8s …
			backoff := time.Duration(1<<attempt) * time.Second
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	log.Error("dispatch: job dropped after retries", "job_id", j.id, "kind", j.kind(), "error", lastErr)
}
