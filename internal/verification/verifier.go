package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/logging"
	"github.com/trust-ride/trust_ride/internal/metrics"
	"github.com/trust-ride/trust_ride/internal/notification"
)

const (
	defaultWorkers      = 4
	defaultMaxAttempts  = 5
	defaultRetryBackoff = time.Second
)

// Options tunes the worker pool.
type Options struct {
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Verifier schedules verifications and settles them in background workers.
type Verifier struct {
	queue    Queue
	logs     chain.Repository
	sim      Simulator
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

// NewVerifier wires a verifier. notifier, m and logger may be nil.
func NewVerifier(queue Queue, logs chain.Repository, sim Simulator, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger, opts Options) *Verifier {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Verifier{
		queue:    queue,
		logs:     logs,
		sim:      sim,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Submit schedules txHash for settlement after a simulated delay. It does
// not wait for the outcome.
func (v *Verifier) Submit(ctx context.Context, txHash string, entity chain.EntityType, entityID int64) error {
	job, err := newJob(v.now().UTC(), txHash, entity, entityID, v.sim.Delay())
	if err != nil {
		return fmt.Errorf("new verification job: %w", err)
	}
	return v.queue.Enqueue(ctx, job)
}

// Run recovers in-flight jobs and processes the queue until ctx is cancelled.
func (v *Verifier) Run(ctx context.Context) error {
	recovered, err := v.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		v.logger.Info("recovered verification jobs", slog.Int("count", recovered))
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < v.opts.Workers; i++ {
		worker := i
		g.Go(func() error { return v.work(ctx, worker) })
	}
	return g.Wait()
}

func (v *Verifier) work(ctx context.Context, worker int) error {
	for {
		job, err := v.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			v.logger.Error("dequeue verification job", slog.Int("worker", worker), slog.Any("error", err))
			if !sleep(ctx, v.opts.RetryBackoff) {
				return nil
			}
			continue
		}
		v.process(ctx, job)
	}
}

func (v *Verifier) process(ctx context.Context, job Job) {
	log := v.logger.With(
		slog.String("job_id", job.ID),
		slog.String("tx_hash", job.TxHash),
		slog.String("entity_type", string(job.EntityType)),
		slog.Int64("entity_id", job.EntityID),
	)

	outcome := v.sim.Resolve()
	settledAt := v.now().UTC()
	update := chain.Update{Status: chain.StatusFailed, VerifiedAt: settledAt}
	if outcome.Verified {
		block, gas := outcome.BlockNumber, chain.TransferGas
		update = chain.Update{Status: chain.StatusVerified, BlockNumber: &block, GasUsed: &gas, VerifiedAt: settledAt}
	}

	_, err := v.logs.UpdateStatus(ctx, job.TxHash, update)
	switch {
	case errors.Is(err, chain.ErrLogNotFound):
		log.Warn("verification log missing, dropping job")
		v.ack(ctx, log, job)
		return
	case errors.Is(err, chain.ErrAlreadySettled):
		log.Info("verification already settled, dropping job")
		v.ack(ctx, log, job)
		return
	case err != nil:
		v.retry(ctx, log, job, err)
		return
	}

	v.metrics.ObserveVerification(string(job.EntityType), string(update.Status), settledAt.Sub(job.SubmittedAt))
	log.Info("verification settled", slog.String("status", string(update.Status)))
	if v.notifier != nil {
		msg := notification.Message{
			Kind:      notification.KindVerificationResult,
			Body:      fmt.Sprintf("%s #%d %s", job.EntityType, job.EntityID, update.Status),
			Reference: job.TxHash,
		}
		if err := v.notifier.Send(ctx, msg); err != nil {
			log.Warn("verification notification failed", slog.Any("error", err))
		}
	}
	v.ack(ctx, log, job)
}

func (v *Verifier) retry(ctx context.Context, log *slog.Logger, job Job, cause error) {
	job.Attempts++
	if job.Attempts >= v.opts.MaxAttempts {
		log.Error("verification abandoned", slog.Int("attempts", job.Attempts), slog.Any("error", cause))
		v.ack(ctx, log, job)
		return
	}
	log.Warn("verification store error, retrying", slog.Int("attempts", job.Attempts), slog.Any("error", cause))
	v.metrics.VerificationRetried()
	job.DueAt = v.now().UTC().Add(time.Duration(job.Attempts) * v.opts.RetryBackoff)
	if err := v.queue.Enqueue(ctx, job); err != nil {
		log.Error("re-enqueue verification job", slog.Any("error", err))
		return
	}
	v.ack(ctx, log, job)
}

func (v *Verifier) ack(ctx context.Context, log *slog.Logger, job Job) {
	if err := v.queue.Ack(ctx, job); err != nil {
		log.Error("ack verification job", slog.Any("error", err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
