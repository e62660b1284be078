// Package worker runs the background reconciliation loop that drives
// in-flight payments to a terminal state when callbacks go missing.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/domain"
)

// Checker is the slice of the orchestrator the reconciler needs.
type Checker interface {
	AutoCheck(ctx context.Context, paymentID uuid.UUID) error
}

// Reconciler claims due payment_jobs in batches and polls the PSP for
// each. Delivery is at-least-once: a crash between the poll and the job
// update replays the job, and the absorbing state machine makes the
// replay a no-op.
type Reconciler struct {
	jobs      application.JobRepository
	checker   Checker
	redis     *redis.Client
	interval  time.Duration
	batchSize int
	leaseTTL  time.Duration
	logger    *slog.Logger
}

func NewReconciler(
	jobs application.JobRepository,
	checker Checker,
	redisClient *redis.Client,
	interval time.Duration,
	batchSize int,
	leaseTTL time.Duration,
	logger *slog.Logger,
) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if leaseTTL <= 0 {
		leaseTTL = 60 * time.Second
	}
	return &Reconciler{
		jobs:      jobs,
		checker:   checker,
		redis:     redisClient,
		interval:  interval,
		batchSize: batchSize,
		leaseTTL:  leaseTTL,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting payment reconciler",
		"interval", r.interval,
		"batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping payment reconciler")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	jobs, err := r.jobs.ClaimDue(ctx, time.Now(), r.batchSize)
	if err != nil {
		r.logger.Error("failed to claim due jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	r.logger.Info("reconciling payments", "count", len(jobs))

	for _, job := range jobs {
		r.process(ctx, job)
	}
}

func (r *Reconciler) process(ctx context.Context, job *domain.PaymentJob) {
	if !r.acquireLease(ctx, job.PaymentID) {
		// Another replica is polling this payment; its job update wins.
		return
	}
	defer r.releaseLease(ctx, job.PaymentID)

	if err := r.checker.AutoCheck(ctx, job.PaymentID); err != nil {
		r.logger.Error("payment reconciliation failed",
			"job_id", job.ID,
			"payment_id", job.PaymentID,
			"attempt", job.Attempts,
			"error", err)

		var retryAt *time.Time
		if job.Attempts < job.MaxAttempts {
			// Linear backoff: each retry waits one more interval.
			at := time.Now().Add(time.Duration(job.Attempts) * r.interval)
			retryAt = &at
		}
		if err := r.jobs.MarkFailed(ctx, job.ID, err.Error(), retryAt); err != nil {
			r.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
		}
		return
	}

	if err := r.jobs.MarkDone(ctx, job.ID); err != nil {
		r.logger.Error("failed to mark job done", "job_id", job.ID, "error", err)
	}
}

// acquireLease takes a short per-payment Redis lock so replicas do not
// poll the PSP for the same payment at once. The lock is an optimization
// only; correctness comes from the absorbing state machine, so a missing
// Redis never blocks reconciliation.
func (r *Reconciler) acquireLease(ctx context.Context, paymentID uuid.UUID) bool {
	if r.redis == nil {
		return true
	}
	ok, err := r.redis.SetNX(ctx, "reconcile:"+paymentID.String(), 1, r.leaseTTL).Result()
	if err != nil {
		r.logger.Warn("reconcile lease unavailable", "payment_id", paymentID, "error", err)
		return true
	}
	return ok
}

func (r *Reconciler) releaseLease(ctx context.Context, paymentID uuid.UUID) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Del(ctx, "reconcile:"+paymentID.String()).Err(); err != nil {
		r.logger.Warn("failed to release reconcile lease", "payment_id", paymentID, "error", err)
	}
}
