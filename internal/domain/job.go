package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a durable reconcile job.
type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
)

// PaymentJob is one delayed status poll. Jobs survive restarts; the
// reconcile worker claims them once due. At-least-once delivery is enough
// because the payment state machine absorbs duplicates.
type PaymentJob struct {
	ID          int64
	PaymentID   uuid.UUID
	RunAt       time.Time
	Attempts    int
	MaxAttempts int
	Status      JobStatus
	LastError   *string
	CreatedAt   time.Time
}
