package scheduler

import (
	"context"
	"time"
)

// VerificationTask asks the reconciliation worker to re-check one payment
// record against its provider.
type VerificationTask struct {
	PaymentRecordID string `json:"payment_record_id"`
	Attempt         int32  `json:"attempt"`
}

// Scheduler defines the interface for a component that schedules a payment
// verification for later processing. Redirect-based confirmation is unreliable
// in non-public deployments, so every checkout intent gets a delayed
// verification in case its webhook never arrives.
type Scheduler interface {
	// ScheduleVerification enqueues a verification task after the given delay.
	ScheduleVerification(ctx context.Context, task VerificationTask, delay time.Duration) error
}
