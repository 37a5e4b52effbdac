package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconciliationWarmup pre-populates the installment status cache.
	TaskReconciliationWarmup = "reconciliation:warmup"
	// TaskOverdueScan counts installments past due with an open balance.
	TaskOverdueScan = "installments:overdue_scan"
)

// ReconciliationWarmupPayload scopes the cache warmup run.
type ReconciliationWarmupPayload struct {
	// Statuses to warm in addition to the unfiltered view. Empty means all.
	Statuses []string `json:"statuses,omitempty"`
}

// NewReconciliationWarmupTask constructs an Asynq task.
func NewReconciliationWarmupTask(payload ReconciliationWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconciliationWarmup, data), nil
}

// OverdueScanPayload configures the overdue installment scan.
type OverdueScanPayload struct {
	// AsOf overrides the reference date, formatted yyyy-mm-dd. Empty means today.
	AsOf string `json:"as_of,omitempty"`
}

// NewOverdueScanTask constructs an Asynq task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}
