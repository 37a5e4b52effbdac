package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/multilazos/multilazos/internal/jobs"
	"github.com/multilazos/multilazos/internal/reconciliation"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReconciliationWarmupJob pre-populates the installment status cache so the
// first request after an invalidation does not pay the aggregation cost.
type ReconciliationWarmupJob struct {
	Reconciliation *reconciliation.Service
	Logger         *slog.Logger
	Metrics        *jobmetrics.Metrics
}

// NewReconciliationWarmupJob wires dependencies for the warmup handler.
func NewReconciliationWarmupJob(svc *reconciliation.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconciliationWarmupJob {
	return &ReconciliationWarmupJob{Reconciliation: svc, Logger: logger, Metrics: metrics}
}

// Handle processes reconciliation warmup tasks.
func (j *ReconciliationWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reconciliation == nil {
		return errors.New("reconciliation warmup: handler not configured")
	}
	var payload ReconciliationWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	statuses := payload.Statuses
	if len(statuses) == 0 {
		statuses = []string{
			string(reconciliation.StatusPending),
			string(reconciliation.StatusPartial),
			string(reconciliation.StatusPaid),
		}
	}

	tracker := j.metrics().Track(TaskReconciliationWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	if _, err := j.Reconciliation.View(ctx, reconciliation.Filter{}); err != nil {
		resultErr = err
		logger.Error("warm unfiltered view", slog.Any("error", err))
		return resultErr
	}
	for _, status := range statuses {
		if _, err := j.Reconciliation.View(ctx, reconciliation.Filter{Status: reconciliation.Status(status)}); err != nil {
			resultErr = err
			logger.Error("warm status view", slog.String("status", status), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed reconciliation warmup",
		slog.Int("views", len(statuses)+1),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReconciliationWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReconciliationWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReconciliationWarmup))
}

func (j *ReconciliationWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
