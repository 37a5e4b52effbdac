package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/multilazos/multilazos/internal/jobs"
)

// OverdueGauge receives the result of an overdue scan.
type OverdueGauge interface {
	SetOverdueInstallments(count int)
}

// OverdueScanJob counts installments past their due date whose allocations do
// not cover the scheduled amount and publishes the count as a gauge.
type OverdueScanJob struct {
	Pool    *pgxpool.Pool
	Gauge   OverdueGauge
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(pool *pgxpool.Pool, gauge OverdueGauge, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Pool:    pool,
		Gauge:   gauge,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := j.now()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}

	tracker := j.metrics().Track(TaskOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", asOf.Format("2006-01-02")))

	count, err := j.countOverdue(ctx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("count overdue installments", slog.Any("error", err))
		return resultErr
	}
	if j.Gauge != nil {
		j.Gauge.SetOverdueInstallments(count)
	}

	logger.Info("completed overdue scan", slog.Int("overdue", count))
	return resultErr
}

func (j *OverdueScanJob) countOverdue(ctx context.Context, asOf time.Time) (int, error) {
	scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var count int
	err := j.Pool.QueryRow(scanCtx, `
		SELECT COUNT(*)
		FROM installments i
		WHERE i.due_date < $1
		  AND i.scheduled > (
			SELECT COALESCE(SUM(pa.amount), 0)
			FROM payment_allocations pa
			WHERE pa.installment_id = i.id
		  )
	`, asOf).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
