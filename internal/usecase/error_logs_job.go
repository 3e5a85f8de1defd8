package usecase

import (
	"context"

	drepo "GridPulse/internal/domain/repository"
	"GridPulse/pkg/logger"
	"GridPulse/pkg/queue"
)

// ErrorLogsJob drains aggregated error-log batches off the queue and folds
// them into metrics, so repeated errors show up as counters instead of log
// spam.
type ErrorLogsJob struct {
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewErrorLogsJob(metrics drepo.Metrics, log *logger.Logger) *ErrorLogsJob {
	return &ErrorLogsJob{metrics: metrics, log: log}
}

func (j *ErrorLogsJob) Name() string { return "error-logs" }
func (j *ErrorLogsJob) Type() string { return "error_logs" }

func (j *ErrorLogsJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]logger.AggregatedLogEntry](payload)
	if err != nil {
		return err
	}
	for _, e := range *entries {
		for i := 0; i < e.Count; i++ {
			j.metrics.RecordError("log_" + e.Level)
		}
		if e.Count > 1 {
			j.log.Warn("repeated error",
				logger.String("message", e.Message),
				logger.String("caller", e.Caller),
				logger.Int("count", e.Count))
		}
	}
	return nil
}

var _ queue.Job = (*ErrorLogsJob)(nil)
