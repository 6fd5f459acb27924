package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/analytics"
	"github.com/shopledger/shopledger/internal/observability"
)

// AnalyticsWarmupJob pre-populates the report cache so the first dashboard
// request after a cache bump does not pay the query cost.
type AnalyticsWarmupJob struct {
	Analytics *analytics.Service
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc *analytics.Service, logger *slog.Logger, metrics *observability.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: analyticsSvc,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskAnalyticsWarmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if len(t.Payload()) > 0 {
		if jsonErr := json.Unmarshal(t.Payload(), &payload); jsonErr != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 30
	}
	if payload.TopLimit <= 0 {
		payload.TopLimit = 10
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskAnalyticsWarmup, err)
		}
	}()

	to := j.clock().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -payload.WindowDays)

	if _, err = j.Analytics.SalesTrend(ctx, from, to); err != nil {
		j.log().Error("warm sales trend", slog.Any("error", err))
		return err
	}
	if _, err = j.Analytics.TopProducts(ctx, from, to, payload.TopLimit); err != nil {
		j.log().Error("warm top products", slog.Any("error", err))
		return err
	}
	if _, err = j.Analytics.SlowMoving(ctx, payload.WindowDays); err != nil {
		j.log().Error("warm slow movers", slog.Any("error", err))
		return err
	}

	j.log().Info("analytics cache warmed",
		slog.String("from", from.Format("2006-01-02")),
		slog.String("to", to.Format("2006-01-02")),
	)
	return nil
}

func (j *AnalyticsWarmupJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
