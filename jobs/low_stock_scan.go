package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/products"
)

// LowStockScanJob logs every product at or below its restock level so
// operators get a daily restock worklist without opening the dashboard.
type LowStockScanJob struct {
	Products *products.Service
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewLowStockScanJob wires dependencies for the low-stock scanner.
func NewLowStockScanJob(productSvc *products.Service, logger *slog.Logger, metrics *observability.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Products: productSvc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Products == nil {
		return errors.New("low stock scan: handler not configured")
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskLowStockScan, err)
		}
	}()

	low, err := j.Products.RestockReport(ctx)
	if err != nil {
		j.log().Error("low stock scan", slog.Any("error", err))
		return err
	}
	for _, p := range low {
		j.log().Warn("product below restock level",
			slog.Int64("product_id", p.ID),
			slog.String("item_code", p.ItemCode),
			slog.Int("stock", p.Stock),
			slog.Int("restock_level", p.RestockLevel),
		)
	}
	j.log().Info("low stock scan complete", slog.Int("count", len(low)))
	return nil
}

func (j *LowStockScanJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
