package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tahiry-mg/tahiry/internal/observability"
)

// DerivedRefresher recomputes every derived column of a fiscal year from
// the stored raw inputs.
type DerivedRefresher interface {
	RefreshDerived(ctx context.Context, fiscalYearID int64) (int64, error)
}

// NewFiguresRefreshHandler returns the handler for TaskFiguresRefresh.
func NewFiguresRefreshHandler(logger *slog.Logger, refresher DerivedRefresher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FiguresRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.FiscalYearID <= 0 {
			return asynq.SkipRetry
		}
		rows, err := refresher.RefreshDerived(ctx, payload.FiscalYearID)
		if err != nil {
			observability.IncJob(TaskFiguresRefresh, "failure")
			logger.Error("derived refresh failed",
				slog.Int64("fiscal_year_id", payload.FiscalYearID),
				slog.Any("error", err))
			return err
		}
		observability.IncJob(TaskFiguresRefresh, "success")
		logger.Info("derived columns refreshed",
			slog.Int64("fiscal_year_id", payload.FiscalYearID),
			slog.Int64("rows", rows))
		return nil
	}
}
