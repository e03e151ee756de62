package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tahiry-mg/tahiry/internal/observability"
)

// IntegrityChecker walks every account tree and reports structural
// problems as human-readable descriptions.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) ([]string, error)
}

// NewTreeIntegrityHandler returns the handler for TaskTreeIntegrity.
// Problems are logged, not fatal; the sweep exists to surface drift before
// it breaks a render.
func NewTreeIntegrityHandler(logger *slog.Logger, checker IntegrityChecker) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TreeIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		problems, err := checker.CheckIntegrity(ctx)
		if err != nil {
			observability.IncJob(TaskTreeIntegrity, "failure")
			logger.Error("tree integrity sweep failed", slog.Any("error", err))
			return err
		}
		observability.IncJob(TaskTreeIntegrity, "success")
		if len(problems) == 0 {
			logger.Info("tree integrity sweep clean")
			return nil
		}
		for _, p := range problems {
			logger.Warn("tree integrity problem", slog.String("problem", p))
		}
		logger.Warn("tree integrity sweep finished", slog.Int("problems", len(problems)))
		return nil
	}
}
