// Package jobs runs the background maintenance tasks: chart-of-accounts
// integrity sweeps and derived column refreshes.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTreeIntegrity triggers a structural sweep of the chart of accounts.
	TaskTreeIntegrity = "tree:integrity"
	// TaskFiguresRefresh recomputes derived columns for one fiscal year.
	TaskFiguresRefresh = "figures:refresh"
)

// TreeIntegrityPayload carries scheduling metadata.
type TreeIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTreeIntegrityTask constructs an Asynq task for the integrity sweep.
func NewTreeIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(TreeIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTreeIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// FiguresRefreshPayload selects the fiscal year whose derived columns get
// recomputed from stored raw inputs.
type FiguresRefreshPayload struct {
	FiscalYearID int64 `json:"fiscal_year_id"`
}

// NewFiguresRefreshTask constructs an Asynq task for the derived refresh.
func NewFiguresRefreshTask(fiscalYearID int64) (*asynq.Task, error) {
	body, err := json.Marshal(FiguresRefreshPayload{FiscalYearID: fiscalYearID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFiguresRefresh, body, asynq.Queue(QueueDefault)), nil
}
