package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/app"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	accountService := accounts.NewService(accounts.NewRepository(pool))
	figureService := figures.NewService(figures.NewRepository(pool))

	integrityTask, err := jobs.NewTreeIntegrityTask(time.Now().UTC())
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTreeIntegrity, Handler: jobs.NewTreeIntegrityHandler(logger, accountService)},
			{Type: jobs.TaskFiguresRefresh, Handler: jobs.NewFiguresRefreshHandler(logger, figureService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegritySweepCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
