package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/app"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/figures"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
	"github.com/tahiry-mg/tahiry/internal/observability"
	"github.com/tahiry-mg/tahiry/internal/platform/db"
	"github.com/tahiry-mg/tahiry/internal/projects"
	"github.com/tahiry-mg/tahiry/internal/table"
	tablehttp "github.com/tahiry-mg/tahiry/internal/table/http"
	"github.com/tahiry-mg/tahiry/internal/table/importer"
	"github.com/tahiry-mg/tahiry/jobs"
	"github.com/tahiry-mg/tahiry/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	geoService := geography.NewService(geography.NewRepository(pool))
	fiscalService := fiscal.NewService(fiscal.NewRepository(pool))
	accountService := accounts.NewService(accounts.NewRepository(pool))
	figureService := figures.NewService(figures.NewRepository(pool))
	columnService := columns.NewService(columns.NewRepository(pool))
	projectService := projects.NewService(projects.NewRepository(pool))
	importService := importer.NewService(accountService, figureService)

	tableCache := table.NewCache(redisClient, cfg.CacheTTL)
	tableService := table.NewService(geoService, fiscalService, accountService, figureService, columnService, tableCache)

	var pdfClient tablehttp.PDFRenderClient
	if cfg.GotenbergURL != "" {
		client := report.NewClient(cfg.GotenbergURL)
		if err := client.Ping(ctx); err != nil {
			logger.Warn("gotenberg ping", slog.Any("error", err))
		}
		pdfClient = client
	}

	tableHandler := tablehttp.NewHandler(logger, tableService, figureService, geoService, fiscalService, columnService, importService, pdfClient)
	fiscalHandler := fiscal.NewHandler(logger, fiscalService)
	accountsHandler := accounts.NewHandler(logger, accountService)
	columnsHandler := columns.NewHandler(logger, columnService)
	geographyHandler := geography.NewHandler(logger, geoService)
	projectsHandler := projects.NewHandler(logger, projectService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		TableHandler:     tableHandler,
		FiscalHandler:    fiscalHandler,
		AccountsHandler:  accountsHandler,
		ColumnsHandler:   columnsHandler,
		GeographyHandler: geographyHandler,
		ProjectsHandler:  projectsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
