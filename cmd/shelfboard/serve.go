package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/shelfboard/internal/app"
	"github.com/odyssey-erp/shelfboard/internal/observability"
	"github.com/odyssey-erp/shelfboard/internal/platform/cache"
	"github.com/odyssey-erp/shelfboard/internal/platform/db"
	"github.com/odyssey-erp/shelfboard/internal/reports"
	"github.com/odyssey-erp/shelfboard/internal/shared"
	"github.com/odyssey-erp/shelfboard/internal/shelves"
	"github.com/odyssey-erp/shelfboard/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// runtime bundles the connections shared by every subcommand.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		logger.Error("connect redis", slog.Any("error", err))
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, pool: pool, redis: redisClient}, nil
}

func (rt *runtime) Close() {
	if err := rt.redis.Close(); err != nil {
		rt.logger.Warn("redis close", slog.Any("error", err))
	}
	rt.pool.Close()
}

// shelfService builds the shelves service with its audit log and the report
// invalidation hook. enqueuer may be nil when no job client is available.
func (rt *runtime) shelfService(enqueuer reports.WarmupEnqueuer) (*shelves.Service, *reports.Cache) {
	reportCache := reports.NewCache(rt.redis, rt.cfg.ReportCacheTTL)
	hook := reports.NewLayoutHook(reportCache, enqueuer)
	audit := shared.NewAuditLogger(rt.pool)
	return shelves.NewService(shelves.NewRepository(rt.pool), audit, hook, rt.logger), reportCache
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger
	cfg := rt.cfg

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	shelfService, reportCache := rt.shelfService(jobClient)
	sessions := shelves.NewSessions(rt.redis, shelfService, cfg.EditSessionTTL, metrics, logger)
	shelvesHandler := shelves.NewHandler(logger, shelfService, sessions)

	reportService := reports.NewService(reports.NewRepository(rt.pool), shelfService, reportCache, shared.NewAuditLogger(rt.pool), logger)
	reportsHandler := reports.NewHandler(logger, reportService, reports.NewFormatter(cfg.ReportLocale))

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ShelvesHandler: shelvesHandler,
		ReportsHandler: reportsHandler,
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": rt.pool.Ping,
			"redis":    cache.Ping(rt.redis),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		return err
	}
	return nil
}
