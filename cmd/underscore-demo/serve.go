package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/console/handler"
	"github.com/xela07ax/underscore-apis/internal/console/server"
	"github.com/xela07ax/underscore-apis/internal/console/service"
	"github.com/xela07ax/underscore-apis/internal/engine"
	"github.com/xela07ax/underscore-apis/internal/infra"
	"github.com/xela07ax/underscore-apis/internal/journal"
	"github.com/xela07ax/underscore-apis/internal/repository/postgres"
	"github.com/xela07ax/underscore-apis/internal/stats"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo host and the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infra.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	return cmd
}

func serve(ctx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	// Контекст жизни фоновых задач; SIGINT/SIGTERM его отменяют
	appCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(reg)

	// 2. Журнал запросов (опционально, Postgres)
	var jrn journal.Logger
	if cfg.Database.URL != "" {
		repo, err := postgres.NewJournalRepo(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer repo.Close()

		pingCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		err = repo.Ping(pingCtx)
		if err == nil {
			err = repo.EnsureSchema(pingCtx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("journal database: %w", err)
		}

		j := journal.New(repo, journal.Options{
			BufferSize:    cfg.Journal.BufferSize,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			Fill:          metrics.JournalBufferFill,
		}, logger)
		j.Start()
		defer j.Stop()
		jrn = j
	} else {
		logger.Info("request journal disabled: database.url is empty")
	}

	// 3. Рассылка настроек между инстансами (опционально, Redis)
	var (
		rdb       *redis.Client
		broadcast engine.Broadcaster
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		broadcast = engine.NewReliablePublisher(rdb, engine.PublisherOptions{
			OnStateChange: func(to gobreaker.State) {
				metrics.BroadcastBreakerState.Set(float64(to))
			},
		}, logger)
	} else {
		logger.Info("settings broadcast disabled: redis.addr is empty")
	}

	// 4. Ядро
	tasks := engine.NewTaskTracker(logger)
	settings := engine.NewSettingsManager(rdb, broadcast, logger)
	core := engine.NewCore(stats.NewAggregator(nil), tasks, settings, jrn, metrics, clock.New(), logger)

	if rdb != nil {
		tasks.Go(appCtx, "settings-listener", settings.StartListener)
	}

	// 5. Хост-приложение
	hostRouter := chi.NewRouter()
	hostRouter.Use(middleware.Recoverer)
	hostRouter.Use(engine.TracingMiddleware)
	registerDemoRoutes(core, hostRouter)

	hostSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      hostRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. Административный API
	svc := service.NewIntrospectionService(core.Registry(), core.Stats(), core.Tasks(), core.Settings(), logger)
	admin := server.NewAdminServer(
		cfg.Admin,
		logger,
		metrics,
		reg,
		handler.NewCatHandler(svc, metrics, logger),
		handler.NewRoutesHandler(svc, metrics, logger),
	)
	adminSrv := admin.HTTPServer()

	errCh := make(chan error, 2)
	for name, srv := range map[string]*http.Server{"host": hostSrv, "admin": adminSrv} {
		go func() {
			logger.Info("server started", zap.String("server", name), zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	// 7. Graceful Shutdown
	var runErr error
	select {
	case <-appCtx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", zap.Error(runErr))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for name, srv := range map[string]*http.Server{"host": hostSrv, "admin": adminSrv} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.String("server", name), zap.Error(err))
		}
	}
	tasks.Wait()

	logger.Info("exited properly")
	return runErr
}
