package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/catalogmirror/backend/internal/application/catalog"
	integrationapp "github.com/catalogmirror/backend/internal/application/integration"
	inventoryapp "github.com/catalogmirror/backend/internal/application/inventory"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/infrastructure/auth"
	"github.com/catalogmirror/backend/internal/infrastructure/cache"
	"github.com/catalogmirror/backend/internal/infrastructure/config"
	"github.com/catalogmirror/backend/internal/infrastructure/ecommerce"
	"github.com/catalogmirror/backend/internal/infrastructure/logger"
	"github.com/catalogmirror/backend/internal/infrastructure/persistence"
	"github.com/catalogmirror/backend/internal/infrastructure/scheduler"
	"github.com/catalogmirror/backend/internal/infrastructure/storage"
	"github.com/catalogmirror/backend/internal/infrastructure/telemetry"
	"github.com/catalogmirror/backend/internal/interfaces/http/handler"
	"github.com/catalogmirror/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "catalog mirror exited:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// The OTLP log bridge has to exist before the logger it feeds
	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init log export: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting catalog mirror",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		OTLPEnabled:       cfg.Telemetry.Enabled,
		PrometheusEnabled: cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics, err := telemetry.NewCatalogMetrics(meters)
	if err != nil {
		return fmt.Errorf("init catalog metrics: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Database.SlowThreshold,
			DBName:          cfg.Database.DBName,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			return fmt.Errorf("register db tracing: %w", err)
		}
	}

	// Repositories
	mirrorRepo := persistence.NewGormMirrorRepository(db.DB)
	adjustmentRepo := persistence.NewGormStockAdjustmentRepository(db.DB)
	archive := persistence.NewGormSyncJobArchive(db.DB)
	orgs := persistence.NewGormOrganizationResolver(db.DB)

	// Application services
	mirrorService := catalogapp.NewMirrorService(mirrorRepo, log)
	txScope := persistence.NewGormTransactionScope(db.DB)
	ledger := inventoryapp.NewLedgerService(orgs, txScope, adjustmentRepo, log)
	ledger.SetMetrics(metrics)
	reconciler := inventoryapp.NewStockReconciler(txScope, log)

	controller := integrationapp.NewSyncJobController(log)
	controller.SetArchive(archive)
	controller.SetMetrics(metrics)
	controller.SetHistoryLimit(cfg.Sync.HistoryLimit)

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			_ = redisClient.Close()
		}()
		controller.SetJobLock(cache.NewRedisJobLock(redisClient, cfg.Sync.LockTTL, log))
		log.Info("Distributed sync lock enabled", zap.String("redis", cfg.Redis.Addr()))
	}

	provider, err := ecommerce.NewWooCommerceAdapter(&ecommerce.WooCommerceConfig{
		BaseURL:        cfg.Provider.BaseURL,
		ConsumerKey:    cfg.Provider.ConsumerKey,
		ConsumerSecret: cfg.Provider.ConsumerSecret,
		PerPage:        cfg.Provider.PerPage,
		Timeout:        cfg.Provider.Timeout,
	}, log)
	if err != nil {
		return fmt.Errorf("init catalog provider: %w", err)
	}

	syncService := integrationapp.NewSyncService(controller, orgs, provider, mirrorService, reconciler, log)
	syncService.SetMetrics(metrics)
	syncService.SetRetryPolicy(integrationapp.RetryPolicy{
		MaxAttempts:     uint(max(cfg.Sync.RetryMaxAttempts, 0)),
		InitialInterval: cfg.Sync.RetryInitialInterval,
		MaxInterval:     cfg.Sync.RetryMaxInterval,
	})

	if cfg.Storage.Bucket != "" {
		exporter, err := storage.NewS3ReportExporter(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return fmt.Errorf("init report export: %w", err)
		}
		syncService.SetExporter(exporter)
		log.Info("Sync report export enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	pool, err := scheduler.NewWorkerPool(scheduler.WorkerPoolConfig{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	}, syncService, log)
	if err != nil {
		return fmt.Errorf("init worker pool: %w", err)
	}
	syncService.SetDispatcher(pool)

	var trigger *scheduler.IntervalTrigger
	if cfg.Scheduler.Enabled {
		orgIDs, err := scheduler.ParseOrganizations(cfg.Scheduler.Organizations)
		if err != nil {
			return err
		}
		trigger, err = scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
			Interval:      cfg.Scheduler.Interval,
			Organizations: orgIDs,
			SyncType:      integration.SyncType(cfg.Scheduler.SyncType),
		}, syncService, log)
		if err != nil {
			return fmt.Errorf("init sync trigger: %w", err)
		}
	}

	idempotency, closeIdempotency := cache.NewIdempotencyStore(redisClient, log)
	defer func() {
		_ = closeIdempotency()
	}()

	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine, err := router.New(router.Config{
		ServiceName:    serviceName,
		Logger:         log,
		Verifier:       auth.NewTokenVerifier(cfg.JWT),
		Health:         handler.NewHealthHandler(checks),
		Metrics:        meters.Handler(),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.HTTP.IdempotencyTTL,
		Registrars: []router.RouteRegistrar{
			handler.NewCatalogHandler(mirrorService),
			handler.NewSyncHandler(syncService),
			handler.NewAdjustmentHandler(ledger),
		},
	})
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	if err := pool.Start(ctx); err != nil {
		return err
	}
	if trigger != nil {
		if err := trigger.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		return shutdown(cfg.HTTP.ShutdownTimeout, log,
			srv.Shutdown,
			stopIf(trigger != nil, func(ctx context.Context) error { return trigger.Stop(ctx) }),
			pool.Stop,
			meters.Shutdown,
			tracer.Shutdown,
			logs.Shutdown,
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// shutdown runs the steps in order under one deadline and reports the first failure
func shutdown(timeout time.Duration, log *zap.Logger, steps ...func(context.Context) error) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var first error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			log.Error("Shutdown step failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func stopIf(enabled bool, stop func(context.Context) error) func(context.Context) error {
	if !enabled {
		return func(context.Context) error { return nil }
	}
	return stop
}
