package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/adapters/storage"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/exports"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pool, degraded := openStore(ctx, cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	eventBus := events.NewInMemoryBus(log)

	transport, err := email.NewTransport(cfg, cfg)
	if err != nil {
		log.Error("failed to initialize email transport", "error", err)
		panic("failed to initialize email transport: " + err.Error())
	}

	val := validator.New()

	leadsModule, err := leads.NewModule(store, transport, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	leadsModule.SetDegraded(degraded)

	notificationModule := notification.New(transport, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	var snapshots scheduler.SnapshotStore
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize export storage", "error", err)
			panic("failed to initialize export storage: " + err.Error())
		}
		snapshots = exports.NewModule(storageSvc, cfg.GetMinioBucketLeadExports(), eventBus, log)
	} else {
		log.Info("MinIO not configured, export snapshots disabled")
	}

	jobs := scheduler.NewLeadJobs(leadsModule, notificationModule, snapshots, eventBus, log)
	schedules := scheduler.Schedules(cfg)

	go serveMetrics(ctx, cfg.GetMetricsAddr(), log)

	if cfg.GetRedisURL() == "" {
		log.Info("REDIS_URL not set, running jobs in-process")
		scheduler.NewLocalRunner(jobs, schedules, log).Run(ctx)
		eventBus.Wait()
		return
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()
	go scheduler.NewDispatcher(client, schedules, log).Run(ctx)

	worker, err := scheduler.NewWorker(cfg, jobs, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

// openStore connects to Postgres with retries. Without a database, or when every
// attempt fails, it returns an in-memory store and reports degraded mode.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, *pgxpool.Pool, bool) {
	if cfg.GetDatabaseURL() == "" {
		log.StoreDegraded(errors.New("DATABASE_URL not set"))
		return repository.NewMemoryStore(), nil, true
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.StoreDegraded(err)
		return repository.NewMemoryStore(), nil, true
	}

	if cfg.GetMigrateOnStart() {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			log.Error("failed to apply migrations", "error", err)
			panic("failed to apply migrations: " + err.Error())
		}
	}

	return repository.NewPostgresStore(pool), pool, false
}

func serveMetrics(ctx context.Context, addr string, log *logger.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", "error", err)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
