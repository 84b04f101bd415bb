// Command server runs the maintenance event core: it subscribes the
// notification fan-out, the derived-report generator, and the live-update
// registry to the event bus and exposes the HTTP surface.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maintrack/internal/events/bus"
	"maintrack/internal/jwttoken"
	notifhandler "maintrack/internal/notification/handler"
	notifmetrics "maintrack/internal/notification/metrics"
	notifservice "maintrack/internal/notification/service"
	notifstore "maintrack/internal/notification/store"
	"maintrack/internal/platform/config"
	"maintrack/internal/platform/httpserver"
	"maintrack/internal/platform/logger"
	platformmetrics "maintrack/internal/platform/metrics"
	"maintrack/internal/platform/middleware"
	platformredis "maintrack/internal/platform/redis"
	reportmetrics "maintrack/internal/report/metrics"
	reportservice "maintrack/internal/report/service"
	reportstore "maintrack/internal/report/store"
	"maintrack/internal/stream"
	streammetrics "maintrack/internal/stream/metrics"
	tickethandler "maintrack/internal/ticket/handler"
	ticketservice "maintrack/internal/ticket/service"
	ticketstore "maintrack/internal/ticket/store"
	"maintrack/pkg/platform/tx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. Without a database URL everything runs in memory, which is
	// enough for local development against the in-process CRUD collaborator.
	var (
		db          *sql.DB
		txManager   tx.Manager
		ticketStore ticketservice.Store
		notifStore  notifservice.Store
		reports     reportservice.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		txManager = tx.NewSQLManager(db)
		ticketStore = ticketstore.NewPostgres(db)
		notifStore = notifstore.NewPostgres(db)
		reports = reportstore.NewPostgres(db)
		log.Info("using postgres storage")
	} else {
		txManager = tx.NewInMemoryManager()
		ticketStore = ticketstore.NewInMemory()
		notifStore = notifstore.NewInMemory()
		reports = reportstore.NewInMemory()
		log.Warn("no database configured, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		notifStore = notifstore.NewRedisCache(notifStore, redisClient, log)
		log.Info("notification cache enabled")
	}

	// Metrics and services.
	busMetrics := platformmetrics.New()
	notifSvc := notifservice.New(notifStore, ticketStore, log, notifmetrics.New(), cfg.Notifications.ExcludedModules)
	generator := reportservice.NewGenerator(reports, ticketStore, log, reportmetrics.New())
	registry := stream.NewRegistry(log, streammetrics.New(),
		cfg.Stream.MaxSubscriptions, cfg.Stream.HeartbeatInterval, cfg.Stream.FanoutWorkers)

	eventBus := bus.New(log, busMetrics)
	eventBus.SubscribeAfterCommit("notifications", notifSvc.OnEvent)
	eventBus.SubscribeAfterCommit("reports", generator.OnEvent)
	eventBus.SubscribeAfterCommit("stream", registry.OnEvent)

	ticketSvc := ticketservice.New(ticketStore, eventBus, txManager, log)

	go registry.Run(ctx)

	// HTTP surface.
	jwtValidator := jwttoken.NewValidator(cfg.JWTSigningKey)
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	tickethandler.New(ticketSvc, log, jwtValidator).Register(router)
	notifhandler.New(notifSvc, log, jwtValidator).Register(router)
	stream.NewHandler(registry, log, jwtValidator, cfg.Stream.SubscriptionTimeout).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	registry.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	eventBus.Wait()
	log.Info("shutdown complete")
	return nil
}
