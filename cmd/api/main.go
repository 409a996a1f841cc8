package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"example.com/fitlog/internal/api"
	"example.com/fitlog/internal/auth"
	"example.com/fitlog/internal/cache"
	"example.com/fitlog/internal/config"
	"example.com/fitlog/internal/events"
	"example.com/fitlog/internal/logging"
	persistence "example.com/fitlog/internal/persistence/postgres"
	"example.com/fitlog/internal/store"
	httptransport "example.com/fitlog/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	defer pool.Close()

	snapshots, err := cache.Open(cfg.CachePath)
	if err != nil {
		logger.Fatalw("failed to open snapshot cache", "error", err)
	}
	defer snapshots.Close()

	opts := store.Options{
		Remote:   persistence.NewRepository(pool),
		Identity: auth.ContextIdentity{},
		Cache:    snapshots,
		Logger:   logger,
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		opts.Events = publisher
	}

	withUser := func(ctx context.Context, userID string) context.Context {
		return auth.WithClaims(ctx, &auth.Claims{Subject: userID})
	}
	stores := store.NewManager(opts, withUser)

	scheduler := cron.New()
	if cfg.RefreshSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
			logger.Infow("running scheduled remote refresh")
			stores.RefreshAll(ctx)
		}); err != nil {
			logger.Fatalw("invalid refresh schedule", "schedule", cfg.RefreshSchedule, "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	handler := api.NewHandler(stores, nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debugw("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, authMiddleware.Wrap(requestLog(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("fitlog listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}
}
