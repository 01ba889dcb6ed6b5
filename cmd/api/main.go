package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/azielinski/slotwatch/internal/config"
	"github.com/azielinski/slotwatch/internal/http/handlers"
	"github.com/azielinski/slotwatch/internal/http/router"
	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/monitor"
	"github.com/azielinski/slotwatch/internal/notify"
	"github.com/azielinski/slotwatch/internal/observability/metrics"
	"github.com/azielinski/slotwatch/internal/store"
	"github.com/azielinski/slotwatch/pkg/logging"
)

func main() {
	// Load configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting slotwatch API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	secret := cfg.AuthJWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("AUTH_JWT_SECRET not set, issued tokens will not survive a restart")
	}

	// Redis backs search history and monitoring records.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	cancelPing()

	records := store.NewMonitoringStore(redisClient, cfg.HistoryTTL)
	history := store.NewSearchHistory(redisClient, cfg.HistoryTTL)

	// Metrics registry and the monitoring instrumentation.
	promRegistry := prometheus.NewRegistry()
	monitorMetrics := metrics.NewMonitorMetrics(promRegistry)

	// Notification fan-out: the log channel is always on, email joins in
	// when SendGrid is configured.
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil && cfg.NotifyEmail != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(sender, cfg.NotifyEmail, logger))
		logger.Info("email notifications enabled", "to", cfg.NotifyEmail)
	}

	// Monitorings outlive the requests that start them; this context ends
	// them all at shutdown.
	monitorCtx, stopMonitors := context.WithCancel(context.Background())
	defer stopMonitors()

	registry := monitor.NewRegistry(logger).
		WithMetrics(monitorMetrics).
		WithOnTerminated(func(sub monitor.Subscription, outcome monitor.Outcome) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := records.MarkEnded(ctx, sub.Owner, sub.ID, recordStatus(outcome)); err != nil {
				logger.Warn("monitoring record update failed", "subscription", sub.ID, "error", err)
			}
		})

	pool := handlers.NewClientPool()
	factory := func(creds medicover.Credentials) handlers.PortalClient {
		return newPortalClient(cfg, creds, logger)
	}

	routerCfg := &router.Config{
		Logger:  logger,
		Auth:    handlers.NewAuthHandler(pool, factory, secret, cfg.AuthTokenTTL, logger),
		Filters: handlers.NewFiltersHandler(pool, logger),
		Slots:   handlers.NewSlotsHandler(pool, history, logger),
		Monitorings: handlers.NewMonitoringsHandler(handlers.MonitoringsConfig{
			Pool:     pool,
			Registry: registry,
			Records:  records,
			Notifier: notifiers,
			Metrics:  monitorMetrics,
			Interval: cfg.MonitorPollInterval,
			Logger:   logger,
			BaseCtx:  monitorCtx,
		}),
		AuthSecret:     secret,
		MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopMonitors()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newPortalClient applies the configured portal overrides to a fresh client.
func newPortalClient(cfg *config.Config, creds medicover.Credentials, logger *logging.Logger) *medicover.Client {
	var authOpts []medicover.AuthOption
	if cfg.PortalAuthBaseURL != "" {
		authOpts = append(authOpts, medicover.WithAuthBaseURL(cfg.PortalAuthBaseURL))
	}

	opts := []medicover.Option{
		medicover.WithAuthenticator(medicover.NewAuthenticator(logger, authOpts...)),
		medicover.WithPageSize(cfg.SearchPageSize),
	}
	if cfg.PortalAPIBaseURL != "" {
		opts = append(opts, medicover.WithAPIBaseURL(cfg.PortalAPIBaseURL))
	}
	return medicover.NewClient(creds, logger, opts...)
}

func recordStatus(outcome monitor.Outcome) store.MonitoringStatus {
	switch outcome {
	case monitor.OutcomeFound:
		return store.StatusFound
	case monitor.OutcomeCancelled:
		return store.StatusCancelled
	default:
		return store.StatusFailed
	}
}
