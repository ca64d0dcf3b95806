package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iago/media-console/internal/analysis"
	"github.com/iago/media-console/internal/cache"
	"github.com/iago/media-console/internal/config"
	"github.com/iago/media-console/internal/directory"
	httpserver "github.com/iago/media-console/internal/http"
	"github.com/iago/media-console/internal/http/handlers"
	"github.com/iago/media-console/internal/http/middleware"
	"github.com/iago/media-console/internal/notify"
	"github.com/iago/media-console/internal/remote"
	"github.com/iago/media-console/internal/reports"
	"github.com/iago/media-console/internal/repository"
)

func main() {
	logger := log.New(os.Stdout, "[console] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, historyCloser := setupHistory(ctx, cfg, logger)
	defer historyCloser()

	sink, sinkCloser := setupNotifySink(ctx, cfg, logger)
	defer sinkCloser()

	center := notify.NewCenter(notify.CenterConfig{
		Capacity: cfg.NotifyHistory,
		Sink:     sink,
		Logger:   logger,
	})
	defer center.Close()

	port := remote.NewHTTPClient(remote.HTTPClientConfig{
		BaseURL:           cfg.BackendBaseURL,
		Timeout:           time.Duration(cfg.BackendTimeoutMS) * time.Millisecond,
		MaxRetries:        cfg.BackendMaxRetries,
		RequestsPerSecond: cfg.BackendRPS,
		Burst:             cfg.BackendBurst,
		RequestID:         middleware.RequestIDFromContext,
	})

	clients := directory.NewClientStore(port, center, logger)
	prompts := directory.NewPromptStore(port, center, logger)
	controller := analysis.NewController(analysis.Dependencies{
		Port:     port,
		Notifier: center,
		History:  history,
		Logger:   logger,
	})
	contentCache := cache.NewContentCache(cache.Config{
		TTL:        time.Duration(cfg.ReportCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.ReportCacheMaxEntries,
	})
	lookup := reports.NewLookup(port, contentCache, logger)

	if cfg.InitialSync {
		// Failures are recorded on the stores and surfaced by the list routes.
		if err := clients.Refresh(ctx); err != nil {
			logger.Printf("initial client sync failed: %v", err)
		}
		if err := prompts.Refresh(ctx); err != nil {
			logger.Printf("initial prompt sync failed: %v", err)
		}
	}

	api := handlers.NewAPI(handlers.Dependencies{
		Clients:       clients,
		Prompts:       prompts,
		Analysis:      controller,
		Reports:       lookup,
		History:       history,
		Notifications: center,
		ReportAwait: reports.AwaitPolicy{
			Attempts: cfg.ReportAwaitAttempts,
			Interval: time.Duration(cfg.ReportAwaitIntervalMS) * time.Millisecond,
		},
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Context:        ctx,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Report polling with await=true can hold a request open.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("console listening on :%s backend=%s", cfg.Port, cfg.BackendBaseURL)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}

	// A submitted analysis is not cancellable; give it a chance to land in
	// the history before the store closes.
	if controller.Busy() {
		logger.Printf("waiting for pending analysis to finish")
		if _, err := controller.Wait(shutdownCtx); err != nil {
			logger.Printf("pending analysis still running at exit: %v", err)
		}
	}
}

func setupHistory(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.HistoryRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory history")
		return repository.NewMemoryHistoryRepository(), func() {}
	}

	pgRepo, err := repository.NewPostgresHistoryRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres history, fallback to memory: %v", err)
		return repository.NewMemoryHistoryRepository(), func() {}
	}
	logger.Printf("postgres history initialized")
	return pgRepo, func() {
		pgRepo.Close()
	}
}

func setupNotifySink(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (notify.Sink, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, notifications stay in memory")
		return nil, func() {}
	}

	streams, err := notify.NewStreamSink(ctx, notify.StreamSinkConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Stream:   cfg.RedisNotifyStream,
	})
	if err != nil {
		logger.Printf("failed to initialize redis notification stream, continuing without it: %v", err)
		return nil, func() {}
	}
	logger.Printf("redis notification stream initialized stream=%s", cfg.RedisNotifyStream)
	return streams, func() {
		_ = streams.Close()
	}
}
