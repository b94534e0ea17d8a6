// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/cache"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/config"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/database"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/handler"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/metrics"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/repository"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/service"
)

func main() {
	cfg, err := config.Load(config.NewLogger())
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Rebuilt so GO_ENV and LOG_LEVEL from .env apply.
	logger := config.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// ── 1. Storage ───────────────────────────────────────────────────────
	var (
		events   service.EventStore
		bookings service.BookingStore
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := repository.NewMemoryStore()
		events, bookings = store.Events(), store.Bookings()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.DB.DSN(), logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		logger.Info("connected to PostgreSQL")
		events = repository.NewEventRepository(pool)
		bookings = repository.NewBookingRepository(pool)
	}

	// ── 2. Summary cache ─────────────────────────────────────────────────
	var summaries service.SummaryCache = cache.Nop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		summaries = cache.NewRedisCache(client, cfg.CacheTTL, logger)
		logger.Info("connected to Redis", "ttl", cfg.CacheTTL)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	validate := service.NewValidator()
	eventSvc := service.NewEventService(events, summaries, validate, logger)
	bookingSvc := service.NewBookingService(bookings, summaries, metrics.NewRecorder(), validate, logger)

	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, logger),
		handler.NewBookingHandler(bookingSvc, logger),
		logger,
		handler.RouterConfig{
			AllowedOrigins:   cfg.AllowedOrigins,
			BookingRateLimit: cfg.BookingRateLimit,
			BookingRateBurst: cfg.BookingRateBurst,
		},
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
