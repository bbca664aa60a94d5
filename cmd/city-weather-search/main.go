package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/city-weather-search/internal/api/http"
	"github.com/i474232898/city-weather-search/internal/config"
	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/scheduler"
	"github.com/i474232898/city-weather-search/internal/store"
	"github.com/i474232898/city-weather-search/internal/weather"
	"github.com/i474232898/city-weather-search/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory search store; nothing survives a restart.
	searchStore := store.NewMemoryStore(clockwork.NewRealClock(), cfg.StoreMaxHistory)

	geocoder := providers.NewNominatimClient(httpClient, cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimLanguage, metrics, log)
	forecaster := providers.NewOpenMeteoClient(httpClient, cfg.OpenMeteoURL, cfg.ForecastDailyVariables, metrics, log)

	// Core service orchestrating upstreams and the store.
	service := weather.NewService(geocoder, forecaster, searchStore, metrics, log)

	// Reporter that periodically publishes search stats.
	sched := scheduler.New(cfg.StatsReportInterval, service, metrics, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "city-weather-search",
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "city-weather-search",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, httpapi.Options{
		RequestTimeout:  cfg.RequestTimeout,
		MaxForecastDays: cfg.ForecastMaxDays,
		CookieMaxAge:    cfg.VisitorCookieMaxAge,
	}, log)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal or a dead listener
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-listenErr:
		log.Error("fiber server stopped", "error", err)
		sched.Stop()
		os.Exit(1)
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutdown complete")
}
