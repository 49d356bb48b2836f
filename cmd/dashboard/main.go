package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/team-weather-dashboard/internal/adapter/http"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/openweather"
	"github.com/couchcryptid/team-weather-dashboard/internal/app"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := app.OpenSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		os.Exit(1)
	}

	p := app.NewPipeline(cfg, sinks.Loaders, logger, metrics)
	scheduler, err := pipeline.NewScheduler(p, cfg.RefreshSchedule, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	opts := []httpadapter.Option{httpadapter.WithRefresher(scheduler)}

	// Live lookups are feature-flagged on OPENWEATHER_API_KEY.
	client, err := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger)
	switch {
	case err == nil:
		cached := openweather.NewCachedClient(client, cfg.OpenWeatherCacheSize, cfg.OpenWeatherCacheTTL, clockwork.NewRealClock(), metrics)
		opts = append(opts, httpadapter.WithWeather(cached))
		logger.Info("openweather lookups enabled", "cache_size", cfg.OpenWeatherCacheSize, "cache_ttl", cfg.OpenWeatherCacheTTL)
	case errors.Is(err, openweather.ErrMissingAPIKey):
		logger.Info("openweather lookups disabled")
	default:
		logger.Error("failed to create openweather client", "error", err)
		os.Exit(1)
	}

	ready := app.Readiness{p}
	if sinks.Store != nil {
		ready = append(ready, sinks.Store)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, p, logger, opts...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	scheduler.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}
	if err := sinks.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
