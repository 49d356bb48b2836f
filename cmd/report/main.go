// Command report runs the pipeline once over a team data directory, writes
// the exports, and prints the comparison report.
//
// Usage:
//
//	go run ./cmd/report -data-dir data -city Austin,Boston -format text
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/team-weather-dashboard/internal/app"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.DataDir, "directory containing weather_data_*.csv files")
	exportDir := flag.String("export-dir", cfg.ExportDir, "directory for dataset and report exports")
	cities := flag.String("city", "", "comma-separated cities to compare (default: all)")
	format := flag.String("format", "text", "output format: text, json, or yaml")
	flag.Parse()

	cfg.DataDir = *dataDir
	cfg.ExportDir = *exportDir
	if *cities != "" {
		cfg.CityFilter = config.ParseList(*cities)
	}

	render, ok := renderers[*format]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := app.OpenSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}()

	p := app.NewPipeline(cfg, sinks.Loaders, logger, observability.NewMetrics())
	ds, err := p.RunOnce(ctx)
	if err != nil {
		logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	out, err := render(*ds)
	if err != nil {
		logger.Error("render report", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

var renderers = map[string]func(domain.Dataset) ([]byte, error){
	"text": func(ds domain.Dataset) ([]byte, error) { return []byte(report.Text(ds)), nil },
	"json": report.JSON,
	"yaml": report.YAML,
}
