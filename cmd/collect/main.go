// Command collect fetches the current weather for one city, appends it to
// the member's CSV file in the data directory, and prints the team report
// once more than one record is available.
//
// Usage:
//
//	go run ./cmd/collect -member Alice -city Austin -country US
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/openweather"
	"github.com/couchcryptid/team-weather-dashboard/internal/app"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/report"
)

func main() {
	member := flag.String("member", "Team Member", "your name, recorded in member_name")
	city := flag.String("city", "", "city to look up (required)")
	country := flag.String("country", "", "optional ISO 3166 country code")
	flag.Parse()

	if *city == "" {
		fmt.Fprintln(os.Stderr, "city name is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger)
	if err != nil {
		if errors.Is(err, openweather.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "set OPENWEATHER_API_KEY (or add it to .env) to collect weather data")
		}
		logger.Error("failed to create openweather client", "error", err)
		os.Exit(1)
	}

	obs, err := client.Current(ctx, *city, *country)
	if err != nil {
		logger.Error("fetch current weather", "city", *city, "error", err)
		os.Exit(1)
	}
	rec := domain.FormatObservation(obs, *member)
	printCurrent(os.Stdout, rec)

	path, dropped, err := csvfile.AppendRecord(cfg.DataDir, rec)
	if err != nil {
		logger.Error("save record", "error", err)
		os.Exit(1)
	}
	if len(dropped) > 0 {
		logger.Warn("existing file header lacks columns; values not saved", "file", path, "columns", dropped)
	}
	fmt.Printf("\nData saved to: %s\n", path)

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

	ds, err := app.NewPipeline(cfg, sinks.Loaders, logger, metrics).RunOnce(ctx)
	if err != nil {
		logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	if ds.Statistics.TotalRecords > 1 {
		fmt.Print("\n" + report.Text(*ds))
		return
	}
	fmt.Println("\nAdd more team member data files to generate comparison reports.")
	fmt.Println("Each team member should run this command and share their CSV file.")
}

var title = cases.Title(language.English)

// printCurrent writes the human-readable summary of a fetched observation.
func printCurrent(w io.Writer, rec domain.CanonicalRecord) {
	fmt.Fprintf(w, "\nCurrent Weather in %s, %s:\n", rec.City, rec.Country)
	fmt.Fprintf(w, "   Temperature: %s (feels like %s)\n", optional(rec.Temperature, "%.1f°C"), withSuffix(rec.Extra["feels_like"], "°C"))
	fmt.Fprintf(w, "   Condition: %s\n", title.String(rec.WeatherDescription))
	fmt.Fprintf(w, "   Humidity: %s\n", optional(rec.Humidity, "%.0f%%"))
	fmt.Fprintf(w, "   Wind: %s\n", optional(rec.WindSpeed, "%.1f m/s"))
	fmt.Fprintf(w, "   Sunrise: %s | Sunset: %s\n", orNA(rec.Extra["sunrise"]), orNA(rec.Extra["sunset"]))
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func withSuffix(s, suffix string) string {
	if s == "" {
		return "n/a"
	}
	return s + suffix
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
