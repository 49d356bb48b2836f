// Package app wires configuration into the pipeline and its sinks for the
// commands under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/export"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/sqlstore"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/pipeline"
)

// Sinks holds the loaders enabled by configuration.
type Sinks struct {
	Loaders []pipeline.Loader
	Store   *sqlstore.Store // nil unless storage is enabled
	closers []func() error
}

// OpenSinks builds the file exporter plus the SQL store and Kafka writer when
// configured.
func OpenSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Sinks, error) {
	s := &Sinks{}
	s.Loaders = append(s.Loaders, export.NewExporter(cfg.ExportDir, logger))

	switch cfg.StorageType {
	case config.StorageSQLite, config.StoragePostgres:
		dsn := cfg.DatabasePath
		if cfg.StorageType == config.StoragePostgres {
			dsn = cfg.DatabaseURL
		}
		store, err := sqlstore.Open(ctx, cfg.StorageType, dsn, sqlstore.WithKeepRuns(cfg.KeepRuns))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		s.Store = store
		s.Loaders = append(s.Loaders, store)
		s.closers = append(s.closers, store.Close)
		logger.Info("dataset storage enabled", "type", cfg.StorageType, "keep_runs", cfg.KeepRuns)
	default:
		logger.Info("dataset storage disabled")
	}

	if cfg.KafkaEnabled {
		w := kafka.NewWriter(cfg, logger)
		s.Loaders = append(s.Loaders, w)
		s.closers = append(s.closers, w.Close)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	return s, nil
}

// Close releases every sink, returning the joined errors.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewPipeline reads the configured data directory into the given loaders.
func NewPipeline(cfg *config.Config, loaders []pipeline.Loader, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New(
		csvfile.NewReader(cfg.DataDir, logger),
		loaders,
		logger,
		metrics,
		pipeline.WithCityFilter(cfg.CityFilter),
	)
}

// Readiness is ready when every checker is.
type Readiness []sharedobs.ReadinessChecker

func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if c == nil {
			continue
		}
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
