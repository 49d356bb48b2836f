package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/export"
	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSinks_FilesOnly(t *testing.T) {
	cfg := &config.Config{ExportDir: t.TempDir(), StorageType: config.StorageNone}

	sinks, err := OpenSinks(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer sinks.Close()

	require.Len(t, sinks.Loaders, 1)
	assert.Equal(t, "files", sinks.Loaders[0].Name())
	assert.Nil(t, sinks.Store)
}

func TestOpenSinks_SQLiteAndKafka(t *testing.T) {
	cfg := &config.Config{
		ExportDir:    t.TempDir(),
		StorageType:  config.StorageSQLite,
		DatabasePath: filepath.Join(t.TempDir(), "weather.db"),
		KeepRuns:     1,
		KafkaEnabled: true,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "team-weather-records",
	}

	sinks, err := OpenSinks(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	var names []string
	for _, l := range sinks.Loaders {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"files", "sql", "kafka"}, names)
	require.NotNil(t, sinks.Store)

	ctx := context.Background()
	require.NoError(t, sinks.Store.LoadDataset(ctx, domain.Dataset{RunID: "first", GeneratedAt: time.Now()}))
	require.NoError(t, sinks.Store.LoadDataset(ctx, domain.Dataset{RunID: "second", GeneratedAt: time.Now()}))
	runs, err := sinks.Store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	assert.NoError(t, sinks.Close())
}

func TestNewPipeline_RunsAgainstDataDir(t *testing.T) {
	dataDir := t.TempDir()
	exportDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "weather_data_alice.csv"),
		[]byte("city,temperature\nAustin,21\n"), 0o600))

	cfg := &config.Config{DataDir: dataDir, ExportDir: exportDir, CityFilter: []string{"Austin"}}
	sinks, err := OpenSinks(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	p := NewPipeline(cfg, sinks.Loaders, discardLogger(), observability.NewMetricsForTesting())
	ds, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Statistics.TotalRecords)
	assert.Equal(t, []string{"Austin"}, ds.Cities.Cities)
	assert.FileExists(t, filepath.Join(exportDir, export.ReportFile))
}

type stubChecker struct{ err error }

func (s stubChecker) CheckReadiness(context.Context) error { return s.err }

func TestReadiness(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Readiness{stubChecker{}, nil}.CheckReadiness(ctx))

	boom := errors.New("db down")
	assert.ErrorIs(t, Readiness{stubChecker{}, stubChecker{err: boom}}.CheckReadiness(ctx), boom)
}
