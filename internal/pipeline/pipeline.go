package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Extractor reads every raw record available from the source.
type Extractor interface {
	Extract(ctx context.Context) (domain.Batch, error)
}

// Loader delivers a finished dataset to a destination.
type Loader interface {
	Name() string
	LoadDataset(ctx context.Context, ds domain.Dataset) error
}

// Run outcomes recorded in the runs_total metric.
const (
	outcomeSuccess = "success"
	outcomePartial = "partial"
	outcomeError   = "error"
)

// Pipeline orchestrates one extract-normalize-aggregate-load run at a time
// and keeps the most recent dataset for readers.
type Pipeline struct {
	extractor  Extractor
	loaders    []Loader
	cityFilter []string
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	latest atomic.Pointer[domain.Dataset]
	ready  atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCityFilter restricts the per-city comparison to the given cities.
func WithCityFilter(cities []string) Option {
	return func(p *Pipeline) { p.cityFilter = cities }
}

// WithClock sets the clock used for run timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRetry sets how often a failing sink is attempted and the backoff
// between attempts.
func WithRetry(attempts int, base, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		p.baseBackoff = base
		p.maxBackoff = maxBackoff
	}
}

// New creates a Pipeline reading from e and delivering to every loader.
func New(e Extractor, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: e,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		// Exponential backoff: start at 200ms, double each retry, cap at 5s.
		maxAttempts: 3,
		baseBackoff: 200 * time.Millisecond,
		maxBackoff:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no refresh run has completed yet")
	}
	return nil
}

// Latest returns the dataset of the most recent completed run, or nil.
func (p *Pipeline) Latest() *domain.Dataset {
	return p.latest.Load()
}

// RunOnce reads all sources, builds a new dataset, hands it to every loader,
// and publishes it as the latest dataset. Unreadable files and failing sinks
// are logged and counted without aborting the run; only an extract failure
// or cancellation returns an error.
func (p *Pipeline) RunOnce(ctx context.Context) (*domain.Dataset, error) {
	start := p.clock.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	batch, err := p.extractor.Extract(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues(outcomeError).Inc()
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.metrics.FilesLoaded.Add(float64(len(batch.Files)))
	p.metrics.FilesFailed.Add(float64(len(batch.Failed)))

	ds := p.build(batch, start)
	logger := p.logger.With("run_id", ds.RunID)
	logger.Info("dataset built",
		"files", len(ds.FilesLoaded),
		"failed_files", len(ds.FilesFailed),
		"records", len(ds.Records),
		"cities", ds.Cities.CitiesAnalyzed,
	)

	sinkFailures := 0
	for _, l := range p.loaders {
		if err := p.loadWithRetry(ctx, l, *ds); err != nil {
			if ctx.Err() != nil {
				p.metrics.Runs.WithLabelValues(outcomeError).Inc()
				return nil, ctx.Err()
			}
			sinkFailures++
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			logger.Error("sink load failed", "sink", l.Name(), "error", err)
			continue
		}
		p.metrics.RecordsExported.WithLabelValues(l.Name()).Add(float64(len(ds.Records)))
	}

	p.latest.Store(ds)
	p.ready.Store(true)
	p.metrics.DatasetRecords.Set(float64(len(ds.Records)))
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())

	outcome := outcomeSuccess
	if sinkFailures > 0 || len(ds.FilesFailed) > 0 {
		outcome = outcomePartial
	}
	p.metrics.Runs.WithLabelValues(outcome).Inc()
	logger.Info("refresh run complete", "outcome", outcome, "sink_failures", sinkFailures)
	return ds, nil
}

// build normalizes and aggregates a batch into a dataset.
func (p *Pipeline) build(batch domain.Batch, start time.Time) *domain.Dataset {
	records := make([]domain.CanonicalRecord, 0, len(batch.Records))
	for _, raw := range batch.Records {
		rec, issues := domain.NormalizeDetailed(raw)
		for _, issue := range issues {
			p.metrics.FieldParseFailures.WithLabelValues(issue.Field).Inc()
			p.logger.Debug("unparsable value dropped",
				"file", raw.SourceName, "field", issue.Field, "column", issue.Key, "value", issue.Value)
		}
		records = append(records, rec)
	}
	p.metrics.RecordsNormalized.Add(float64(len(records)))

	ds := &domain.Dataset{
		RunID:       uuid.NewString(),
		GeneratedAt: start.UTC(),
		Records:     records,
		Statistics:  domain.Aggregate(records),
		CityFilter:  p.cityFilter,
		FilesLoaded: batch.Files,
	}
	for _, f := range batch.Failed {
		ds.FilesFailed = append(ds.FilesFailed, f.File)
	}

	cities, err := domain.AggregateByCity(records, p.cityFilter...)
	if err != nil {
		// AggregateByCity only fails when the filter matched nothing.
		p.logger.Warn("no data for requested cities", "cities", p.cityFilter)
		ds.NoCityData = true
	}
	ds.Cities = cities
	return ds
}

// loadWithRetry attempts a sink up to maxAttempts times with exponential
// backoff between attempts.
func (p *Pipeline) loadWithRetry(ctx context.Context, l Loader, ds domain.Dataset) error {
	backoff := p.baseBackoff
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err = l.LoadDataset(ctx, ds); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == p.maxAttempts {
			break
		}
		p.logger.Warn("sink load failed, retrying",
			"sink", l.Name(), "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
	return err
}
