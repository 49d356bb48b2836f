// Package sqlstore persists team datasets to SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Supported backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		saved_seq BIGINT NOT NULL,
		generated_at TEXT NOT NULL,
		records INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS observations (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		member_name TEXT NOT NULL,
		observed_at TEXT NOT NULL,
		city TEXT NOT NULL,
		country TEXT NOT NULL,
		temperature DOUBLE PRECISION,
		humidity DOUBLE PRECISION,
		wind_speed DOUBLE PRECISION,
		weather_main TEXT NOT NULL,
		weather_description TEXT NOT NULL,
		extra TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS observations_city ON observations (city)`,
}

// Store writes one row per canonical record, keyed by run.
type Store struct {
	db       *sql.DB
	driver   string
	keepRuns int
}

// Option configures a Store.
type Option func(*Store)

// WithKeepRuns keeps only the n most recently saved runs. Older runs are
// deleted in the same transaction that saves a new one. n <= 0 keeps every
// run.
func WithKeepRuns(n int) Option {
	return func(s *Store) { s.keepRuns = n }
}

// Open connects to the database and creates the schema if needed. For
// SQLite, dsn is a file path whose directory is created on demand.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Name() string { return "sql" }

// LoadDataset saves the dataset under its run ID.
func (s *Store) LoadDataset(ctx context.Context, ds domain.Dataset) error {
	return s.SaveDataset(ctx, ds.RunID, ds.GeneratedAt, ds.Records)
}

// SaveDataset writes a run and its records in one transaction. Saving the
// same run twice replaces its rows and makes it the newest run.
func (s *Store) SaveDataset(ctx context.Context, runID string, generatedAt time.Time, records []domain.CanonicalRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM observations WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM runs WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}

	var seq int64
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(saved_seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return fmt.Errorf("next run sequence: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO runs (run_id, saved_seq, generated_at, records) VALUES (?, ?, ?, ?)`),
		runID, seq, generatedAt.UTC().Format(time.RFC3339), len(records)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO observations (
		run_id, seq, member_name, observed_at, city, country,
		temperature, humidity, wind_speed, weather_main, weather_description, extra
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		extra, mErr := encodeExtra(r.Extra)
		if mErr != nil {
			err = mErr
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			runID, i, r.MemberName, r.Timestamp, r.City, r.Country,
			nullFloat(r.Temperature), nullFloat(r.Humidity), nullFloat(r.WindSpeed),
			r.WeatherMain, r.WeatherDescription, extra,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if s.keepRuns > 0 {
		if err = s.prune(ctx, tx, seq-int64(s.keepRuns)+1); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// prune deletes every run saved before cutoff.
func (s *Store) prune(ctx context.Context, tx *sql.Tx, cutoff int64) error {
	if _, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM observations WHERE run_id IN (SELECT run_id FROM runs WHERE saved_seq < ?)`), cutoff); err != nil {
		return fmt.Errorf("prune observations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM runs WHERE saved_seq < ?`), cutoff); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// CountRun returns the number of records stored for runID.
func (s *Store) CountRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM observations WHERE run_id = ?`), runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count run: %w", err)
	}
	return n, nil
}

// RunRecords reads a run's records back in their original order.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]domain.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		member_name, observed_at, city, country,
		temperature, humidity, wind_speed, weather_main, weather_description, extra
	FROM observations WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var out []domain.CanonicalRecord
	for rows.Next() {
		var (
			r               domain.CanonicalRecord
			temp, hum, wind sql.NullFloat64
			extra           string
		)
		if err := rows.Scan(&r.MemberName, &r.Timestamp, &r.City, &r.Country,
			&temp, &hum, &wind, &r.WeatherMain, &r.WeatherDescription, &extra); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Temperature = floatPtr(temp)
		r.Humidity = floatPtr(hum)
		r.WindSpeed = floatPtr(wind)
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
				return nil, fmt.Errorf("decode extra: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func encodeExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encode extra: %w", err)
	}
	return string(data), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}
