// Package export writes the team dataset, summary, and report to files.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/team-weather-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/report"
)

// Output file names under the export directory.
const (
	DatasetFile     = "team_dataset.csv"
	SummaryJSONFile = "team_summary.json"
	SummaryYAMLFile = "team_summary.yaml"
	ReportFile      = "team_report.txt"
)

// Exporter is a pipeline sink that rewrites the export directory on every run.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

func (e *Exporter) Name() string { return "files" }

// LoadDataset writes all export files. Each file is replaced atomically, so
// readers never observe a partial write.
func (e *Exporter) LoadDataset(ctx context.Context, ds domain.Dataset) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	summaryJSON, err := report.JSON(ds)
	if err != nil {
		return err
	}
	summaryYAML, err := report.YAML(ds)
	if err != nil {
		return err
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{DatasetFile, func(w io.Writer) error { return csvfile.WriteDataset(w, ds.Records) }},
		{SummaryJSONFile, writeBytes(summaryJSON)},
		{SummaryYAMLFile, writeBytes(summaryYAML)},
		{ReportFile, writeBytes([]byte(report.Text(ds)))},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(e.dir, f.name)
		if err := csvfile.WriteFileAtomic(path, f.write); err != nil {
			return fmt.Errorf("export %s: %w", f.name, err)
		}
		e.logger.Debug("export written", "file", path)
	}

	e.logger.Info("exports written", "dir", e.dir, "records", len(ds.Records), "run_id", ds.RunID)
	return nil
}

func writeBytes(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}
