package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
)

// utf8BOM prefixes CSV files saved by spreadsheet tools.
const utf8BOM = "\ufeff"

// Reader loads every *.csv file in a directory as raw records.
// It implements pipeline.Extractor.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a Reader over dir.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

// Extract reads the directory's CSV files in name order. A file that cannot
// be opened or decoded is reported in the batch's Failed list and contributes no rows;
// the remaining files are still read. A missing directory yields an empty
// batch.
func (r *Reader) Extract(ctx context.Context) (domain.Batch, error) {
	var batch domain.Batch

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("data directory does not exist", "dir", r.dir)
			return batch, nil
		}
		return batch, fmt.Errorf("read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		records, err := ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			r.logger.Warn("skipping unreadable file", "file", name, "error", err)
			batch.Failed = append(batch.Failed, domain.FileError{File: name, Err: err})
			continue
		}
		r.logger.Debug("loaded file", "file", name, "rows", len(records))
		batch.Files = append(batch.Files, name)
		batch.Records = append(batch.Records, records...)
	}

	return batch, nil
}

// ReadFile decodes one CSV file. The first row is the header; each later row
// becomes a RawRecord tagged with the file's base name. Rows may be shorter or
// longer than the header.
func ReadFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, filepath.Base(path))
}

// Decode reads CSV rows from r. An empty input has no records.
func Decode(r io.Reader, sourceName string) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		records = append(records, domain.NewRawRecord(sourceName, header, row))
	}
	return records, nil
}
