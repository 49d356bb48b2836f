package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
)

// DatasetColumns is the preferred column order for exported records.
// Extension fields follow in sorted order.
var DatasetColumns = []string{
	"timestamp",
	"member_name",
	"city",
	"country",
	"temperature",
	"humidity",
	"wind_speed",
	"weather_main",
	"weather_description",
}

// Header returns DatasetColumns followed by the sorted union of the records'
// extension keys.
func Header(records []domain.CanonicalRecord) []string {
	fixed := make(map[string]struct{}, len(DatasetColumns))
	for _, c := range DatasetColumns {
		fixed[c] = struct{}{}
	}

	extra := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Extra {
			if _, ok := fixed[k]; !ok {
				extra[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return append(append([]string(nil), DatasetColumns...), keys...)
}

// Row renders rec under header. Absent values are empty cells.
func Row(rec domain.CanonicalRecord, header []string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = cell(rec, col)
	}
	return row
}

func cell(rec domain.CanonicalRecord, col string) string {
	switch col {
	case "timestamp":
		return rec.Timestamp
	case "member_name":
		return rec.MemberName
	case "city":
		return rec.City
	case "country":
		return rec.Country
	case "temperature":
		return formatOptional(rec.Temperature)
	case "humidity":
		return formatOptional(rec.Humidity)
	case "wind_speed":
		return formatOptional(rec.WindSpeed)
	case "weather_main":
		return rec.WeatherMain
	case "weather_description":
		return rec.WeatherDescription
	default:
		return rec.Extra[col]
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteDataset writes records as CSV with a header row.
func WriteDataset(w io.Writer, records []domain.CanonicalRecord) error {
	header := Header(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec, header)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDatasetFile writes records to path, replacing any previous file only
// once the new content is complete.
func WriteDatasetFile(path string, records []domain.CanonicalRecord) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return WriteDataset(w, records)
	})
}

// WriteFileAtomic writes to a temporary file in path's directory and renames
// it over path.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// MemberFileName is the contributor file for member, e.g. "Mary Jane" ->
// "weather_data_mary_jane.csv".
func MemberFileName(member string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(member), "_"))
	if slug == "" {
		slug = "unknown"
	}
	return "weather_data_" + slug + ".csv"
}

// AppendRecord appends rec to the member's file in dir. A new file gets the
// dataset header for rec. An existing file keeps its header; columns it does
// not have are dropped and returned.
func AppendRecord(dir string, rec domain.CanonicalRecord) (path string, dropped []string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create %s: %w", dir, err)
	}
	path = filepath.Join(dir, MemberFileName(rec.MemberName))

	header, err := existingHeader(path)
	if err != nil {
		return path, nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return path, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if header == nil {
		header = Header([]domain.CanonicalRecord{rec})
		if err := cw.Write(header); err != nil {
			return path, nil, fmt.Errorf("write header: %w", err)
		}
	} else {
		dropped = missingColumns(rec, header)
	}

	if err := cw.Write(Row(rec, header)); err != nil {
		return path, dropped, fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return path, dropped, fmt.Errorf("flush %s: %w", path, err)
	}
	return path, dropped, nil
}

// existingHeader returns the header of a non-empty file at path, or nil when
// the file is missing or empty.
func existingHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	return header, nil
}

func missingColumns(rec domain.CanonicalRecord, header []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, col := range Header([]domain.CanonicalRecord{rec}) {
		if _, ok := have[col]; ok {
			continue
		}
		if cell(rec, col) != "" {
			missing = append(missing, col)
		}
	}
	return missing
}
