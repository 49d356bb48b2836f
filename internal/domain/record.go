package domain

import "strings"

// Unknown is the placeholder for identity and location fields that no
// recognized column supplied.
const Unknown = "Unknown"

// RawRecord is one decoded CSV row before normalization. Keys preserves the
// header order; Values holds the cell for each key.
type RawRecord struct {
	SourceName string
	Keys       []string
	Values     map[string]string
}

// NewRawRecord pairs a header with one row. Missing trailing cells are empty
// and surplus cells are dropped. When a header name repeats, the later
// column's value wins and the key is listed once.
func NewRawRecord(sourceName string, header, row []string) RawRecord {
	rec := RawRecord{
		SourceName: sourceName,
		Keys:       make([]string, 0, len(header)),
		Values:     make(map[string]string, len(header)),
	}
	for i, key := range header {
		var value string
		if i < len(row) {
			value = row[i]
		}
		if _, seen := rec.Values[key]; !seen {
			rec.Keys = append(rec.Keys, key)
		}
		rec.Values[key] = value
	}
	return rec
}

// lookup returns the trimmed value for key and whether it is present
// (non-empty after trimming).
func (r RawRecord) lookup(key string) (string, bool) {
	v, ok := r.Values[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// CanonicalRecord is the fixed-schema form of one observation. Numeric fields
// are nil when no parsable value was found; optional strings are empty when
// absent.
type CanonicalRecord struct {
	MemberName         string            `json:"member_name"`
	Timestamp          string            `json:"timestamp"`
	City               string            `json:"city"`
	Country            string            `json:"country"`
	Temperature        *float64          `json:"temperature"`
	Humidity           *float64          `json:"humidity"`
	WindSpeed          *float64          `json:"wind_speed"`
	WeatherMain        string            `json:"weather_main,omitempty"`
	WeatherDescription string            `json:"weather_description,omitempty"`
	Extra              map[string]string `json:"extra,omitempty"`
}

// Condition returns the record's weather condition: WeatherMain when set,
// otherwise the capitalized first word of the description.
func (r CanonicalRecord) Condition() string {
	if r.WeatherMain != "" {
		return r.WeatherMain
	}
	return capitalize(firstWord(r.WeatherDescription))
}

// FieldIssue describes a recognized column whose value could not be parsed.
// The value is dropped from the canonical record; the row is kept.
type FieldIssue struct {
	Field string
	Key   string
	Value string
}

// Float returns a pointer to v, for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}
