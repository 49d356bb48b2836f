package domain

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Recognized column names per canonical field, in priority order. These tables
// are fixed; see doc.go for their provenance.
var (
	timestampKeys   = []string{"timestamp", "Timestamp", "date", "Date", "time", "Time"}
	cityKeys        = []string{"city", "City", "location", "Location", "place", "Place"}
	countryKeys     = []string{"country", "Country", "nation", "Nation"}
	temperatureKeys = []string{"temperature", "Temperature", "temp", "Temp", "Temperature (F)", "Temperature (C)"}
	humidityKeys    = []string{"humidity", "Humidity", "humid", "Humid"}
	windSpeedKeys   = []string{"wind_speed", "Wind Speed", "wind", "Wind", "windspeed", "WindSpeed"}
	descriptionKeys = []string{"weather_description", "Description", "description", "weather", "Weather", "conditions", "Conditions"}
)

const (
	memberNameKey  = "member_name"
	weatherMainKey = "weather_main"

	// memberFilePrefix marks contributor files, e.g. "weather_data_eric.csv".
	memberFilePrefix = "weather_data_"

	// fahrenheitThreshold is the reading above which an unlabelled temperature
	// is assumed to be Fahrenheit.
	fahrenheitThreshold = 50.0
)

// recognizedKeys holds every column consumed by a canonical field. Anything
// else is carried through as an extension field.
var recognizedKeys = func() map[string]struct{} {
	keys := map[string]struct{}{memberNameKey: {}, weatherMainKey: {}}
	for _, list := range [][]string{timestampKeys, cityKeys, countryKeys, temperatureKeys, humidityKeys, windSpeedKeys, descriptionKeys} {
		for _, k := range list {
			keys[k] = struct{}{}
		}
	}
	return keys
}()

// Normalize maps a raw row onto the canonical schema. It never fails: columns
// that cannot be parsed are left out and the rest of the row is kept.
func Normalize(raw RawRecord) CanonicalRecord {
	rec, _ := NormalizeDetailed(raw)
	return rec
}

// NormalizeDetailed is Normalize that also reports the recognized columns
// whose values were dropped because they did not parse as numbers.
func NormalizeDetailed(raw RawRecord) (CanonicalRecord, []FieldIssue) {
	var issues []FieldIssue

	rec := CanonicalRecord{
		MemberName: resolveMemberName(raw),
		Timestamp:  firstPresentOr(raw, timestampKeys, Unknown),
		City:       firstPresentOr(raw, cityKeys, Unknown),
		Country:    firstPresentOr(raw, countryKeys, Unknown),
	}

	rec.Temperature, issues = resolveTemperature(raw, issues)
	rec.Humidity, issues = resolveFloat(raw, "humidity", humidityKeys, issues)
	rec.WindSpeed, issues = resolveFloat(raw, "wind_speed", windSpeedKeys, issues)

	if desc, _, ok := firstPresent(raw, descriptionKeys); ok {
		rec.WeatherDescription = desc
		rec.WeatherMain = capitalize(firstWord(desc))
	} else if main, ok := raw.lookup(weatherMainKey); ok {
		rec.WeatherMain = capitalize(firstWord(main))
	}

	for _, key := range raw.Keys {
		if _, known := recognizedKeys[key]; known {
			continue
		}
		value := raw.Values[key]
		if strings.TrimSpace(value) == "" {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[key] = value
	}

	return rec, issues
}

// resolveMemberName prefers an explicit member_name column, then a name
// embedded in the source file ("weather_data_eric.csv" -> "Eric").
func resolveMemberName(raw RawRecord) string {
	if v, ok := raw.lookup(memberNameKey); ok {
		return v
	}
	return MemberFromSource(raw.SourceName)
}

// MemberFromSource derives a contributor name from a file name of the form
// "weather_data_<name>.csv". It returns Unknown when the name carries no
// contributor.
func MemberFromSource(sourceName string) string {
	base := filepath.Base(sourceName)
	i := strings.Index(base, memberFilePrefix)
	if i < 0 {
		return Unknown
	}
	name := base[i+len(memberFilePrefix):]
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".csv") {
		name = name[:len(name)-len(ext)]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Unknown
	}
	return capitalize(name)
}

// resolveTemperature returns degrees Celsius. A value read from a "(F)"
// column, or any value above fahrenheitThreshold, is treated as Fahrenheit.
// The threshold is a heuristic: a genuine Celsius reading above 50 will be
// converted as well.
func resolveTemperature(raw RawRecord, issues []FieldIssue) (*float64, []FieldIssue) {
	for _, key := range temperatureKeys {
		s, ok := raw.lookup(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			issues = append(issues, FieldIssue{Field: "temperature", Key: key, Value: s})
			continue
		}
		if strings.Contains(key, "(F)") || v > fahrenheitThreshold {
			v = round2(FahrenheitToCelsius(v))
		}
		return &v, issues
	}
	return nil, issues
}

// resolveFloat returns the first recognized column that parses as a number.
func resolveFloat(raw RawRecord, field string, keys []string, issues []FieldIssue) (*float64, []FieldIssue) {
	for _, key := range keys {
		s, ok := raw.lookup(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			issues = append(issues, FieldIssue{Field: field, Key: key, Value: s})
			continue
		}
		return &v, issues
	}
	return nil, issues
}

func firstPresent(raw RawRecord, keys []string) (value, key string, ok bool) {
	for _, k := range keys {
		if v, present := raw.lookup(k); present {
			return v, k, true
		}
	}
	return "", "", false
}

func firstPresentOr(raw RawRecord, keys []string, fallback string) string {
	if v, _, ok := firstPresent(raw, keys); ok {
		return v
	}
	return fallback
}

// FahrenheitToCelsius converts a temperature reading.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
