// Package report renders a team dataset for people (text) and machines
// (JSON, YAML).
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/mattn/go-runewidth"
)

const notAvailable = "n/a"

// Text renders the human-readable team report.
func Text(ds domain.Dataset) string {
	stats := ds.Statistics
	if stats.TotalRecords == 0 {
		return "No data available for comparison.\n"
	}

	var b strings.Builder
	b.WriteString("TEAM WEATHER DASHBOARD REPORT\n")
	b.WriteString("=============================\n\n")

	b.WriteString("Overview:\n")
	fmt.Fprintf(&b, "  Records:        %d\n", stats.TotalRecords)
	fmt.Fprintf(&b, "  Team Members:   %d\n", len(stats.Members))
	fmt.Fprintf(&b, "  Cities Covered: %d\n", len(stats.Cities))
	fmt.Fprintf(&b, "  Countries:      %s\n", joinOrNA(stats.Countries))
	b.WriteString("\n")

	t := stats.Temperature
	b.WriteString("Temperature Analysis:\n")
	fmt.Fprintf(&b, "  Hottest:      %s\n", extreme(stats.Hottest, "°C"))
	fmt.Fprintf(&b, "  Coldest:      %s\n", extreme(stats.Coldest, "°C"))
	fmt.Fprintf(&b, "  Team Average: %s\n", withUnit(t.Mean, 1, "°C"))
	fmt.Fprintf(&b, "  Range:        %s\n", spread(t, "°C"))
	b.WriteString("\n")

	h := stats.Humidity
	b.WriteString("Humidity Analysis:\n")
	fmt.Fprintf(&b, "  Highest:      %s\n", withUnit(h.Max, 0, "%"))
	fmt.Fprintf(&b, "  Lowest:       %s\n", withUnit(h.Min, 0, "%"))
	fmt.Fprintf(&b, "  Team Average: %s\n", withUnit(h.Mean, 1, "%"))
	b.WriteString("\n")

	w := stats.WindSpeed
	b.WriteString("Wind Analysis:\n")
	fmt.Fprintf(&b, "  Strongest:    %s\n", withUnit(w.Max, 1, " m/s"))
	fmt.Fprintf(&b, "  Calmest:      %s\n", withUnit(w.Min, 1, " m/s"))
	fmt.Fprintf(&b, "  Team Average: %s\n", withUnit(w.Mean, 1, " m/s"))
	b.WriteString("\n")

	b.WriteString("Weather Conditions Across Team:\n")
	fmt.Fprintf(&b, "  %s\n\n", joinOrNA(stats.WeatherConditions))

	b.WriteString("City Comparison:\n")
	if ds.NoCityData {
		fmt.Fprintf(&b, "  No data for cities: %s\n", strings.Join(ds.CityFilter, ", "))
	} else {
		for _, line := range cityTable(ds.Cities) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if len(ds.FilesFailed) > 0 {
		fmt.Fprintf(&b, "Skipped files: %s\n\n", strings.Join(ds.FilesFailed, ", "))
	}

	fmt.Fprintf(&b, "Report generated: %s\n", ds.GeneratedAt.Format(time.DateTime))
	return b.String()
}

// cityTable lays out one row per city, padding by display width so
// accented and wide city names stay aligned.
func cityTable(cmp domain.CityComparison) []string {
	rows := [][]string{{"City", "Records", "Members", "Avg Temp", "Min", "Max", "Avg Humidity", "Avg Wind"}}
	for _, city := range cmp.Cities {
		a := cmp.PerCity[city]
		s := a.Statistics
		rows = append(rows, []string{
			city,
			strconv.Itoa(a.Records),
			strings.Join(a.Members, ", "),
			withUnit(s.Temperature.Mean, 1, "°C"),
			withUnit(s.Temperature.Min, 1, "°C"),
			withUnit(s.Temperature.Max, 1, "°C"),
			withUnit(s.Humidity.Mean, 1, "%"),
			withUnit(s.WindSpeed.Mean, 1, " m/s"),
		})
	}
	return alignRows(rows)
}

func alignRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	for r, row := range rows {
		var sb strings.Builder
		for i, c := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(c, widths[i]))
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
		if r == 0 {
			var sep strings.Builder
			for i, w := range widths {
				if i > 0 {
					sep.WriteString("  ")
				}
				sep.WriteString(strings.Repeat("-", w))
			}
			lines = append(lines, sep.String())
		}
	}
	return lines
}

func withUnit(v *float64, decimals int, unit string) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64) + unit
}

func extreme(e *domain.Extreme, unit string) string {
	if e == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.1f%s in %s (%s)", e.Value, unit, e.City, e.MemberName)
}

func spread(s domain.FieldStats, unit string) string {
	if s.Min == nil || s.Max == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*s.Max-*s.Min, 'f', 1, 64) + unit
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return notAvailable
	}
	return strings.Join(values, ", ")
}
