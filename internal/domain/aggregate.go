package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoCityData is returned by AggregateByCity when a city filter matched no
// records. It is distinct from a successful comparison over an empty dataset.
var ErrNoCityData = errors.New("no data for requested cities")

// FieldStats summarizes one numeric field. Min, Max and Mean are nil when
// Count is zero.
type FieldStats struct {
	Count int      `json:"count" yaml:"count"`
	Min   *float64 `json:"min" yaml:"min"`
	Max   *float64 `json:"max" yaml:"max"`
	Mean  *float64 `json:"mean" yaml:"mean"`
}

// Extreme identifies the record holding a field's highest or lowest value.
type Extreme struct {
	City       string  `json:"city" yaml:"city"`
	MemberName string  `json:"member_name" yaml:"member_name"`
	Value      float64 `json:"value" yaml:"value"`
}

// Statistics is the team-wide (or per-city) summary of a record set.
type Statistics struct {
	TotalRecords      int        `json:"total_records" yaml:"total_records"`
	Members           []string   `json:"members" yaml:"members"`
	Cities            []string   `json:"cities" yaml:"cities"`
	Countries         []string   `json:"countries" yaml:"countries"`
	WeatherConditions []string   `json:"weather_conditions" yaml:"weather_conditions"`
	Temperature       FieldStats `json:"temperature" yaml:"temperature"`
	Humidity          FieldStats `json:"humidity" yaml:"humidity"`
	WindSpeed         FieldStats `json:"wind_speed" yaml:"wind_speed"`
	Hottest           *Extreme   `json:"hottest,omitempty" yaml:"hottest,omitempty"`
	Coldest           *Extreme   `json:"coldest,omitempty" yaml:"coldest,omitempty"`
}

// CityAnalysis is Statistics restricted to one city.
type CityAnalysis struct {
	City       string     `json:"city" yaml:"city"`
	Records    int        `json:"records" yaml:"records"`
	Members    []string   `json:"members" yaml:"members"`
	Statistics Statistics `json:"statistics" yaml:"statistics"`
}

// CityComparison groups per-city analyses. Cities lists the keys of PerCity
// in sorted order.
type CityComparison struct {
	CitiesAnalyzed int                     `json:"cities_analyzed" yaml:"cities_analyzed"`
	TotalRecords   int                     `json:"total_records" yaml:"total_records"`
	Cities         []string                `json:"cities" yaml:"cities"`
	PerCity        map[string]CityAnalysis `json:"per_city" yaml:"per_city"`
}

// Aggregate computes statistics over records in a single pass. Absent numeric
// values are skipped rather than counted as zero.
func Aggregate(records []CanonicalRecord) Statistics {
	var (
		temp, humidity, wind accumulator
		members              = newStringSet()
		cities               = newStringSet()
		countries            = newStringSet()
		conditions           = newStringSet()
		hottest, coldest     *Extreme
	)

	for _, r := range records {
		members.add(r.MemberName)
		cities.add(r.City)
		countries.add(r.Country)
		conditions.add(r.Condition())

		if r.Temperature != nil {
			v := *r.Temperature
			temp.add(v)
			// Strict comparisons keep the first record on ties.
			if hottest == nil || v > hottest.Value {
				hottest = &Extreme{City: r.City, MemberName: r.MemberName, Value: v}
			}
			if coldest == nil || v < coldest.Value {
				coldest = &Extreme{City: r.City, MemberName: r.MemberName, Value: v}
			}
		}
		if r.Humidity != nil {
			humidity.add(*r.Humidity)
		}
		if r.WindSpeed != nil {
			wind.add(*r.WindSpeed)
		}
	}

	return Statistics{
		TotalRecords:      len(records),
		Members:           members.sorted(),
		Cities:            cities.sorted(),
		Countries:         countries.sorted(),
		WeatherConditions: conditions.sorted(),
		Temperature:       temp.stats(),
		Humidity:          humidity.stats(),
		WindSpeed:         wind.stats(),
		Hottest:           hottest,
		Coldest:           coldest,
	}
}

// AggregateByCity groups records by exact City value and aggregates each
// group independently. When cities is non-empty only those cities are
// considered, and ErrNoCityData is returned if none of them appear.
func AggregateByCity(records []CanonicalRecord, cities ...string) (CityComparison, error) {
	var allow map[string]struct{}
	if len(cities) > 0 {
		allow = make(map[string]struct{}, len(cities))
		for _, c := range cities {
			allow[c] = struct{}{}
		}
	}

	groups := make(map[string][]CanonicalRecord)
	var order []string
	total := 0
	for _, r := range records {
		if allow != nil {
			if _, ok := allow[r.City]; !ok {
				continue
			}
		}
		if _, ok := groups[r.City]; !ok {
			order = append(order, r.City)
		}
		groups[r.City] = append(groups[r.City], r)
		total++
	}

	if allow != nil && total == 0 {
		return CityComparison{}, fmt.Errorf("%w: %v", ErrNoCityData, cities)
	}

	sort.Strings(order)
	result := CityComparison{
		CitiesAnalyzed: len(order),
		TotalRecords:   total,
		Cities:         order,
		PerCity:        make(map[string]CityAnalysis, len(order)),
	}
	for _, city := range order {
		stats := Aggregate(groups[city])
		result.PerCity[city] = CityAnalysis{
			City:       city,
			Records:    len(groups[city]),
			Members:    stats.Members,
			Statistics: stats,
		}
	}
	return result, nil
}

// accumulator tracks count, sum and extrema of a numeric field.
type accumulator struct {
	count    int
	sum      float64
	min, max float64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

func (a accumulator) stats() FieldStats {
	if a.count == 0 {
		return FieldStats{}
	}
	mean := a.sum / float64(a.count)
	lo, hi := a.min, a.max
	return FieldStats{Count: a.count, Min: &lo, Max: &hi, Mean: &mean}
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
