package domain

import (
	"strconv"
	"strings"
	"time"
)

// Observation is the OpenWeather "current weather" response, reduced to the
// fields the dashboard records.
type Observation struct {
	Name     string `json:"name"`
	Timezone int    `json:"timezone"` // seconds east of UTC
	Sys      struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind,omitempty"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Visibility *float64 `json:"visibility,omitempty"` // meters
}

// FormatObservation turns a metric-unit API response into the canonical
// record a member contributes. Readings the schema does not model are kept
// as extension fields.
func FormatObservation(obs Observation, member string) CanonicalRecord {
	member = strings.TrimSpace(member)
	if member == "" {
		member = Unknown
	}

	rec := CanonicalRecord{
		MemberName:  member,
		Timestamp:   clock.Now().UTC().Format(time.RFC3339),
		City:        orUnknown(obs.Name),
		Country:     orUnknown(obs.Sys.Country),
		Temperature: Float(obs.Main.Temp),
		Humidity:    Float(obs.Main.Humidity),
		Extra: map[string]string{
			"feels_like": formatFloat(obs.Main.FeelsLike),
			"pressure":   formatFloat(obs.Main.Pressure),
			"cloudiness": formatFloat(obs.Clouds.All),
			"timezone":   formatFloat(float64(obs.Timezone) / 3600),
		},
	}

	if len(obs.Weather) > 0 {
		rec.WeatherMain = obs.Weather[0].Main
		rec.WeatherDescription = obs.Weather[0].Description
	}
	if obs.Wind != nil {
		rec.WindSpeed = Float(obs.Wind.Speed)
		rec.Extra["wind_direction"] = formatFloat(obs.Wind.Deg)
	}
	if obs.Visibility != nil {
		rec.Extra["visibility"] = formatFloat(*obs.Visibility / 1000)
	}

	loc := time.FixedZone("", obs.Timezone)
	if obs.Sys.Sunrise > 0 {
		rec.Extra["sunrise"] = time.Unix(obs.Sys.Sunrise, 0).In(loc).Format("15:04")
	}
	if obs.Sys.Sunset > 0 {
		rec.Extra["sunset"] = time.Unix(obs.Sys.Sunset, 0).In(loc).Format("15:04")
	}

	return rec
}

// formatFloat renders v in the shortest form that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}
