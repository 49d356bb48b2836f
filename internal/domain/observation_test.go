package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testObservationJSON = `{
	"name": "Austin",
	"timezone": -18000,
	"sys": {"country": "US", "sunrise": 1717240000, "sunset": 1717290000},
	"main": {"temp": 31.4, "feels_like": 33.1, "humidity": 48, "pressure": 1011},
	"weather": [{"main": "Clouds", "description": "scattered clouds"}],
	"wind": {"speed": 5.1, "deg": 170},
	"clouds": {"all": 40},
	"visibility": 10000
}`

func TestFormatObservation(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	var obs Observation
	require.NoError(t, json.Unmarshal([]byte(testObservationJSON), &obs))

	rec := FormatObservation(obs, " Eric ")

	assert.Equal(t, "Eric", rec.MemberName)
	assert.Equal(t, "2024-06-01T17:30:00Z", rec.Timestamp)
	assert.Equal(t, "Austin", rec.City)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, 31.4, *rec.Temperature)
	assert.Equal(t, 48.0, *rec.Humidity)
	assert.Equal(t, 5.1, *rec.WindSpeed)
	assert.Equal(t, "Clouds", rec.WeatherMain)
	assert.Equal(t, "scattered clouds", rec.WeatherDescription)

	assert.Equal(t, "33.1", rec.Extra["feels_like"])
	assert.Equal(t, "1011", rec.Extra["pressure"])
	assert.Equal(t, "170", rec.Extra["wind_direction"])
	assert.Equal(t, "40", rec.Extra["cloudiness"])
	assert.Equal(t, "10", rec.Extra["visibility"])
	assert.Equal(t, "-5", rec.Extra["timezone"])
	// 1717240000 is 11:06:40 UTC; UTC-5 local time.
	assert.Equal(t, "06:06", rec.Extra["sunrise"])
}

func TestFormatObservation_SparseResponse(t *testing.T) {
	var obs Observation
	require.NoError(t, json.Unmarshal([]byte(`{"main":{"temp":-3}}`), &obs))

	rec := FormatObservation(obs, "")

	assert.Equal(t, Unknown, rec.MemberName)
	assert.Equal(t, Unknown, rec.City)
	assert.Equal(t, Unknown, rec.Country)
	assert.Equal(t, -3.0, *rec.Temperature)
	assert.Nil(t, rec.WindSpeed)
	assert.NotContains(t, rec.Extra, "wind_direction")
	assert.NotContains(t, rec.Extra, "visibility")
	assert.NotContains(t, rec.Extra, "sunrise")
	assert.Empty(t, rec.WeatherMain)
}

func TestFormatObservation_NormalizesBack(t *testing.T) {
	var obs Observation
	require.NoError(t, json.Unmarshal([]byte(testObservationJSON), &obs))
	rec := FormatObservation(obs, "Eric")

	header := []string{"timestamp", "member_name", "city", "country", "temperature", "humidity", "wind_speed", "weather_main", "weather_description", "pressure"}
	row := []string{rec.Timestamp, rec.MemberName, rec.City, rec.Country, "31.4", "48", "5.1", rec.WeatherMain, rec.WeatherDescription, rec.Extra["pressure"]}

	back := Normalize(NewRawRecord("weather_data_eric.csv", header, row))
	assert.Equal(t, rec.City, back.City)
	assert.Equal(t, *rec.Temperature, *back.Temperature)
	assert.Equal(t, "Scattered", back.WeatherMain, "description wins over the weather_main column")
	assert.Equal(t, "1011", back.Extra["pressure"])
}
