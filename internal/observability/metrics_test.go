package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.FilesLoaded.Add(2)
	a.Runs.WithLabelValues("success").Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(a.FilesLoaded), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.FilesLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.Runs.WithLabelValues("success")), 0)
}

func TestMetrics_Register(t *testing.T) {
	m := newMetrics(true)
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(m.FilesLoaded, m.Runs, m.RunDuration, m.OpenWeatherCache)

	m.OpenWeatherCache.WithLabelValues("hit").Inc()
	n, err := testutil.GatherAndCount(reg, "team_weather_openweather_cache_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
