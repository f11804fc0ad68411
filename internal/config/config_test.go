package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, deltae.CIEDE2000, cfg.Distinct.Metric)
	assert.Equal(t, 256, cfg.Distinct.MaxColors)
	assert.Equal(t, 4, cfg.Distinct.MaxJobs)
	assert.Equal(t, Schedule{}, cfg.Distinct.Global)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DISTINCT_METRIC", "cie76")
	t.Setenv("DISTINCT_SEED", "17")
	t.Setenv("GLOBAL_ITERATIONS", "5000")
	t.Setenv("LOCAL_TEMPERATURE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, deltae.CIE76, cfg.Distinct.Metric)
	assert.Equal(t, int64(17), cfg.Distinct.Seed)
	assert.Equal(t, 5000, cfg.Distinct.Global.Iterations)
	assert.Equal(t, 0.25, cfg.Distinct.Local.Temperature)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown metric", key: "DISTINCT_METRIC", val: "cie94"},
		{name: "too few colors", key: "DISTINCT_MAX_COLORS", val: "1"},
		{name: "no jobs", key: "DISTINCT_MAX_JOBS", val: "0"},
		{name: "cooling rate above one", key: "LOCAL_COOLING_RATE", val: "1.5"},
		{name: "negative iterations", key: "GLOBAL_ITERATIONS", val: "-3"},
		{name: "malformed port", key: "HTTP_PORT", val: "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestScheduleOptimization(t *testing.T) {
	def := optimization.Schedule{InitialTemperature: 3, CoolingRate: 0.95, Iterations: 100}

	assert.Equal(t, def, Schedule{}.Optimization(def))
	assert.Equal(t,
		optimization.Schedule{InitialTemperature: 3, CoolingRate: 0.5, Iterations: 7},
		Schedule{CoolingRate: 0.5, Iterations: 7}.Optimization(def))
}
