package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Distinct struct {
		Metric    deltae.Metric `env:"DISTINCT_METRIC" envDefault:"CIEDE2000"`
		Seed      int64         `env:"DISTINCT_SEED" envDefault:"0"`
		MaxColors int           `env:"DISTINCT_MAX_COLORS" envDefault:"256"`
		MaxJobs   int           `env:"DISTINCT_MAX_JOBS" envDefault:"4"`
		Global    Schedule      `envPrefix:"GLOBAL_"`
		Local     Schedule      `envPrefix:"LOCAL_"`
	}
}

// Schedule is the environment form of an annealing schedule.
type Schedule struct {
	Temperature float64 `env:"TEMPERATURE"`
	CoolingRate float64 `env:"COOLING_RATE"`
	Iterations  int     `env:"ITERATIONS"`
}

// Optimization converts the schedule, filling unset fields from def.
func (s Schedule) Optimization(def optimization.Schedule) optimization.Schedule {
	out := def
	if s.Temperature != 0 {
		out.InitialTemperature = s.Temperature
	}
	if s.CoolingRate != 0 {
		out.CoolingRate = s.CoolingRate
	}
	if s.Iterations != 0 {
		out.Iterations = s.Iterations
	}
	return out
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Distinct.MaxColors < 2 {
		return fmt.Errorf("DISTINCT_MAX_COLORS must be at least 2, got %d", c.Distinct.MaxColors)
	}
	if c.Distinct.MaxJobs < 1 {
		return fmt.Errorf("DISTINCT_MAX_JOBS must be positive, got %d", c.Distinct.MaxJobs)
	}
	for name, s := range map[string]Schedule{"GLOBAL": c.Distinct.Global, "LOCAL": c.Distinct.Local} {
		if s.CoolingRate < 0 || s.CoolingRate > 1 {
			return fmt.Errorf("%s_COOLING_RATE must be in [0, 1], got %g", name, s.CoolingRate)
		}
		if s.Iterations < 0 || s.Temperature < 0 {
			return fmt.Errorf("%s schedule must not be negative", name)
		}
	}
	return nil
}
