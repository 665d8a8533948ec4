package config

import (
	"time"

	"github.com/caarlos0/env/v10"
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
	Metric struct {
		// Default is used when a build request names no metric.
		Default string `env:"METRIC_DEFAULT" envDefault:"entity-placement"`
	}
	Store struct {
		// Limit bounds the number of states kept; the oldest is evicted first.
		Limit int `env:"STATE_STORE_LIMIT" envDefault:"1024"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}
	if cfg.Store.Limit < 1 {
		cfg.Store.Limit = 1
	}
	return cfg, nil
}
