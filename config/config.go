package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend host for /api/locations and /api/predict
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

	// Host serving /<city>.json. Empty means this service's own origin.
	DistrictBaseURL string `env:"DISTRICT_BASE_URL"`

	// Directory with the static district lists, served same-origin
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`

	// Maximum number of map points requested from the location feed
	LocationLimit int `env:"LOCATION_LIMIT" envDefault:"400"`

	Upstream struct {
		// Per-request timeout, 0 disables it
		Timeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

		// Retries are opt-in
		RetryMax int `env:"UPSTREAM_RETRY_MAX" envDefault:"0"`
	}

	DistrictCache struct {
		// SQLite file for cached district lists, empty disables the cache
		Path string        `env:"DISTRICT_CACHE_PATH" envDefault:"database/districts.db"`
		TTL  time.Duration `env:"DISTRICT_CACHE_TTL" envDefault:"24h"`

		// How often every supported city is refetched, 0 disables it
		RefreshInterval time.Duration `env:"DISTRICT_CACHE_REFRESH" envDefault:"6h"`
		PurgeInterval   time.Duration `env:"DISTRICT_CACHE_PURGE_INTERVAL" envDefault:"1h"`
	}

	Session struct {
		CookieName    string        `env:"SESSION_COOKIE" envDefault:"rumahku_sid"`
		IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

		// Upper bound on how long a page render waits for in-flight fetches
		SettleTimeout time.Duration `env:"SESSION_SETTLE_TIMEOUT" envDefault:"5s"`
	}

	// Prediction submissions allowed per client IP per minute
	PredictRatePerMinute int `env:"PREDICT_RATE_PER_MINUTE" envDefault:"30"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.DistrictBaseURL == "" {
		cfg.DistrictBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.LocationLimit <= 0 {
		return nil, fmt.Errorf("LOCATION_LIMIT must be positive, got %d", cfg.LocationLimit)
	}
	return cfg, nil
}
