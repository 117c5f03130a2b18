// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the knobs for the cache, prefetch, and remote layers.
// Defaults mirror the mobile app's feed configuration.
type Config struct {
	APIBaseURL string        `env:"STORYCACHE_API_URL" envDefault:"http://localhost:3000/api/v1"`
	APIToken   string        `env:"STORYCACHE_API_TOKEN"`
	APITimeout time.Duration `env:"STORYCACHE_API_TIMEOUT" envDefault:"15s"`

	DBPath string `env:"STORYCACHE_DB"`

	CacheTTL         time.Duration `env:"STORYCACHE_CACHE_TTL" envDefault:"1h"`
	MaxCachedStories int           `env:"STORYCACHE_MAX_CACHED" envDefault:"50"`

	PrefetchWindow int `env:"STORYCACHE_PREFETCH_WINDOW" envDefault:"3"`

	PageSize     int           `env:"STORYCACHE_PAGE_SIZE" envDefault:"10"`
	SyncInterval time.Duration `env:"STORYCACHE_SYNC_INTERVAL" envDefault:"30s"`
}

// Load reads configuration from the environment, filling in defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}

// DefaultDBPath returns the default on-disk store location.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "storycache.db"
	}
	return filepath.Join(home, ".config", "storycache", "storycache.db")
}
