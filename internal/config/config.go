package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains client configuration parameters.
type Config struct {
	LogLevel int     `env:"LOG_LEVEL" envDefault:"0"`
	API      API     `envPrefix:"API_"`
	Storage  Storage `envPrefix:"STORAGE_"`
}

// API contains backend connection parameters.
type API struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://finzz-backend.onrender.com/api/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Storage contains local durable storage parameters.
type Storage struct {
	Path       string `env:"PATH" envDefault:".finzz/data"`
	SyncWrites bool   `env:"SYNC_WRITES" envDefault:"true"`
	InMemory   bool   `env:"IN_MEMORY" envDefault:"false"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
