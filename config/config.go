// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Persistence backends for the board snapshot.
const (
	PersistFile  = "file"
	PersistRedis = "redis"
	PersistTable = "table"
	PersistNone  = "none"
)

// Config is the full service configuration.
type Config struct {
	Debug      bool   `env:"DEBUG"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// FUNCTIONS_CUSTOMHANDLER_PORT overrides ListenAddr when set.
	HandlerPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`

	RemoteURL       string        `env:"TASK_API_URL" envDefault:"http://localhost:3000/task"`
	RemoteTimeout   time.Duration `env:"TASK_API_TIMEOUT" envDefault:"10s"`
	FetchOnStart    bool          `env:"FETCH_ON_START" envDefault:"true"`
	SyncWorkers     int           `env:"SYNC_WORKERS" envDefault:"4"`
	SyncBuffer      int           `env:"SYNC_BUFFER" envDefault:"256"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	AllowedOrigins  []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	StreamKeepAlive time.Duration `env:"STREAM_KEEPALIVE" envDefault:"15s"`

	Persistence string `env:"PERSISTENCE" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	RedisKeyPrefix        string        `env:"REDIS_KEY_PREFIX"`
	RedisTTL              time.Duration `env:"REDIS_TTL" envDefault:"0s"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	BoardTable              string `env:"BOARD_TABLE" envDefault:"TaskMasterBoard"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the address the HTTP server listens on.
func (c Config) Addr() string {
	if c.HandlerPort != "" {
		return ":" + c.HandlerPort
	}
	return c.ListenAddr
}

func (c Config) Validate() error {
	switch c.Persistence {
	case PersistFile:
		if c.DataDir == "" {
			return fmt.Errorf("missing DATA_DIR for file persistence")
		}
	case PersistRedis:
		if c.RedisConnectionString == "" {
			return fmt.Errorf("missing redis config")
		}
	case PersistTable:
		if c.StorageConnectionString == "" || c.BoardTable == "" {
			return fmt.Errorf("missing storage config")
		}
	case PersistNone:
	default:
		return fmt.Errorf("invalid PERSISTENCE %q: want file, redis, table or none", c.Persistence)
	}
	if c.SyncWorkers <= 0 {
		return fmt.Errorf("invalid SYNC_WORKERS: must be greater than zero")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid MAX_BODY_BYTES: must be greater than zero")
	}
	if c.RedisTTL < 0 {
		return fmt.Errorf("invalid REDIS_TTL: must not be negative")
	}
	return nil
}
