package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Portal   PortalConfig   `envPrefix:"PORTAL_"`
	Realtime RealtimeConfig `envPrefix:"REALTIME_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Debug    DebugConfig    `envPrefix:"DEBUG_"`
}

type PortalConfig struct {
	BaseURL   string `env:"BASE_URL,required" validate:"http_url"`
	Identity  string `env:"IDENTITY,required" validate:"email"`
	AuthToken string `env:"AUTH_TOKEN"`
}

type RealtimeConfig struct {
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s" validate:"gt=0"`
	BackoffBase          time.Duration `env:"BACKOFF_BASE" envDefault:"1s" validate:"gt=0"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"5" validate:"gte=1"`
	HandshakeTimeout     time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	HistoryLimit         int           `env:"HISTORY_LIMIT" envDefault:"50" validate:"gte=0"`
}

type StorageConfig struct {
	Dir string `env:"DIR" envDefault:"./data"`
}

type DebugConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Addr    string `env:"ADDR" envDefault:"127.0.0.1:8099"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
