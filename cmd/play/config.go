package main

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	storageMemory = "memory"
	storageFile   = "file"
	storageRedis  = "redis"
)

// playConfig - настройки терминального клиента.
type playConfig struct {
	ServerURL   string `envconfig:"PLAY_SERVER_URL" default:"http://localhost:3000"`
	Storage     string `envconfig:"PLAY_STORAGE" default:"file"`
	StateFile   string `envconfig:"PLAY_STATE_FILE" default:"client/.data/player.json"`
	RedisURL    string `envconfig:"PLAY_REDIS_URL" default:"redis://localhost:6379/0"`
	RedisPrefix string `envconfig:"PLAY_REDIS_PREFIX" default:"comic:player:"`
	Character   string `envconfig:"PLAY_CHARACTER" default:""`
	CreditsPage int    `envconfig:"PLAY_CREDITS_PAGE" default:"6"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
}

func loadPlayConfig() (*playConfig, error) {
	var cfg playConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case storageMemory, storageFile, storageRedis:
	default:
		return nil, fmt.Errorf("unsupported PLAY_STORAGE %q", cfg.Storage)
	}
	if cfg.CreditsPage <= 1 {
		return nil, fmt.Errorf("PLAY_CREDITS_PAGE must be greater than 1, got %d", cfg.CreditsPage)
	}
	return &cfg, nil
}
