package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ExportConfig struct {
	Workers           int           `yaml:"workers"`            // concurrent workflow runs
	DedupTTL          time.Duration `yaml:"dedup_ttl"`          // how long a submission identity stays reserved
	QueuePollTimeout  time.Duration `yaml:"queue_poll_timeout"` // blocking pop timeout
	StaleAfter        time.Duration `yaml:"stale_after"`        // non-terminal run considered abandoned
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Export   ExportConfig   `yaml:"export"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Export.Workers <= 0 {
		cfg.Export.Workers = 4
	}
	if cfg.Export.DedupTTL <= 0 {
		cfg.Export.DedupTTL = time.Hour
	}
	if cfg.Export.QueuePollTimeout <= 0 {
		cfg.Export.QueuePollTimeout = 5 * time.Second
	}
	if cfg.Export.StaleAfter <= 0 {
		cfg.Export.StaleAfter = 10 * time.Minute
	}
	if cfg.Export.ReconcileInterval <= 0 {
		cfg.Export.ReconcileInterval = time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
