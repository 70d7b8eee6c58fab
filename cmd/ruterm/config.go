package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/russianllm/ruterm/internal/logging"
	"github.com/russianllm/ruterm/internal/marker"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

const (
	defaultAPIBaseURL     = model.DefaultAPIBaseURL
	defaultBackoffInitial = model.DefaultBackoffInitial
	defaultProbeRetry     = model.DefaultProbeRetry
	defaultSlowNetwork    = model.DefaultSlowNetwork
	defaultToastDuration  = model.DefaultToastDuration
	defaultStartPath      = model.DefaultStartPath
	defaultRedisPrefix    = model.DefaultMarkerRedisKey
)

// appConfig holds the client configuration.
type appConfig struct {
	APIBaseURL       string        `mapstructure:"api-base-url"`
	StateDir         string        `mapstructure:"state-dir"`
	MarkerBackend    string        `mapstructure:"marker-backend"`
	RedisAddr        string        `mapstructure:"redis-addr"`
	RedisPassword    string        `mapstructure:"redis-password"`
	RedisDB          int           `mapstructure:"redis-db"`
	RedisPrefix      string        `mapstructure:"redis-prefix"`
	RequestTimeout   time.Duration `mapstructure:"request-timeout"`
	BackoffInitial   time.Duration `mapstructure:"backoff-initial"`
	BackoffMax       time.Duration `mapstructure:"backoff-max"`
	ProbeRetry       time.Duration `mapstructure:"probe-retry"`
	SlowNetworkAfter time.Duration `mapstructure:"slow-network-after"`
	ToastDuration    time.Duration `mapstructure:"toast-duration"`
	LogLevel         string        `mapstructure:"log-level"`
	StartPath        string        `mapstructure:"start-path"`
	ConfigPath       string        `mapstructure:"-"`
}

func (c appConfig) markerConfig() marker.Config {
	return marker.Config{
		Backend:  c.MarkerBackend,
		StateDir: c.StateDir,
		Redis: marker.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		},
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("RUTERM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-base-url", defaultAPIBaseURL)
	v.SetDefault("state-dir", filepath.Join(home, ".local", "state", "ruterm"))
	v.SetDefault("marker-backend", marker.BackendFile)
	v.SetDefault("redis-addr", "")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("redis-prefix", defaultRedisPrefix)
	v.SetDefault("request-timeout", time.Duration(0))
	v.SetDefault("backoff-initial", defaultBackoffInitial)
	v.SetDefault("backoff-max", time.Duration(0))
	v.SetDefault("probe-retry", defaultProbeRetry)
	v.SetDefault("slow-network-after", defaultSlowNetwork)
	v.SetDefault("toast-duration", defaultToastDuration)
	v.SetDefault("log-level", "info")
	v.SetDefault("start-path", defaultStartPath)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "ruterm", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if strings.HasPrefix(cfg.StateDir, "~/") {
		cfg.StateDir = filepath.Join(home, cfg.StateDir[2:])
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	if cfg.BackoffInitial <= 0 {
		return cfg, fmt.Errorf("invalid backoff-initial: %s", cfg.BackoffInitial)
	}
	if cfg.BackoffMax < 0 || cfg.RequestTimeout < 0 {
		return cfg, fmt.Errorf("durations must not be negative")
	}
	if r := route.Parse(cfg.StartPath); !r.Protected() {
		return cfg, fmt.Errorf("invalid start-path: %q", cfg.StartPath)
	}

	return cfg, nil
}
