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
	"github.com/russianllm/ruterm/internal/model"
)

const (
	defaultAddr          = model.DefaultMockAddr
	defaultSessionTTL    = model.DefaultSessionTTL
	defaultResetTokenTTL = model.DefaultResetTokenTTL
)

// mockConfig holds the mock API configuration.
type mockConfig struct {
	Addr            string        `mapstructure:"addr"`
	SessionTTL      time.Duration `mapstructure:"session-ttl"`
	ResetTokenTTL   time.Duration `mapstructure:"reset-token-ttl"`
	NetworkFailRate float64       `mapstructure:"network-fail-rate"`
	ServerFailRate  float64       `mapstructure:"server-fail-rate"`
	Latency         time.Duration `mapstructure:"latency"`
	JWTSecret       string        `mapstructure:"jwt-secret"`
	CORSOrigins     []string      `mapstructure:"cors-origins"`
	Fixtures        string        `mapstructure:"fixtures"`
	LogLevel        string        `mapstructure:"log-level"`
	ConfigPath      string        `mapstructure:"-"`
}

func loadConfig(configPath string) (mockConfig, error) {
	var cfg mockConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("RUTERM_MOCK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("session-ttl", defaultSessionTTL)
	v.SetDefault("reset-token-ttl", defaultResetTokenTTL)
	v.SetDefault("network-fail-rate", 0.0)
	v.SetDefault("server-fail-rate", 0.0)
	v.SetDefault("latency", time.Duration(0))
	v.SetDefault("jwt-secret", "")
	v.SetDefault("cors-origins", []string{})
	v.SetDefault("fixtures", "")
	v.SetDefault("log-level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	for name, rate := range map[string]float64{
		"network-fail-rate": cfg.NetworkFailRate,
		"server-fail-rate":  cfg.ServerFailRate,
	} {
		if rate < 0 || rate > 1 {
			return cfg, fmt.Errorf("invalid %s: %v (want 0..1)", name, rate)
		}
	}
	if cfg.NetworkFailRate+cfg.ServerFailRate > 1 {
		return cfg, fmt.Errorf("fail rates add up to more than 1")
	}
	if cfg.Fixtures != "" && strings.HasPrefix(cfg.Fixtures, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.Fixtures = filepath.Join(home, cfg.Fixtures[2:])
	}

	return cfg, nil
}
