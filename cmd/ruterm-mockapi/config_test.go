package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != defaultAddr || cfg.SessionTTL != time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.NetworkFailRate != 0 || cfg.ServerFailRate != 0 || cfg.Latency != 0 {
		t.Errorf("faults enabled by default: %+v", cfg)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("RUTERM_MOCK_ADDR", "127.0.0.1:9999")
	t.Setenv("RUTERM_MOCK_SERVER_FAIL_RATE", "0.25")
	t.Setenv("RUTERM_MOCK_LATENCY", "150ms")
	t.Setenv("RUTERM_MOCK_CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" || cfg.ServerFailRate != 0.25 || cfg.Latency != 150*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:3000" {
		t.Errorf("cors-origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock.yml")
	if err := os.WriteFile(path, []byte("network-fail-rate: 0.1\nsession-ttl: 5m\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.NetworkFailRate != 0.1 || cfg.SessionTTL != 5*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejectsRates(t *testing.T) {
	tests := map[string]map[string]string{
		"negative":  {"RUTERM_MOCK_NETWORK_FAIL_RATE": "-0.1"},
		"above one": {"RUTERM_MOCK_SERVER_FAIL_RATE": "1.5"},
		"sum": {
			"RUTERM_MOCK_NETWORK_FAIL_RATE": "0.6",
			"RUTERM_MOCK_SERVER_FAIL_RATE":  "0.6",
		},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
