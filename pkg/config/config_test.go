package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Models.Trials != 50 || cfg.Models.Folds != 5 {
		t.Errorf("model defaults = %+v", cfg.Models)
	}
	if len(cfg.Models.Horizons) != 4 || cfg.Models.Horizons[3] != 20 {
		t.Errorf("horizon defaults = %v", cfg.Models.Horizons)
	}
	if cfg.Models.SearchTimeout != 10*time.Minute {
		t.Errorf("search timeout = %v", cfg.Models.SearchTimeout)
	}
	if cfg.Reporting.Backend != "none" {
		t.Errorf("reporting backend = %q", cfg.Reporting.Backend)
	}
	if cfg.Metrics.Addr != ":9108" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
environment: development
models:
  trials: 10
  horizons: [1, 3]
logging:
  level: debug
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Models.Trials != 10 {
		t.Errorf("trials = %d, want 10", cfg.Models.Trials)
	}
	if len(cfg.Models.Horizons) != 2 || cfg.Models.Horizons[1] != 3 {
		t.Errorf("horizons = %v", cfg.Models.Horizons)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []string{
		"logging:\n  level: loud\n",
		"reporting:\n  backend: carrier-pigeon\n",
		"models:\n  folds: 1\n",
		"models:\n  horizons: [5, 5]\n",
		"reporting:\n  backend: kafka\n",
		"reporting:\n  backend: clickhouse\n",
	}
	for _, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("config accepted:\n%s", body)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("STOCKCAST_SYMBOLS", "AAPL,MSFT")
	t.Setenv("STOCKCAST_TRIALS", "7")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadWithEnv(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if len(cfg.Data.Symbols) != 2 || cfg.Data.Symbols[0] != "AAPL" {
		t.Errorf("symbols = %v", cfg.Data.Symbols)
	}
	if cfg.Models.Trials != 7 {
		t.Errorf("trials = %d, want 7", cfg.Models.Trials)
	}
	if !cfg.Cache.Redis.Enabled || cfg.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
}

func TestLoadWithEnvRejectsBadTrials(t *testing.T) {
	t.Setenv("STOCKCAST_TRIALS", "many")
	if _, err := LoadWithEnv(writeConfig(t, "environment: production\n")); err == nil {
		t.Error("non-numeric STOCKCAST_TRIALS accepted")
	}
}
