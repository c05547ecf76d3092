package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "CATALOG_FILE", "REQUEST_TIMEOUT",
		"CACHE_BACKEND", "CACHE_TTL", "CACHE_PREFIX", "CACHE_SWEEP_INTERVAL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_TIMEOUT", "LLM_MAX_RETRIES",
		"AFFILIHUB_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "production" || cfg.Cache.Backend != "memory" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.Cache.TTL != 168*time.Hour || *cfg.Cache.SweepInterval != time.Hour {
		t.Fatalf("unexpected cache defaults: %#v", cfg.Cache)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.Timeout != 45*time.Second || *cfg.LLM.MaxRetries != 1 {
		t.Fatalf("unexpected llm defaults: %#v", cfg.LLM)
	}
	if cfg.RequestTimeout != time.Minute {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("serve must require an API key")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9090"
env: development
cache:
  backend: redis
  ttl: 2h
  sweepInterval: 0s
redis:
  addr: localhost:6379
llm:
  apiKey: from-file
  maxRetries: 0
`)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("CACHE_TTL", "30m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.Dev() || cfg.Addr() != ":9090" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
	if cfg.Cache.Backend != "redis" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("cache config not applied: %#v", cfg.Cache)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Fatalf("env should override file ttl, got %v", cfg.Cache.TTL)
	}
	if *cfg.Cache.SweepInterval != 0 {
		t.Fatalf("explicit zero sweep interval must be kept")
	}
	if cfg.LLM.APIKey != "from-env" || *cfg.LLM.MaxRetries != 0 {
		t.Fatalf("llm config wrong: %#v", cfg.LLM)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe: %v", err)
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: \"7000\"\n")
	t.Setenv("AFFILIHUB_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("AFFILIHUB_CONFIG not honoured: %s", cfg.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":      {"CACHE_BACKEND": "etcd"},
		"redis without addr":   {"CACHE_BACKEND": "redis"},
		"postgres without url": {"CACHE_BACKEND": "postgres"},
		"bad duration":         {"CACHE_TTL": "soon"},
		"negative ttl":         {"CACHE_TTL": "-1h"},
		"bad retries":          {"LLM_MAX_RETRIES": "many"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: [unclosed\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
