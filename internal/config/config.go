package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is read when neither a flag nor AFFILIHUB_CONFIG names a file.
const ConfigPath = "config.yaml"

type Config struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"logLevel"`
	DatabaseURL    string        `yaml:"databaseURL"`
	CatalogFile    string        `yaml:"catalogFile"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	Cache CacheConfig `yaml:"cache"`
	Redis RedisConfig `yaml:"redis"`
	LLM   LLMConfig   `yaml:"llm"`
}

type CacheConfig struct {
	Backend       string         `yaml:"backend"` // memory | redis | postgres
	TTL           time.Duration  `yaml:"ttl"`
	Prefix        string         `yaml:"prefix"`
	SweepInterval *time.Duration `yaml:"sweepInterval"` // 0 disables
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LLMConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	APIKey     string        `yaml:"apiKey"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries *int          `yaml:"maxRetries"` // 0 disables retries
}

// Load reads .env, then the YAML file at path (AFFILIHUB_CONFIG or
// config.yaml when empty; a missing file is fine), then environment
// overrides, then defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("AFFILIHUB_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.Env, "ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CatalogFile, "CATALOG_FILE")
	setString(&c.Cache.Backend, "CACHE_BACKEND")
	setString(&c.Cache.Prefix, "CACHE_PREFIX")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")

	var errs []error
	errs = append(errs,
		setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"),
		setDuration(&c.Cache.TTL, "CACHE_TTL"),
		setDuration(&c.LLM.Timeout, "LLM_TIMEOUT"),
		setInt(&c.Redis.DB, "REDIS_DB"),
	)

	if v, ok := lookup("CACHE_SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: CACHE_SWEEP_INTERVAL: %w", err))
		} else {
			c.Cache.SweepInterval = &d
		}
	}
	if v, ok := lookup("LLM_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: LLM_MAX_RETRIES: %w", err))
		} else {
			c.LLM.MaxRetries = &n
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Env == "" {
		c.Env = "production"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "affilihub"
	}
	if c.Cache.SweepInterval == nil {
		d := time.Hour
		c.Cache.SweepInterval = &d
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 45 * time.Second
	}
	if c.LLM.MaxRetries == nil {
		n := 1
		c.LLM.MaxRetries = &n
	}
}

// Validate checks what every command needs.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis cache backend (set in config.yaml or REDIS_ADDR)")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres cache backend (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q (memory, redis or postgres)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("config: cache.ttl must be positive")
	}
	if *c.Cache.SweepInterval < 0 {
		return errors.New("config: cache.sweepInterval must not be negative")
	}
	if *c.LLM.MaxRetries < 0 {
		return errors.New("config: llm.maxRetries must not be negative")
	}
	return nil
}

// ValidateServe adds what the HTTP server needs on top of Validate.
func (c *Config) ValidateServe() error {
	if c.LLM.APIKey == "" {
		return errors.New("config: llm.apiKey is required (set in config.yaml or LLM_API_KEY)")
	}
	return nil
}

// Dev reports whether the process runs in development mode.
func (c *Config) Dev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}
