package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	RegistryURL    string        `yaml:"registry_url"`
	GateMode       string        `yaml:"gate_mode"`
	RateLimit      int           `yaml:"rate_limit"`
	RatePeriod     time.Duration `yaml:"rate_period"`
	RateKeyHeader  string        `yaml:"rate_key_header"`
	TrustXFF       bool          `yaml:"trust_xff"`
	AddHeaders     bool          `yaml:"add_ratelimit_headers"`
	ConcurrencyMax int           `yaml:"concurrency_max"`
	ConcurrencyTTL time.Duration `yaml:"concurrency_timeout"`
	LogLevel       string        `yaml:"log_level"`
	MetricsAddr    string        `yaml:"metrics_addr"`

	Stats statsConfig `yaml:"stats"`
}

type statsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Bucket        string        `yaml:"bucket"`
	TrackKeys     bool          `yaml:"track_keys"`
}

func defaultConfig() config {
	return config{
		ListenAddr:  ":8080",
		RegistryURL: "https://ismp.crpt.ru",
		GateMode:    "window",
		RateLimit:   5,
		RatePeriod:  time.Second,
		LogLevel:    "info",
		MetricsAddr: ":9090",
		Stats: statsConfig{
			Prefix: "crpt:gate:stats",
			TTL:    24 * time.Hour,
			Bucket: "minute",
		},
	}
}

// readConfig monta a configuração em camadas: padrões, arquivo YAML
// (CONFIG_FILE, opcional) e por último variáveis de ambiente.
func readConfig() (config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config{}, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return config{}, fmt.Errorf("parse CONFIG_FILE: %w", err)
		}
	}

	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.RegistryURL = getenvDefault("REGISTRY_URL", cfg.RegistryURL)
	cfg.GateMode = strings.ToLower(getenvDefault("GATE_MODE", cfg.GateMode))
	cfg.RateLimit = getenvIntDefault("RATE_LIMIT", cfg.RateLimit)
	cfg.RatePeriod = getenvDurationDefault("RATE_PERIOD", cfg.RatePeriod)
	cfg.RateKeyHeader = getenvDefault("RATE_KEY_HEADER", cfg.RateKeyHeader)
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", cfg.TrustXFF)
	cfg.AddHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", cfg.AddHeaders)
	cfg.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", cfg.ConcurrencyMax)
	cfg.ConcurrencyTTL = getenvDurationDefault("CONCURRENCY_TIMEOUT", cfg.ConcurrencyTTL)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		// vazio desliga o endpoint de métricas
		cfg.MetricsAddr = v
	}

	cfg.Stats.Enabled = getenvBoolDefault("RATE_STATS_ENABLED", cfg.Stats.Enabled)
	cfg.Stats.RedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", cfg.Stats.RedisAddr)
	cfg.Stats.RedisPassword = getenvDefault("RATE_STATS_REDIS_PASSWORD", cfg.Stats.RedisPassword)
	cfg.Stats.RedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", cfg.Stats.RedisDB)
	cfg.Stats.Prefix = getenvDefault("RATE_STATS_PREFIX", cfg.Stats.Prefix)
	cfg.Stats.TTL = getenvDurationDefault("RATE_STATS_TTL", cfg.Stats.TTL)
	cfg.Stats.Bucket = getenvDefault("RATE_STATS_BUCKET", cfg.Stats.Bucket)
	cfg.Stats.TrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", cfg.Stats.TrackKeys)

	return cfg, cfg.validate()
}

func (c config) validate() error {
	if strings.TrimSpace(c.RegistryURL) == "" {
		return errors.New("REGISTRY_URL is required")
	}
	if c.GateMode != "window" && c.GateMode != "token" {
		return fmt.Errorf("GATE_MODE must be window or token, got %q", c.GateMode)
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be > 0")
	}
	if c.RatePeriod <= 0 {
		return errors.New("RATE_PERIOD must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	return nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
