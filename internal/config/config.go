package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// OpenWeatherAPIKey pre-fills the key field of new sessions. Optional.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	HTTPTimeout        time.Duration

	// Granularity of the historical baseline (month or season).
	Granularity climate.Granularity

	// Session retention.
	SessionTTL           time.Duration // idle time before a session is dropped (0 = never)
	SessionSweepInterval time.Duration
	SessionMax           int // max number of live sessions (0 = unlimited)

	MaxUploadBytes int
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
// Environment variables take precedence over it.
type fileConfig struct {
	AppEnv      string `yaml:"app_env"`
	LogLevel    string `yaml:"log_level"`
	Port        string `yaml:"port"`
	OpenWeather struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"openweather"`
	Baseline struct {
		Granularity string `yaml:"granularity"`
	} `yaml:"baseline"`
	Session struct {
		TTL           string `yaml:"ttl"`
		SweepInterval string `yaml:"sweep_interval"`
		Max           *int   `yaml:"max"`
	} `yaml:"session"`
	MaxUploadBytes *int `yaml:"max_upload_bytes"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", or(fc.AppEnv, "dev"))
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", or(fc.LogLevel, "info")))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", or(fc.Port, "8080"))

	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", fc.OpenWeather.APIKey)
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", fc.OpenWeather.BaseURL)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", or(fc.OpenWeather.Timeout, "10s")); err != nil {
		return nil, err
	}

	cfg.Granularity, err = climate.ParseGranularity(getenvDefault("BASELINE_GRANULARITY", fc.Baseline.Granularity))
	if err != nil {
		return nil, fmt.Errorf("invalid BASELINE_GRANULARITY: %w", err)
	}

	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", or(fc.Session.TTL, "30m")); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", or(fc.Session.SweepInterval, "1m")); err != nil {
		return nil, err
	}
	if cfg.SessionMax, err = getenvIntStrict("SESSION_MAX", orInt(fc.Session.Max, 1000)); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getenvIntStrict("MAX_UPLOAD_BYTES", orInt(fc.MaxUploadBytes, 16<<20)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvIntStrict reads a non-negative integer, failing on anything else.
func getenvIntStrict(key string, def int) (int, error) {
	n := def
	if v := os.Getenv(key); v != "" {
		var err error
		if n, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return 0, fmt.Errorf("invalid %s %q: not an integer", key, v)
		}
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %d: must not be negative", key, n)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// orInt returns *v when the file set it, so an explicit 0 survives.
func orInt(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
