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

// DefaultDateFormats is the ordered candidate list tried by automatic date
// detection when no other list is configured.
var DefaultDateFormats = []string{
	"yyyy-MM-dd",
	"dd/MM/yyyy",
	"MM/dd/yyyy",
	"dd-MM-yyyy",
	"yyyy/MM/dd",
	"dd MMM yyyy",
	"yyyy-MM-dd HH:mm:ss",
	"dd/MM/yyyy HH:mm:ss",
}

// Config holds all application configuration
type Config struct {
	Backend       BackendConfig
	Import        ImportConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type ImportConfig struct {
	DateFormats     []string
	DateFormatsFile string
	Timezone        string
	DefaultExchange string
}

// Location resolves the configured timezone, falling back to UTC.
func (c ImportConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type StorageConfig struct {
	PrefsPath string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

type dateFormatsFile struct {
	DateFormats []string `yaml:"date_formats"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:8080"),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Import: ImportConfig{
			DateFormats:     getEnvAsList("IMPORT_DATE_FORMATS", nil),
			DateFormatsFile: getEnv("IMPORT_DATE_FORMATS_FILE", ""),
			Timezone:        getEnv("IMPORT_TIMEZONE", "UTC"),
			DefaultExchange: getEnv("IMPORT_DEFAULT_EXCHANGE", "Imported"),
		},
		Storage: StorageConfig{
			PrefsPath: getEnv("PREFS_PATH", "./prefs"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Import.DateFormatsFile != "" {
		formats, err := LoadDateFormats(cfg.Import.DateFormatsFile)
		if err != nil {
			return nil, err
		}
		cfg.Import.DateFormats = formats
	}
	if len(cfg.Import.DateFormats) == 0 {
		cfg.Import.DateFormats = append([]string(nil), DefaultDateFormats...)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("BACKEND_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
		return fmt.Errorf("invalid IMPORT_TIMEZONE %q: %w", c.Import.Timezone, err)
	}
	return nil
}

// LoadDateFormats reads the candidate date format list from a YAML file.
func LoadDateFormats(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read date formats file: %w", err)
	}

	var f dateFormatsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse date formats file: %w", err)
	}
	if len(f.DateFormats) == 0 {
		return nil, fmt.Errorf("date formats file %s lists no formats", path)
	}
	return f.DateFormats, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
