package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unowned-ai/daybook/pkg/utils"
)

// FileName is the config file looked up from the working directory upwards
// when DAYBOOK_CONFIG is not set.
const FileName = "daybook.yaml"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`

	// Source is the config file that was read, empty when none was found.
	Source string `yaml:"-"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// DatabaseConfig selects and configures the entry store
type DatabaseConfig struct {
	Driver             string `yaml:"driver"`
	Path               string `yaml:"path"`
	WAL                bool   `yaml:"wal"`
	Sync               string `yaml:"sync"`
	URL                string `yaml:"url"`
	MaxPoolConnections int    `yaml:"maxPoolConnections"`
}

// CacheConfig holds Redis settings. An empty Addr disables caching.
type CacheConfig struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

// EventsConfig holds Kafka settings. No brokers disables publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns the configuration used when neither a file nor the
// environment says otherwise.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:             DriverSQLite,
			Path:               utils.GetDefaultDBPathOnly(),
			WAL:                true,
			Sync:               "NORMAL",
			MaxPoolConnections: 10,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Events: EventsConfig{
			Topic: "daybook.entries",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the config file if one is
// found, then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.Source = path
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func findConfigFile() (string, error) {
	if explicit := os.Getenv("DAYBOOK_CONFIG"); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file from DAYBOOK_CONFIG: %w", err)
		}
		return explicit, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", nil
	}
	return utils.FindUpwards(dir, FileName), nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Env = getEnv("SERVER_ENV", cfg.Server.Env)
	cfg.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.AllowedOrigins = getSliceEnv("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.WAL = getBoolEnv("DB_WAL", cfg.Database.WAL)
	cfg.Database.Sync = getEnv("DB_SYNC", cfg.Database.Sync)
	cfg.Database.URL = getEnv("DB_URL", cfg.Database.URL)
	cfg.Database.MaxPoolConnections = getIntEnv("DB_MAX_POOL_CONNECTIONS", cfg.Database.MaxPoolConnections)

	cfg.Cache.Addr = getEnv("REDIS_ADDR", cfg.Cache.Addr)
	cfg.Cache.TTL = getDurationEnv("REDIS_TTL", cfg.Cache.TTL)

	cfg.Events.Brokers = getSliceEnv("KAFKA_BROKERS", cfg.Events.Brokers)
	cfg.Events.Topic = getEnv("KAFKA_TOPIC", cfg.Events.Topic)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	} else if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be a port number, got '%s'", c.Server.Port))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_READ_TIMEOUT must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_WRITE_TIMEOUT must be positive"))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DB_URL is required for the postgres driver"))
		}
		if c.Database.MaxPoolConnections <= 0 {
			errs = append(errs, errors.New("DB_MAX_POOL_CONNECTIONS must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be '%s' or '%s', got '%s'", DriverSQLite, DriverPostgres, c.Database.Driver))
	}

	if c.Cache.Addr != "" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL must be positive when REDIS_ADDR is set"))
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got '%s'", level)
	}
	return l, nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
