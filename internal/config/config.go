package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/niftyscope/internal/models"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	API         APIConfig       `toml:"api"`
	Cache       CacheConfig     `toml:"cache"`
	Storage     StorageConfig   `toml:"storage"`
	Watchlist   WatchlistConfig `toml:"watchlist"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Search      SearchConfig    `toml:"search"`
	Summary     SummaryConfig   `toml:"summary"`
	Events      EventsConfig    `toml:"events"`
	MCP         MCPConfig       `toml:"mcp"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

// APIConfig points at the upstream market-data API.
type APIConfig struct {
	URL     string   `toml:"url" validate:"required,url"`
	Timeout Duration `toml:"timeout"`
}

// CacheConfig bounds the upstream GET response cache. A zero TTL disables caching.
type CacheConfig struct {
	TTL        Duration `toml:"ttl"`
	MaxEntries int      `toml:"max_entries" validate:"min=0"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend string       `toml:"backend" validate:"oneof=badger redis"`
	Badger  BadgerConfig `toml:"badger"`
	Redis   RedisConfig  `toml:"redis"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// RedisConfig contains Redis-specific settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"min=0"`
	Prefix   string `toml:"prefix"`
}

// WatchlistConfig holds the seed list used until the user saves their own.
type WatchlistConfig struct {
	Defaults []string `toml:"defaults"`
}

// DashboardConfig lists the interval columns rendered on the dashboard.
type DashboardConfig struct {
	Columns []string `toml:"columns"`
}

// SearchConfig controls when and how often search requests reach upstream.
type SearchConfig struct {
	MinLength int      `toml:"min_length" validate:"min=0"`
	Debounce  Duration `toml:"debounce"`
}

// SummaryConfig controls the optional background refresh of summaries.
type SummaryConfig struct {
	RefreshSchedule string `toml:"refresh_schedule"`
	Timezone        string `toml:"timezone"`
}

// EventsConfig configures watchlist change publishing.
type EventsConfig struct {
	Kafka KafkaConfig `toml:"kafka"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Outputs    []string `toml:"outputs" validate:"dive,oneof=console file"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" validate:"min=0"`
	MaxBackups int      `toml:"max_backups" validate:"min=0"`
}

// Duration is a time.Duration that reads from TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsDevMode reports whether the portal runs in the dev environment.
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the portal's own base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env never overrides variables already present in the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies NIFTY_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NIFTY_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("NIFTY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("NIFTY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if apiURL := os.Getenv("NIFTY_API_URL"); apiURL != "" {
		config.API.URL = apiURL
	}
	if backend := os.Getenv("NIFTY_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("NIFTY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if addr := os.Getenv("NIFTY_REDIS_ADDR"); addr != "" {
		config.Storage.Redis.Addr = addr
	}
	if pw := os.Getenv("NIFTY_REDIS_PASSWORD"); pw != "" {
		config.Storage.Redis.Password = pw
	}
	if schedule := os.Getenv("NIFTY_SUMMARY_REFRESH_SCHEDULE"); schedule != "" {
		config.Summary.RefreshSchedule = schedule
	}
	if brokers := os.Getenv("NIFTY_KAFKA_BROKERS"); brokers != "" {
		config.Events.Kafka.Brokers = strings.Split(brokers, ",")
		config.Events.Kafka.Enabled = true
	}
	if level := os.Getenv("NIFTY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks mandatory and cross-field settings and returns one message per issue.
func (c *Config) Validate() []string {
	var issues []string

	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				issues = append(issues, fmt.Sprintf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			issues = append(issues, err.Error())
		}
	}

	switch c.Storage.Backend {
	case "badger":
		if strings.TrimSpace(c.Storage.Badger.Path) == "" {
			issues = append(issues, "storage.badger.path is required when storage.backend is badger")
		}
	case "redis":
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			issues = append(issues, "storage.redis.addr is required when storage.backend is redis")
		}
	}

	for _, col := range c.Dashboard.Columns {
		if !models.IsIntervalLabel(col) {
			issues = append(issues, fmt.Sprintf("dashboard.columns: unknown interval %q", col))
		}
	}

	if c.Events.Kafka.Enabled {
		if len(c.Events.Kafka.Brokers) == 0 {
			issues = append(issues, "events.kafka.brokers is required when events.kafka.enabled is true")
		}
		if strings.TrimSpace(c.Events.Kafka.Topic) == "" {
			issues = append(issues, "events.kafka.topic is required when events.kafka.enabled is true")
		}
	}

	return issues
}
