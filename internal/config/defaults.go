package config

import (
	"time"

	"github.com/bobmcallan/niftyscope/internal/models"
)

// DefaultWatchlist seeds the watchlist on first load.
var DefaultWatchlist = []string{"RELIANCE.NS", "TCS.NS", "INFY.NS", "HDFCBANK.NS"}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		API: APIConfig{
			URL:     "http://localhost:8000/api",
			Timeout: Duration{30 * time.Second},
		},
		Cache: CacheConfig{
			TTL:        Duration{60 * time.Second},
			MaxEntries: 256,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/niftyscope",
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "niftyscope:",
			},
		},
		Watchlist: WatchlistConfig{
			Defaults: append([]string(nil), DefaultWatchlist...),
		},
		Dashboard: DashboardConfig{
			Columns: append([]string(nil), models.DefaultDashboardColumns...),
		},
		Search: SearchConfig{
			MinLength: 3,
			Debounce:  Duration{250 * time.Millisecond},
		},
		Summary: SummaryConfig{
			Timezone: "Asia/Kolkata",
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{
				Topic: "watchlist-events",
			},
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}
