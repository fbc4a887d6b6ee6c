package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Amadeus  AmadeusConfig  `mapstructure:"amadeus"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Routes   []RouteConfig  `mapstructure:"routes"`
}

// AmadeusConfig holds Amadeus API configuration. The API key and secret are
// taken from the AMADEUS_API_KEY / AMADEUS_API_SECRET environment variables
// (typically via a .env file) so they never live in the YAML file.
type AmadeusConfig struct {
	APIURL              string        `mapstructure:"api_url"`
	APIKey              string        `mapstructure:"api_key"`
	APISecret           string        `mapstructure:"api_secret"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryDelayBase      time.Duration `mapstructure:"retry_delay_base"`
	DepartureOffsetDays int           `mapstructure:"departure_offset_days"`
	CurrencyCode        string        `mapstructure:"currency_code"`
}

// MonitorConfig holds monitoring behavior configuration
type MonitorConfig struct {
	BaseInterval       time.Duration `mapstructure:"base_interval"`
	FetchPause         time.Duration `mapstructure:"fetch_pause"`
	LearningDays       int           `mapstructure:"learning_days"`
	GoodPct            float64       `mapstructure:"good_pct"`
	ExcellentPct       float64       `mapstructure:"excellent_pct"`
	CriticalPct        float64       `mapstructure:"critical_pct"`
	SummaryHour        int           `mapstructure:"summary_hour"`
	TopPromotions      int           `mapstructure:"top_promotions"`
	SummaryMinDiscount float64       `mapstructure:"summary_min_discount"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RouteConfig is one initially monitored route. Routes added at runtime live
// in storage only; this list just seeds a fresh database.
type RouteConfig struct {
	Origin      string `mapstructure:"origin"`
	Destination string `mapstructure:"destination"`
	Name        string `mapstructure:"name"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("FAREWATCH")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Credentials come from the environment, never the YAML file
	if val := os.Getenv("AMADEUS_API_KEY"); val != "" {
		cfg.Amadeus.APIKey = val
	}
	if val := os.Getenv("AMADEUS_API_SECRET"); val != "" {
		cfg.Amadeus.APISecret = val
	}
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		cfg.Telegram.BotToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		cfg.Telegram.ChatID = val
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Amadeus defaults
	v.SetDefault("amadeus.api_url", "https://test.api.amadeus.com")
	v.SetDefault("amadeus.timeout", "30s")
	v.SetDefault("amadeus.max_retries", 3)
	v.SetDefault("amadeus.retry_delay_base", "1s")
	v.SetDefault("amadeus.departure_offset_days", 30)
	v.SetDefault("amadeus.currency_code", "BRL")

	// Monitor defaults
	v.SetDefault("monitor.base_interval", "6h")
	v.SetDefault("monitor.fetch_pause", "2s")
	v.SetDefault("monitor.learning_days", 0)
	v.SetDefault("monitor.good_pct", 20.0)
	v.SetDefault("monitor.excellent_pct", 35.0)
	v.SetDefault("monitor.critical_pct", 50.0)
	v.SetDefault("monitor.summary_hour", 20)
	v.SetDefault("monitor.top_promotions", 5)
	v.SetDefault("monitor.summary_min_discount", 15.0)

	// Telegram defaults
	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/farewatch.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Amadeus config
	if c.Amadeus.APIURL == "" {
		return fmt.Errorf("amadeus.api_url is required")
	}
	if c.Amadeus.APIKey == "" {
		return fmt.Errorf("AMADEUS_API_KEY is required")
	}
	if c.Amadeus.APISecret == "" {
		return fmt.Errorf("AMADEUS_API_SECRET is required")
	}
	if c.Amadeus.DepartureOffsetDays < 1 {
		return fmt.Errorf("amadeus.departure_offset_days must be at least 1")
	}
	if len(c.Amadeus.CurrencyCode) != 3 {
		return fmt.Errorf("amadeus.currency_code must be a 3-letter ISO code")
	}

	// Validate Monitor config
	if c.Monitor.BaseInterval < 15*time.Minute {
		return fmt.Errorf("monitor.base_interval must be at least 15 minutes")
	}
	if c.Monitor.FetchPause < 0 {
		return fmt.Errorf("monitor.fetch_pause must not be negative")
	}
	if c.Monitor.LearningDays < 0 {
		return fmt.Errorf("monitor.learning_days must not be negative")
	}
	if c.Monitor.GoodPct <= 0 || c.Monitor.ExcellentPct <= 0 || c.Monitor.CriticalPct <= 0 {
		return fmt.Errorf("monitor tier thresholds must be positive")
	}
	if c.Monitor.GoodPct >= c.Monitor.ExcellentPct || c.Monitor.ExcellentPct >= c.Monitor.CriticalPct {
		return fmt.Errorf("monitor tier thresholds must be strictly increasing (good < excellent < critical)")
	}
	if c.Monitor.SummaryHour < 0 || c.Monitor.SummaryHour > 23 {
		return fmt.Errorf("monitor.summary_hour must be between 0 and 23")
	}
	if c.Monitor.TopPromotions < 1 {
		return fmt.Errorf("monitor.top_promotions must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate routes
	seen := make(map[string]bool, len(c.Routes))
	for _, r := range c.Routes {
		if len(r.Origin) != 3 || len(r.Destination) != 3 {
			return fmt.Errorf("route %s-%s: origin and destination must be 3-letter IATA codes", r.Origin, r.Destination)
		}
		key := r.Origin + "-" + r.Destination
		if seen[key] {
			return fmt.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
