package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Amadeus: AmadeusConfig{
			APIURL:              "https://test.api.amadeus.com",
			APIKey:              "key",
			APISecret:           "secret",
			Timeout:             30 * time.Second,
			DepartureOffsetDays: 30,
			CurrencyCode:        "BRL",
		},
		Monitor: MonitorConfig{
			BaseInterval:       6 * time.Hour,
			FetchPause:         2 * time.Second,
			GoodPct:            20,
			ExcellentPct:       35,
			CriticalPct:        50,
			SummaryHour:        20,
			TopPromotions:      5,
			SummaryMinDiscount: 15,
		},
		Telegram: TelegramConfig{
			BotToken: "token",
			ChatID:   "12345",
			Enabled:  true,
		},
		Storage: StorageConfig{DBPath: "./data/test.db"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Routes: []RouteConfig{
			{Origin: "GRU", Destination: "SSA", Name: "Sao Paulo → Salvador"},
		},
	}
}

func TestLoadAndValidate(t *testing.T) {
	content := `
amadeus:
  api_url: "https://test.api.amadeus.com"
  departure_offset_days: 30
  currency_code: "BRL"

monitor:
  base_interval: 6h
  fetch_pause: 2s
  learning_days: 7
  good_pct: 20
  excellent_pct: 35
  critical_pct: 50
  summary_hour: 20

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"

routes:
  - origin: "GRU"
    destination: "SSA"
    name: "Sao Paulo → Salvador"
  - origin: "GRU"
    destination: "JFK"
    name: "Sao Paulo → Nova York"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AMADEUS_API_KEY", "env-key")
	t.Setenv("AMADEUS_API_SECRET", "env-secret")

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Monitor.BaseInterval != 6*time.Hour {
		t.Errorf("Unexpected base interval: %v", cfg.Monitor.BaseInterval)
	}
	if cfg.Monitor.LearningDays != 7 {
		t.Errorf("Unexpected learning days: %d", cfg.Monitor.LearningDays)
	}
	if len(cfg.Routes) != 2 {
		t.Errorf("Expected 2 routes, got %d", len(cfg.Routes))
	}
	if cfg.Amadeus.APIKey != "env-key" || cfg.Amadeus.APISecret != "env-secret" {
		t.Error("credentials should come from the environment")
	}
	// Defaults fill fields the file omits.
	if cfg.Amadeus.Timeout != 30*time.Second {
		t.Errorf("Unexpected default timeout: %v", cfg.Amadeus.Timeout)
	}
	if cfg.Monitor.TopPromotions != 5 {
		t.Errorf("Unexpected default top promotions: %d", cfg.Monitor.TopPromotions)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.Amadeus.APIKey = "" }},
		{"missing api secret", func(c *Config) { c.Amadeus.APISecret = "" }},
		{"bad currency", func(c *Config) { c.Amadeus.CurrencyCode = "REAIS" }},
		{"base interval too short", func(c *Config) { c.Monitor.BaseInterval = time.Minute }},
		{"non-increasing thresholds", func(c *Config) { c.Monitor.ExcellentPct = 10 }},
		{"summary hour out of range", func(c *Config) { c.Monitor.SummaryHour = 24 }},
		{"telegram enabled without token", func(c *Config) { c.Telegram.BotToken = "" }},
		{"missing db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"duplicate route", func(c *Config) {
			c.Routes = append(c.Routes, RouteConfig{Origin: "GRU", Destination: "SSA"})
		}},
		{"bad route code", func(c *Config) {
			c.Routes = append(c.Routes, RouteConfig{Origin: "SAO", Destination: "NY"})
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}

func TestValidate_TelegramDisabledSkipsTokenCheck(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram = TelegramConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with telegram disabled: %v", err)
	}
}
