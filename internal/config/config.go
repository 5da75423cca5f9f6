package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/atharvakonge/paper-trading-simulator/internal/models"
)

// Feed names.
const (
	FeedFixture   = "fixture"
	FeedSimulated = "simulated"
	FeedFinnhub   = "finnhub"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		GinMode string `yaml:"gin_mode"`
		Workers int    `yaml:"workers"`
		// Sessions untouched for this long are dropped.
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"` // "postgres" or "sqlite"
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Market struct {
		Feed          string             `yaml:"feed"`
		Seed          int64              `yaml:"seed"`
		Fixture       map[string]float64 `yaml:"fixture"`
		RatePerSecond float64            `yaml:"rate_per_second"`
	} `yaml:"market"`
	// Defaults applied until the user saves settings. InitialCapital is nil
	// when unset so that an explicit 0 is kept.
	Settings struct {
		APIKey          string   `yaml:"api_key"`
		InitialCapital  *float64 `yaml:"initial_capital"`
		DisplayCurrency string   `yaml:"display_currency"`
		UpdateFrequency int      `yaml:"update_frequency"`
	} `yaml:"settings"`
	LogLevel string `yaml:"log_level"`
}

// Load reads .env (if any), then the YAML file at path (if any), then
// environment overrides, then fills defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.GinMode = v
	}
	if v := os.Getenv("NUM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NUM_WORKERS: %w", err)
		}
		c.Server.Workers = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Server.SessionTTL = d
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("FEED"); v != "" {
		c.Market.Feed = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Settings.APIKey = v
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INITIAL_CAPITAL: %w", err)
		}
		c.Settings.InitialCapital = &f
	}
	if v := os.Getenv("DISPLAY_CURRENCY"); v != "" {
		c.Settings.DisplayCurrency = v
	}
	if v := os.Getenv("UPDATE_FREQUENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPDATE_FREQUENCY: %w", err)
		}
		c.Settings.UpdateFrequency = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = 5
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 24 * time.Hour
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/settings.db"
	}
	if c.Market.Feed == "" {
		c.Market.Feed = FeedSimulated
	}
	if c.Market.RatePerSecond == 0 {
		c.Market.RatePerSecond = 1
	}
	if c.Settings.InitialCapital == nil {
		capital := 10000.0
		c.Settings.InitialCapital = &capital
	}
	if c.Settings.DisplayCurrency == "" {
		c.Settings.DisplayCurrency = "USD"
	}
	if c.Settings.UpdateFrequency == 0 {
		c.Settings.UpdateFrequency = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1")
	}
	if c.Server.SessionTTL < time.Minute {
		return fmt.Errorf("server.session_ttl must be at least 1m")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Market.Feed {
	case FeedFixture:
		if len(c.Market.Fixture) == 0 {
			return fmt.Errorf("market.fixture prices are required for the fixture feed")
		}
	case FeedSimulated, FeedFinnhub:
	default:
		return fmt.Errorf("unknown market.feed %q", c.Market.Feed)
	}
	if c.Settings.InitialCapital == nil || *c.Settings.InitialCapital < 0 {
		return fmt.Errorf("settings.initial_capital must not be negative")
	}
	f := c.Settings.UpdateFrequency
	if f < models.MinUpdateFrequency || f > models.MaxUpdateFrequency {
		return fmt.Errorf("settings.update_frequency must be between %d and %d minutes", models.MinUpdateFrequency, models.MaxUpdateFrequency)
	}
	return nil
}

// DefaultSettings converts the configured defaults to models.Settings.
func (c *Config) DefaultSettings() models.Settings {
	return models.Settings{
		APIKey:          c.Settings.APIKey,
		InitialCapital:  *c.Settings.InitialCapital,
		DisplayCurrency: c.Settings.DisplayCurrency,
		UpdateFrequency: c.Settings.UpdateFrequency,
	}
}
