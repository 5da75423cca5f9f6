package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.Workers)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, FeedSimulated, cfg.Market.Feed)
	assert.Equal(t, 24*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, 10000.0, cfg.DefaultSettings().InitialCapital)
	assert.Equal(t, "USD", cfg.Settings.DisplayCurrency)
	assert.Equal(t, 1, cfg.Settings.UpdateFrequency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
  workers: 3
  session_ttl: 2h
database:
  driver: postgres
  dsn: host=localhost dbname=trading_db sslmode=disable
market:
  feed: fixture
  fixture:
    AAPL: 150
    MSFT: 380
settings:
  initial_capital: 2500
  display_currency: CAD
`)
	t.Setenv("PORT", "9100")
	t.Setenv("UPDATE_FREQUENCY", "15")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, 2*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, map[string]float64{"AAPL": 150, "MSFT": 380}, cfg.Market.Fixture)
	assert.Equal(t, 15, cfg.Settings.UpdateFrequency)

	s := cfg.DefaultSettings()
	assert.Equal(t, 2500.0, s.InitialCapital)
	assert.Equal(t, "CAD", s.DisplayCurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("NUM_WORKERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_ZeroCapitalIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "settings:\n  initial_capital: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.DefaultSettings().InitialCapital)
	assert.NoError(t, cfg.Validate())

	t.Setenv("INITIAL_CAPITAL", "0")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.DefaultSettings().InitialCapital)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Settings.UpdateFrequency = 61
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Market.Feed = FeedFixture
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.SessionTTL = time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	negative := -1.0
	cfg.Settings.InitialCapital = &negative
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Market.Feed = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}
