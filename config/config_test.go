package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[web]
host = "0.0.0.0"
port = 8000

[db]
host = "localhost"
port = 5432
user = "bidnbuy"
password = "secret"
database = "bidnbuy"
pool_size = 10

[auth0]
domain = "tenant.eu.auth0.com"
audience = "https://api.bidnbuy.example"

[sweeper]
expiry_interval_seconds = 30
closed_lot_retention_days = 14
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Web.Host)
	assert.Equal(t, 8000, cfg.Web.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 10, cfg.DB.PoolSize)
	assert.Equal(t, "tenant.eu.auth0.com", cfg.Auth0.Domain)

	assert.Equal(t, 30*time.Second, cfg.Sweeper.ExpiryInterval())
	assert.Equal(t, 14*24*time.Hour, cfg.Sweeper.ClosedLotRetention())
}

func TestLoadAppliesSweeperDefaults(t *testing.T) {
	path := writeConfig(t, `
[web]
port = 8000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Sweeper.ExpiryInterval())
	assert.Equal(t, time.Hour, cfg.Sweeper.RetentionInterval())
	assert.Equal(t, 30*24*time.Hour, cfg.Sweeper.ClosedLotRetention())
	assert.Equal(t, 7*24*time.Hour, cfg.Sweeper.CancelledBidGrace())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
