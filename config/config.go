package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bidnbuy/backend/database"
	"github.com/pelletier/go-toml/v2"
)

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Sweeper.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Web     WebConfig         `toml:"web"`
	DB      database.DBConfig `toml:"db"`
	Auth0   Auth0Config       `toml:"auth0"`
	Spaces  SpacesConfig      `toml:"spaces"`
	Sweeper SweeperConfig     `toml:"sweeper"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	CORSOrigins string `toml:"cors_origins"`
}

type Auth0Config struct {
	Domain   string `toml:"domain"`
	Audience string `toml:"audience"`
}

type SpacesConfig struct {
	Key     string `toml:"key"`
	Secret  string `toml:"secret"`
	Region  string `toml:"region"`
	Bucket  string `toml:"bucket"`
	LotRoot string `toml:"lotroot"`
}

// SweeperConfig holds the intervals for the recurring background tasks and
// the retention windows the retention sweeper enforces.
type SweeperConfig struct {
	ExpiryIntervalSeconds    int `toml:"expiry_interval_seconds"`
	RetentionIntervalMinutes int `toml:"retention_interval_minutes"`
	ClosedLotRetentionDays   int `toml:"closed_lot_retention_days"`
	CancelledBidGraceDays    int `toml:"cancelled_bid_grace_days"`
}

func (c *SweeperConfig) applyDefaults() {
	if c.ExpiryIntervalSeconds <= 0 {
		c.ExpiryIntervalSeconds = 60
	}
	if c.RetentionIntervalMinutes <= 0 {
		c.RetentionIntervalMinutes = 60
	}
	if c.ClosedLotRetentionDays <= 0 {
		c.ClosedLotRetentionDays = 30
	}
	if c.CancelledBidGraceDays <= 0 {
		c.CancelledBidGraceDays = 7
	}
}

func (c SweeperConfig) ExpiryInterval() time.Duration {
	return time.Duration(c.ExpiryIntervalSeconds) * time.Second
}

func (c SweeperConfig) RetentionInterval() time.Duration {
	return time.Duration(c.RetentionIntervalMinutes) * time.Minute
}

func (c SweeperConfig) ClosedLotRetention() time.Duration {
	return time.Duration(c.ClosedLotRetentionDays) * 24 * time.Hour
}

func (c SweeperConfig) CancelledBidGrace() time.Duration {
	return time.Duration(c.CancelledBidGraceDays) * 24 * time.Hour
}
