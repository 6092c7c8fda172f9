package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Alerts   AlertConfig    `mapstructure:"alerts"`
	UI       UIConfig       `mapstructure:"ui"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SweepConfig controls the periodic catch-up pass.
type SweepConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// AlertConfig controls due-soon alerting.
type AlertConfig struct {
	DueSoonDays       int `mapstructure:"due_soon_days"`
	BatchSize         int `mapstructure:"batch_size"`
	BatchDelaySeconds int `mapstructure:"batch_delay_seconds"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`
}

// Interval returns the sweep interval as a duration.
func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// BatchDelay returns the inter-batch pause as a duration.
func (a AlertConfig) BatchDelay() time.Duration {
	return time.Duration(a.BatchDelaySeconds) * time.Second
}

// Load reads configuration from file and env. Env var overrides use prefix LEDGERKEEP_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerkeep", "ledgerkeep.db"))
	v.SetDefault("sweep.interval_minutes", 60)
	v.SetDefault("alerts.due_soon_days", 3)
	v.SetDefault("alerts.batch_size", 2)
	v.SetDefault("alerts.batch_delay_seconds", 5)
	v.SetDefault("ui.date_format", "02/01")
	v.SetDefault("ui.currency_symbol", "₹")
	v.SetDefault("ui.timezone", "Asia/Kolkata")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGERKEEP_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledgerkeep"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGERKEEP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
