package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// point at a missing file so a developer's real config cannot leak in
	t.Setenv("LEDGERKEEP_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	require.NotEmpty(t, cfg.Database.Path)
	require.Equal(t, time.Hour, cfg.Sweep.Interval())
	require.Equal(t, 3, cfg.Alerts.DueSoonDays)
	require.Equal(t, 2, cfg.Alerts.BatchSize)
	require.Equal(t, 5*time.Second, cfg.Alerts.BatchDelay())
	require.NotEmpty(t, cfg.UI.Timezone)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := []byte(`
[database]
path = "/tmp/custom.db"

[sweep]
interval_minutes = 15

[alerts]
due_soon_days = 7
batch_size = 4
batch_delay_seconds = 1

[ui]
currency_symbol = "$"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("LEDGERKEEP_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	require.Equal(t, 15*time.Minute, cfg.Sweep.Interval())
	require.Equal(t, 7, cfg.Alerts.DueSoonDays)
	require.Equal(t, 4, cfg.Alerts.BatchSize)
	require.Equal(t, time.Second, cfg.Alerts.BatchDelay())
	require.Equal(t, "$", cfg.UI.CurrencySymbol)
}
