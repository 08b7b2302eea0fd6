// Package config_test tests the config package.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"gopkg.in/yaml.v3"
)

// Helper function to create a dummy config file with specific content
func createDummyConfigFile(t *testing.T, path, content string) {
	t.Helper()
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	createDummyConfigFile(t, configPath, `log_level: "info"`)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Engine.IntervalMs)
	assert.Equal(t, 10, cfg.Engine.CooldownSeconds)
	assert.Equal(t, 0.036, cfg.Trailing.FeeBufferPct)
	require.Len(t, cfg.Trailing.Tiers, 3)
	assert.Equal(t, 0.9, cfg.Trailing.Tiers[2].Ratio)
	assert.Equal(t, -0.2, cfg.ExtraClose.BestLossPct)
	assert.True(t, bool(cfg.Averaging.Enabled))
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	createDummyConfigFile(t, configPath, `
engine:
  interval_ms: 500
  workers: 2
  cooldown_seconds: 3
trailing:
  activation_pct: 0.15
  fee_buffer_pct: 0.036
  tiers:
    - ratio: 0.95
averaging:
  enabled: "false"
  trigger_pct: -2.5
`)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Engine.IntervalMs)
	assert.Equal(t, "500ms", cfg.Engine.Interval().String())
	require.Len(t, cfg.Trailing.Tiers, 1, "a single-tier table replaces the defaults")
	assert.Equal(t, 0.95, cfg.Trailing.Tiers[0].Ratio)
	assert.False(t, bool(cfg.Averaging.Enabled))
	assert.Equal(t, -2.5, cfg.Averaging.TriggerPct)
}

// TestLoadConfig_EnvVarOverride tests if environment variables correctly override yaml values.
func TestLoadConfig_EnvVarOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	createDummyConfigFile(t, configPath, `
log_level: "info"
database:
  host: "localhost"
  user: "user_from_file"
  name: "hedge"`)

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_HOST", "db.from.env")
	t.Setenv("DB_USER", "user_from_env")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("PRICE_FEED_URL", "wss://feed.example/ws")
	os.Unsetenv("DB_PASSWORD")

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.from.env", cfg.Database.Host)
	assert.Equal(t, "user_from_env", cfg.Database.User)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "", cfg.Database.Password)
	assert.Equal(t, "wss://feed.example/ws", cfg.PriceFeed.URL)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres://user_from_env:@db.from.env:6543/hedge?sslmode=disable", cfg.Database.URL())
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"zero interval", "engine:\n  interval_ms: 0", "engine.interval_ms"},
		{"ratio above one", "trailing:\n  tiers:\n    - ratio: 1.5", "trailing.tiers[0].ratio"},
		{"non increasing tiers", "trailing:\n  tiers:\n    - {max_high_pct: 0.5, ratio: 0.6}\n    - {max_high_pct: 0.3, ratio: 0.8}\n    - {ratio: 0.9}", "max_high_pct must increase"},
		{"positive hedge threshold", "hedge:\n  single_position_threshold_pct: 0.5", "hedge.single_position_threshold_pct"},
		{"positive delta", "extra_close:\n  deterioration_delta_pct: 0.1", "extra_close.deterioration_delta_pct"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			createDummyConfigFile(t, configPath, tc.content)
			_, err := config.LoadConfig(configPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("DB_PORT", "not-a-port")
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	createDummyConfigFile(t, configPath, `log_level: "info"`)
	_, err = config.LoadConfig(configPath)
	assert.ErrorContains(t, err, "DB_PORT")
}

func TestFlexBool(t *testing.T) {
	testCases := []struct {
		in      string
		want    config.FlexBool
		wantErr bool
	}{
		{"true", true, false},
		{"\"false\"", false, false},
		{"yes", true, false},
		{"OFF", false, false},
		{"1", true, false},
		{"0.0", false, false},
		{"maybe", false, true},
		{"[1]", false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			var v struct {
				Enabled config.FlexBool `yaml:"enabled"`
			}
			err := yaml.Unmarshal([]byte("enabled: "+tc.in), &v)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Enabled)
		})
	}
	assert.Equal(t, "on", config.FlexBool(true).String())
}
