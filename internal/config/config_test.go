package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Browser config
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 800, cfg.Browser.ViewportHeight)

	// Stability config
	assert.True(t, cfg.Stability.Enabled)
	assert.Equal(t, 0.1, cfg.Stability.Sensitivity)
	assert.Equal(t, 250, cfg.Stability.IntervalMs)
	assert.Equal(t, 30, cfg.Stability.TimeoutSec)
	assert.Equal(t, 320, cfg.Stability.DownscaleWidth)
	assert.Zero(t, cfg.Stability.FrameCount)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "runs", cfg.Artifacts.BaseDir)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                      "8080",
		"HOST":                      "127.0.0.1",
		"BROWSER_HEADLESS":          "false",
		"STABILITY_ENABLED":         "false",
		"STABILITY_SENSITIVITY":     "0.25",
		"STABILITY_INTERVAL_MS":     "100",
		"STABILITY_FRAME_COUNT":     "6",
		"STABILITY_DOWNSCALE_WIDTH": "480",
		"ARTIFACTS_DIR":             "/tmp/runs",
		"WEBHOOK_URL":               "http://dashboard:9000/hook",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.False(t, cfg.Browser.Headless)
	assert.False(t, cfg.Stability.Enabled)
	assert.Equal(t, 0.25, cfg.Stability.Sensitivity)
	assert.Equal(t, 100, cfg.Stability.IntervalMs)
	assert.Equal(t, 6, cfg.Stability.FrameCount)
	assert.Equal(t, 480, cfg.Stability.DownscaleWidth)
	assert.Equal(t, "/tmp/runs", cfg.Artifacts.BaseDir)
	assert.Equal(t, "http://dashboard:9000/hook", cfg.Webhook.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PORT", "4000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Stability.Enabled)
	assert.Equal(t, 250, cfg.Stability.IntervalMs)
}
