package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Stability StabilityConfig
	Artifacts ArtifactsConfig
	Webhook   WebhookConfig
	Logging   LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// BrowserConfig holds browser driver configuration.
type BrowserConfig struct {
	Headless       bool `envconfig:"BROWSER_HEADLESS" default:"true"`
	ViewportWidth  int  `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int  `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"800"`
	JPEGQuality    int  `envconfig:"BROWSER_JPEG_QUALITY" default:"80"`
}

// StabilityConfig holds visual stability detection configuration.
//
// FrameCount is the number of consecutive unchanged comparisons required
// before the page is declared settled; when left at zero it is derived
// from WaitTimeMs/IntervalMs.
type StabilityConfig struct {
	Enabled        bool    `envconfig:"STABILITY_ENABLED" default:"true"`
	WaitTimeMs     int     `envconfig:"STABILITY_WAIT_TIME_MS" default:"1000"`
	Sensitivity    float64 `envconfig:"STABILITY_SENSITIVITY" default:"0.1"`
	TimeoutSec     int     `envconfig:"STABILITY_TIMEOUT_SEC" default:"30"`
	IntervalMs     int     `envconfig:"STABILITY_INTERVAL_MS" default:"250"`
	FrameCount     int     `envconfig:"STABILITY_FRAME_COUNT" default:"0"`
	DownscaleWidth int     `envconfig:"STABILITY_DOWNSCALE_WIDTH" default:"320"`
}

// ArtifactsConfig holds artifact storage configuration.
type ArtifactsConfig struct {
	BaseDir string `envconfig:"ARTIFACTS_DIR" default:"runs"`
}

// WebhookConfig holds session-end callback configuration.
type WebhookConfig struct {
	URL      string `envconfig:"WEBHOOK_URL" default:""`
	RetryMax int    `envconfig:"WEBHOOK_RETRY_MAX" default:"3"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3000",
			Host: "0.0.0.0",
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			JPEGQuality:    80,
		},
		Stability: StabilityConfig{
			Enabled:        true,
			WaitTimeMs:     1000,
			Sensitivity:    0.1,
			TimeoutSec:     30,
			IntervalMs:     250,
			DownscaleWidth: 320,
		},
		Artifacts: ArtifactsConfig{
			BaseDir: "runs",
		},
		Webhook: WebhookConfig{
			RetryMax: 3,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
