// Package config provides 12-factor configuration management for the
// automation runner.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Browser: browser driver settings (headless, viewport, JPEG quality)
//   - Stability: visual stability detection tuning
//   - Artifacts: per-session artifact storage
//   - Webhook: session-end callback delivery
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - BROWSER_HEADLESS, BROWSER_VIEWPORT_WIDTH, BROWSER_VIEWPORT_HEIGHT
//   - STABILITY_ENABLED, STABILITY_SENSITIVITY, STABILITY_INTERVAL_MS, ...
//   - ARTIFACTS_DIR, WEBHOOK_URL
//   - LOG_LEVEL, LOG_DEV
package config
