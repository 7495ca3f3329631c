package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/logging"
)

// Config holds browser driver settings.
type Config struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	JPEGQuality    int
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 80
	}
	return c
}

// Driver drives one Chromium page through Playwright.
type Driver struct {
	cfg Config
	log *logging.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu     sync.Mutex
	mouseX float64
	mouseY float64
	closed bool
}

// New launches Chromium and opens a blank page.
func New(cfg Config, log *logging.Logger) (*Driver, error) {
	if log == nil {
		log = logging.NewNop()
	}
	cfg = cfg.WithDefaults()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	log.Named("browser").Info("chromium launched",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight))

	return &Driver{
		cfg:     cfg,
		log:     log.Named("browser"),
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
	}, nil
}

// Screenshot captures the current viewport as JPEG bytes.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(d.cfg.JPEGQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}

// DOM returns the full HTML content of the page.
func (d *Driver) DOM(ctx context.Context) (string, error) {
	content, err := d.page.Content()
	if err != nil {
		return "", fmt.Errorf("extract page content: %w", err)
	}
	return content, nil
}

// CurrentURL returns the page's URL.
func (d *Driver) CurrentURL() string {
	return d.page.URL()
}

// Close tears the browser down. Idempotent.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if err := d.browser.Close(); err != nil {
		d.pw.Stop()
		return fmt.Errorf("close browser: %w", err)
	}
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright: %w", err)
	}
	d.log.Info("browser closed")
	return nil
}
