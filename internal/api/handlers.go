package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/artifacts"
	"github.com/rabbitize/rabbitize/internal/config"
	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/monitoring"
	"github.com/rabbitize/rabbitize/internal/notify"
	"github.com/rabbitize/rabbitize/internal/queue"
	"github.com/rabbitize/rabbitize/internal/session"
	"github.com/rabbitize/rabbitize/internal/stability"
)

// DriverFactory builds a browser driver for a new session. Injected so
// tests can run without a real browser.
type DriverFactory func() (session.Driver, error)

// Handlers holds the REST endpoint implementations.
type Handlers struct {
	cfg       *config.Config
	queue     *queue.Manager
	metrics   *monitoring.Metrics
	log       *logging.Logger
	newDriver DriverFactory

	mu sync.Mutex
}

// NewHandlers creates the handler set.
func NewHandlers(cfg *config.Config, q *queue.Manager, metrics *monitoring.Metrics, log *logging.Logger, newDriver DriverFactory) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		cfg:       cfg,
		queue:     q,
		metrics:   metrics,
		log:       log.Named("api"),
		newDriver: newDriver,
	}
}

// Root reports service identity for health checks.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "automation-runner",
		"status":  "ok",
	})
}

type startRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	TestID   string `json:"testId" binding:"required"`
	URL      string `json:"url"`
}

// Start boots a browser session, binds it to the queue, and enables
// processing. An optional URL becomes the first queued command.
func (h *Handlers) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queue.Active() {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "a session is already active; end it first",
		})
		return
	}

	driver, err := h.newDriver()
	if err != nil {
		h.log.Error("driver launch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	sessionID := "session-" + time.Now().Format("20060102-150405")

	store, err := artifacts.NewStore(h.cfg.Artifacts.BaseDir, req.ClientID, req.TestID, sessionID, h.log)
	if err != nil {
		driver.Close(c.Request.Context())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	sess := session.New(session.Options{
		ID:       sessionID,
		ClientID: req.ClientID,
		TestID:   req.TestID,
		Driver:   driver,
		Stability: stability.Config{
			Enabled:        h.cfg.Stability.Enabled,
			WaitTime:       time.Duration(h.cfg.Stability.WaitTimeMs) * time.Millisecond,
			Sensitivity:    h.cfg.Stability.Sensitivity,
			Timeout:        time.Duration(h.cfg.Stability.TimeoutSec) * time.Second,
			Interval:       time.Duration(h.cfg.Stability.IntervalMs) * time.Millisecond,
			FrameCount:     h.cfg.Stability.FrameCount,
			DownscaleWidth: h.cfg.Stability.DownscaleWidth,
		},
		Store:    store,
		Notifier: notify.NewWebhook(h.cfg.Webhook.URL, h.cfg.Webhook.RetryMax, h.log),
		Log:      h.log,
		Metrics:  h.metrics,
	})

	h.queue.SetSession(sess)
	// The consumer loop outlives this request.
	h.queue.StartProcessing(context.Background())

	resp := gin.H{"success": true, "sessionId": sessionID}
	if req.URL != "" {
		resp["commandId"] = h.queue.EnqueueExecute([]string{":url", req.URL})
	}
	c.JSON(http.StatusOK, resp)
}

type executeRequest struct {
	Command []string `json:"command" binding:"required"`
}

// Execute enqueues one command. Acceptance is decoupled from
// execution: staging before a session is ready is allowed.
func (h *Handlers) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(req.Command) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "command must not be empty"})
		return
	}

	id := h.queue.EnqueueExecute(req.Command)
	c.JSON(http.StatusOK, gin.H{"success": true, "commandId": id})
}

type endRequest struct {
	QuickCleanup bool `json:"quickCleanup"`
}

// End enqueues session teardown behind any pending commands.
func (h *Handlers) End(c *gin.Context) {
	var req endRequest
	// Body is optional; an empty body means full teardown.
	_ = c.ShouldBindJSON(&req)

	if !h.queue.Active() {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "no active session"})
		return
	}

	id := h.queue.EnqueueEnd(req.QuickCleanup)
	c.JSON(http.StatusOK, gin.H{"success": true, "commandId": id})
}

// Status returns the queue's pollable snapshot.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Status())
}

// MetricsSummary returns headline metrics as JSON for dashboards that
// do not scrape Prometheus.
func (h *Handlers) MetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
