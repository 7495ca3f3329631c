package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Command queue metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration prometheus.Histogram
	QueueDepth      prometheus.Gauge

	// Stability metrics
	StabilityWaits        *prometheus.CounterVec
	StabilityWaitDuration prometheus.Histogram
	FramesCaptured        prometheus.Counter
	CaptureFailures       prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time

	// Snapshot for JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds headline metric values for the JSON status API.
type Snapshot struct {
	TotalRequests    int64   `json:"totalRequests"`
	CommandsExecuted int64   `json:"commandsExecuted"`
	CommandsFailed   int64   `json:"commandsFailed"`
	FramesCaptured   int64   `json:"framesCaptured"`
	StabilityWaits   int64   `json:"stabilityWaits"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// NewMetrics creates a metrics collector registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runner_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runner_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runner_commands_total",
				Help: "Total automation commands processed by the queue",
			},
			[]string{"type", "status"},
		),
		CommandDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runner_command_duration_seconds",
				Help:    "End-to-end command execution duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_queue_depth",
				Help: "Commands currently waiting in the queue",
			},
		),

		StabilityWaits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runner_stability_waits_total",
				Help: "Stability waits by outcome (stable, timeout, stalled, stopped)",
			},
			[]string{"outcome"},
		),
		StabilityWaitDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "runner_stability_wait_duration_seconds",
				Help:    "Time spent waiting for the page to settle",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		FramesCaptured: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_frames_captured_total",
				Help: "Frames captured for stability detection",
			},
		),
		CaptureFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_capture_failures_total",
				Help: "Screenshot capture failures (retried, never fatal)",
			},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_sessions_active",
				Help: "Browser sessions currently bound to the queue",
			},
		),
		SessionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_sessions_total",
				Help: "Browser sessions started since boot",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_ws_connections",
				Help: "Open status-stream WebSocket connections",
			},
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// RecordCommand records one processed queue item.
func (m *Metrics) RecordCommand(itemType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(itemType, status).Inc()
	m.CommandDuration.Observe(duration.Seconds())

	m.mu.Lock()
	if status == "completed" {
		m.snapshot.CommandsExecuted++
	} else {
		m.snapshot.CommandsFailed++
	}
	m.mu.Unlock()
}

// SetQueueDepth updates the pending-item gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// RecordStabilityWait records one wait and its outcome.
func (m *Metrics) RecordStabilityWait(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StabilityWaits.WithLabelValues(outcome).Inc()
	m.StabilityWaitDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.StabilityWaits++
	m.mu.Unlock()
}

// RecordFrameCaptured counts one successfully processed frame.
func (m *Metrics) RecordFrameCaptured() {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()

	m.mu.Lock()
	m.snapshot.FramesCaptured++
	m.mu.Unlock()
}

// RecordCaptureFailure counts one failed screenshot attempt.
func (m *Metrics) RecordCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// SessionStarted marks a session bind.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

// SessionEnded marks a session unbind.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// WSConnected and WSDisconnected track the status stream gauge.
func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// GetSnapshot returns current headline values for the JSON API.
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
