package stability

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/frame"
	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/monitoring"
)

// ErrStopped is returned from WaitForStability when the detector is
// stopped externally mid-wait. It is the only blocking error in the
// stability path; every other failure mode degrades to success.
var ErrStopped = errors.New("stability detector stopped while waiting")

const (
	// Consecutive capture failures before the loop self-resets and
	// keeps going. Capture failures are never fatal to the run.
	maxConsecutiveFailures = 5

	// Stalled watchdog checks before a wait resolves fail-open.
	maxStalledChecks = 10

	// Bounded wait for an in-flight capture when settling or stopping.
	drainTimeout = time.Second

	maxBackoff = 10 * time.Second
)

// CaptureProvider produces raw screenshot bytes from the live page.
type CaptureProvider interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// Config tunes the detector. Zero values are replaced with defaults by
// WithDefaults.
type Config struct {
	// Enabled false disables detection entirely: every wait becomes an
	// instant no-op.
	Enabled bool

	// WaitTime is how long the page must hold still. FrameCount is
	// derived from WaitTime/Interval when not set explicitly.
	WaitTime time.Duration

	// Sensitivity in [0,1]; scaled internally to a per-pixel budget.
	Sensitivity float64

	// Timeout bounds a single wait. On expiry the wait resolves as
	// success (fail-open).
	Timeout time.Duration

	// Interval is the minimum spacing between captures and between
	// frame comparisons.
	Interval time.Duration

	// FrameCount is the number of consecutive unchanged comparisons
	// required to declare stability.
	FrameCount int

	// DownscaleWidth is the processed frame width in pixels.
	DownscaleWidth int
}

// WithDefaults fills unset fields with production defaults.
func (c Config) WithDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 250 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = 0.1
	}
	if c.DownscaleWidth <= 0 {
		c.DownscaleWidth = 320
	}
	if c.FrameCount <= 0 {
		if c.WaitTime > 0 {
			c.FrameCount = int(c.WaitTime / c.Interval)
		}
		if c.FrameCount < 2 {
			c.FrameCount = 4
		}
	}
	return c
}

// RunState is a point-in-time snapshot of the detector's counters,
// exposed for status endpoints and tests.
type RunState struct {
	Running             bool  `json:"running"`
	BufferedFrames      int   `json:"bufferedFrames"`
	StableFrames        int   `json:"stableFrames"`
	ConsecutiveFailures int   `json:"consecutiveFailures"`
	FramesTotal         int64 `json:"framesTotal"`
}

// Detector owns the capture loop and the stability evaluation.
//
// Two goroutines touch its state: the periodic capture loop and at most
// one WaitForStability caller. They communicate through the ring buffer
// and a small mutex-guarded counter block; the capturing flag prevents
// re-entrant overlap when a capture outlives its tick.
type Detector struct {
	cfg     Config
	capture CaptureProvider
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu           sync.Mutex
	running      bool
	ring         *frame.Ring
	stableFrames int
	failures     int
	capturing    bool
	lastCapture  time.Time
	lastCheck    time.Time
	nextAttempt  time.Time
	framesTotal  int64
	procErr      error

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a detector over the given capture provider.
func New(capture CaptureProvider, cfg Config, log *logging.Logger) *Detector {
	if log == nil {
		log = logging.NewNop()
	}
	return &Detector{
		cfg:     cfg.WithDefaults(),
		capture: capture,
		log:     log.Named("stability"),
	}
}

// SetMetrics attaches a metrics collector. Safe to leave unset.
func (d *Detector) SetMetrics(m *monitoring.Metrics) {
	d.metrics = m
}

// Start probes one frame to establish base dimensions and launches the
// periodic capture loop. Starting an already-running detector is a
// no-op. Capture failures during the probe are logged, not returned.
func (d *Detector) Start(ctx context.Context) error {
	if !d.cfg.Enabled {
		return nil
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.ring = frame.NewRing(d.cfg.FrameCount)
	d.stableFrames = 0
	d.failures = 0
	d.framesTotal = 0
	d.nextAttempt = time.Time{}
	d.procErr = nil
	d.mu.Unlock()

	if raw, err := d.capture.CaptureFrame(ctx); err != nil {
		d.log.Warn("initial capture failed", zap.Error(err))
	} else if f, perr := frame.Process(raw, d.cfg.DownscaleWidth); perr != nil {
		d.log.Warn("initial frame processing failed", zap.Error(perr))
	} else {
		d.mu.Lock()
		d.ring.Push(f)
		d.framesTotal++
		d.lastCapture = time.Now()
		d.mu.Unlock()
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	go d.captureLoop(loopCtx, done)

	d.log.Debug("detector started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("frame_count", d.cfg.FrameCount))
	return nil
}

// captureLoop ticks at max(100ms, interval/2) and attempts a capture on
// each tick, subject to the debounce and backoff gates.
func (d *Detector) captureLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	tick := d.cfg.Interval / 2
	if tick < 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.captureOnce(ctx)
		}
	}
}

// captureOnce performs a single gated capture attempt. The actual
// driver call happens outside the mutex; the capturing flag keeps a
// slow capture from overlapping the next tick.
func (d *Detector) captureOnce(ctx context.Context) {
	now := time.Now()

	d.mu.Lock()
	if !d.running || d.capturing ||
		now.Before(d.nextAttempt) ||
		now.Sub(d.lastCapture) < d.cfg.Interval {
		d.mu.Unlock()
		return
	}
	d.capturing = true
	d.mu.Unlock()

	raw, err := d.capture.CaptureFrame(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.capturing = false

	if !d.running {
		return
	}

	if err != nil {
		d.metrics.RecordCaptureFailure()
		d.failures++
		if d.failures >= maxConsecutiveFailures {
			// Self-reset and keep going; capture trouble never aborts
			// the automation run.
			d.log.Warn("capture failing repeatedly, resetting",
				zap.Int("failures", d.failures), zap.Error(err))
			d.failures = 0
			d.nextAttempt = time.Time{}
			return
		}
		backoff := time.Second << (d.failures - 1)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		d.nextAttempt = time.Now().Add(backoff)
		d.log.Debug("capture failed, backing off",
			zap.Int("failures", d.failures),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		return
	}

	f, perr := frame.Process(raw, d.cfg.DownscaleWidth)
	if perr != nil {
		// Structural error: surfaced to the waiting caller.
		d.procErr = perr
		return
	}

	d.ring.Push(f)
	d.framesTotal++
	d.lastCapture = time.Now()
	d.failures = 0
	d.nextAttempt = time.Time{}
	d.metrics.RecordFrameCaptured()
}

// WaitForStability blocks until the page is judged visually settled,
// the timeout elapses, or the stall watchdog fires; all of these
// return nil. It auto-starts the detector when needed. The only error
// returns are ErrStopped (external Stop mid-wait), a structural frame
// processing/comparison failure, and context cancellation.
func (d *Detector) WaitForStability(ctx context.Context) error {
	if !d.cfg.Enabled {
		return nil
	}
	if err := d.Start(ctx); err != nil {
		return err
	}

	poll := d.cfg.Interval / 2
	if poll > 100*time.Millisecond || poll <= 0 {
		poll = 100 * time.Millisecond
	}

	start := time.Now()
	stallWindow := 3 * d.cfg.Interval
	stalledChecks := 0

	d.mu.Lock()
	lastTotal := d.framesTotal
	d.mu.Unlock()
	lastGrowth := time.Now()

	for {
		d.mu.Lock()

		if !d.running {
			d.mu.Unlock()
			d.metrics.RecordStabilityWait("stopped", time.Since(start))
			return ErrStopped
		}
		if d.procErr != nil {
			err := d.procErr
			d.procErr = nil
			d.mu.Unlock()
			return err
		}

		// Primary check: compare the two most recent frames once at
		// least one interval has passed since the previous comparison.
		if d.ring.Len() >= 2 && time.Since(d.lastCheck) >= d.cfg.Interval {
			recent := d.ring.Recent(2)
			d.lastCheck = time.Now()

			diff, err := frame.Compare(recent[1], recent[0], d.cfg.Sensitivity)
			if err != nil {
				d.mu.Unlock()
				return err
			}
			if diff {
				d.stableFrames = 0
			} else {
				d.stableFrames++
			}

			if d.stableFrames >= d.cfg.FrameCount {
				d.mu.Unlock()
				d.settle()
				d.log.Debug("page stable",
					zap.Duration("elapsed", time.Since(start)))
				d.metrics.RecordStabilityWait("stable", time.Since(start))
				return nil
			}
		}

		// Hard timeout: advisory detection never blocks the pipeline.
		if time.Since(start) > d.cfg.Timeout {
			d.mu.Unlock()
			d.log.Warn("stability timeout reached, assuming stable",
				zap.Duration("timeout", d.cfg.Timeout))
			d.settle()
			d.metrics.RecordStabilityWait("timeout", time.Since(start))
			return nil
		}

		// Stall watchdog: no new frames arriving, independent of the
		// hard timeout.
		if d.framesTotal > lastTotal {
			lastTotal = d.framesTotal
			lastGrowth = time.Now()
			stalledChecks = 0
		} else if time.Since(lastGrowth) > stallWindow {
			stalledChecks++
			if stalledChecks >= maxStalledChecks {
				d.mu.Unlock()
				d.log.Warn("frame capture stalled, assuming stable",
					zap.Int64("frames_total", lastTotal))
				d.settle()
				d.metrics.RecordStabilityWait("stalled", time.Since(start))
				return nil
			}
		}

		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// settle drains any in-flight capture (bounded) and clears the buffer
// so the next wait starts from a clean slate.
func (d *Detector) settle() {
	deadline := time.Now().Add(drainTimeout)
	for {
		d.mu.Lock()
		if !d.capturing || time.Now().After(deadline) {
			d.ring.Clear()
			d.stableFrames = 0
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop halts the capture loop, waits briefly for an in-flight capture,
// clears the buffer, and resets all counters. A wait in flight observes
// the stop promptly and returns ErrStopped.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(drainTimeout):
		}
	}

	d.mu.Lock()
	if d.ring != nil {
		d.ring.Clear()
	}
	d.stableFrames = 0
	d.failures = 0
	d.nextAttempt = time.Time{}
	d.procErr = nil
	d.mu.Unlock()

	d.log.Debug("detector stopped")
}

// Running reports whether the capture loop is active.
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// State returns a snapshot of the detector's counters.
func (d *Detector) State() RunState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := RunState{
		Running:             d.running,
		StableFrames:        d.stableFrames,
		ConsecutiveFailures: d.failures,
		FramesTotal:         d.framesTotal,
	}
	if d.ring != nil {
		s.BufferedFrames = d.ring.Len()
	}
	return s
}

// BufferedFrames reports how many frames are currently held.
func (d *Detector) BufferedFrames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ring == nil {
		return 0
	}
	return d.ring.Len()
}
