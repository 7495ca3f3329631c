package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/artifacts"
	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/monitoring"
	"github.com/rabbitize/rabbitize/internal/notify"
	"github.com/rabbitize/rabbitize/internal/queue"
	"github.com/rabbitize/rabbitize/internal/stability"
)

// Driver abstracts the browser: command primitives, screenshot
// capture, and page inspection.
type Driver interface {
	Execute(ctx context.Context, command []string) (map[string]interface{}, error)
	Screenshot(ctx context.Context) ([]byte, error)
	DOM(ctx context.Context) (string, error)
	CurrentURL() string
	Close(ctx context.Context) error
}

// driverCapture adapts a Driver to the detector's capture contract.
type driverCapture struct {
	d Driver
}

func (c driverCapture) CaptureFrame(ctx context.Context) ([]byte, error) {
	return c.d.Screenshot(ctx)
}

// Options configures a new session.
type Options struct {
	ID        string
	ClientID  string
	TestID    string
	Driver    Driver
	Stability stability.Config
	Store     *artifacts.Store // optional
	Notifier  *notify.Webhook  // optional
	Log       *logging.Logger
	Metrics   *monitoring.Metrics
}

// Session is one live automation run. It satisfies the queue's Session
// interface.
type Session struct {
	id       string
	clientID string
	testID   string

	driver   Driver
	detector *stability.Detector
	store    *artifacts.Store
	notifier *notify.Webhook
	log      *logging.Logger
	metrics  *monitoring.Metrics

	mu           sync.Mutex
	commandIndex int
	startedAt    time.Time
	closed       bool
}

// New creates a session over the given driver.
func New(opts Options) *Session {
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("session").With(
		zap.String("session_id", opts.ID),
		zap.String("client_id", opts.ClientID),
		zap.String("test_id", opts.TestID))

	detector := stability.New(driverCapture{d: opts.Driver}, opts.Stability, log)
	detector.SetMetrics(opts.Metrics)

	return &Session{
		id:        opts.ID,
		clientID:  opts.ClientID,
		testID:    opts.TestID,
		driver:    opts.Driver,
		detector:  detector,
		store:     opts.Store,
		notifier:  opts.Notifier,
		log:       log,
		metrics:   opts.Metrics,
		startedAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ClientID returns the owning client identifier.
func (s *Session) ClientID() string { return s.clientID }

// TestID returns the test identifier within the client.
func (s *Session) TestID() string { return s.testID }

// CurrentURL returns the page's current URL.
func (s *Session) CurrentURL() string { return s.driver.CurrentURL() }

// Detector exposes the stability detector for status snapshots.
func (s *Session) Detector() *stability.Detector { return s.detector }

// ExecuteCommand runs one automation primitive, waits for the page to
// settle, and captures after-evidence. It never panics the queue: all
// failures come back in the result.
func (s *Session) ExecuteCommand(ctx context.Context, command []string) *queue.ExecutionResult {
	if len(command) == 0 {
		return &queue.ExecutionResult{Error: "empty command"}
	}

	s.mu.Lock()
	s.commandIndex++
	index := s.commandIndex
	s.mu.Unlock()

	log := s.log.With(zap.Int("command_index", index), zap.Strings("command", command))
	log.Info("executing command")

	state, err := s.driver.Execute(ctx, command)
	if err != nil {
		// The owning command failed: stop the detector so any
		// concurrent wait observes the abort.
		s.detector.Stop()
		log.Warn("command execution failed", zap.Error(err))
		return &queue.ExecutionResult{Error: err.Error(), State: state}
	}

	if werr := s.detector.WaitForStability(ctx); werr != nil {
		if errors.Is(werr, stability.ErrStopped) {
			return &queue.ExecutionResult{Error: "stability wait aborted: detector stopped", State: state}
		}
		// Structural failure (dimension mismatch, cancelled context).
		log.Warn("stability wait failed", zap.Error(werr))
		return &queue.ExecutionResult{Error: werr.Error(), State: state}
	}

	result := &queue.ExecutionResult{Success: true, State: state}
	result.Artifacts = s.captureEvidence(ctx, index, log)
	return result
}

// captureEvidence stores the after-screenshot and DOM snapshot.
// Evidence failures are logged but never fail the command.
func (s *Session) captureEvidence(ctx context.Context, index int, log *logging.Logger) map[string]string {
	if s.store == nil {
		return nil
	}
	out := map[string]string{}

	if shot, err := s.driver.Screenshot(ctx); err != nil {
		log.Warn("after-screenshot capture failed", zap.Error(err))
	} else if path, err := s.store.SaveScreenshot(index, shot); err != nil {
		log.Warn("screenshot save failed", zap.Error(err))
	} else {
		out["screenshot"] = path
	}

	if dom, err := s.driver.DOM(ctx); err != nil {
		log.Warn("dom extraction failed", zap.Error(err))
	} else if path, err := s.store.SaveDOM(index, dom); err != nil {
		log.Warn("dom save failed", zap.Error(err))
	} else {
		out["dom"] = path
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// End performs full teardown: stop the detector, capture a final
// screenshot, close the browser, and deliver the session summary.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	index := s.commandIndex
	started := s.startedAt
	s.mu.Unlock()

	s.detector.Stop()

	if s.store != nil {
		if shot, err := s.driver.Screenshot(ctx); err == nil {
			if _, err := s.store.SaveScreenshot(index+1, shot); err != nil {
				s.log.Warn("final screenshot save failed", zap.Error(err))
			}
		}
	}

	lastURL := s.driver.CurrentURL()
	closeErr := s.driver.Close(ctx)

	summary := notify.SessionSummary{
		SessionID:        s.id,
		ClientID:         s.clientID,
		TestID:           s.testID,
		StartedAt:        started,
		EndedAt:          time.Now(),
		CommandsExecuted: index,
		LastURL:          lastURL,
	}
	if s.store != nil {
		summary.ArtifactsDir = s.store.Dir()
	}
	if err := s.notifier.SessionEnded(ctx, summary); err != nil {
		s.log.Warn("session summary delivery failed", zap.Error(err))
	}

	s.log.Info("session ended", zap.Int("commands", index))
	return closeErr
}

// QuickEnd is the abbreviated teardown: no final evidence, no webhook.
func (s *Session) QuickEnd(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.detector.Stop()
	err := s.driver.Close(ctx)
	s.log.Info("session ended (quick cleanup)")
	return err
}
