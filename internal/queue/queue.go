package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/monitoring"
)

// Completed items retained for status readers; oldest evicted first.
const maxHistory = 50

// Queue phases visible through Status.
const (
	PhaseIdle      = "idle"
	PhaseExecuting = "executing"
	PhaseEnding    = "ending"
	PhaseEnded     = "ended"
)

// Session is the queue's view of the active browser session. The queue
// never constructs or destroys sessions; it only delegates to the one
// currently bound.
type Session interface {
	ExecuteCommand(ctx context.Context, command []string) *ExecutionResult
	End(ctx context.Context) error
	QuickEnd(ctx context.Context) error
	ClientID() string
	TestID() string
	CurrentURL() string
}

// Manager is an explicitly constructed, passed-by-reference command
// queue with a documented lifecycle: create, SetSession,
// StartProcessing, drain, stop. One consumer goroutine serializes all
// command execution.
type Manager struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu           sync.Mutex
	pending      []*Item
	history      *history
	session      Session
	sessionStart time.Time
	lastURL      string
	enabled      bool
	processing   bool
	phase        string
	loopRunning  bool

	wake chan struct{}
}

// NewManager creates an empty queue. Metrics may be nil.
func NewManager(log *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		log:     log.Named("queue"),
		metrics: metrics,
		history: newHistory(maxHistory),
		phase:   PhaseIdle,
		wake:    make(chan struct{}, 1),
	}
}

// SetSession binds the active session and records its start time. The
// reference is non-owning; End/QuickEnd are only ever called through
// queue items.
func (m *Manager) SetSession(s Session) {
	m.mu.Lock()
	m.session = s
	m.sessionStart = time.Now()
	m.phase = PhaseIdle
	m.mu.Unlock()

	m.metrics.SessionStarted()
	m.log.Info("session bound",
		zap.String("client_id", s.ClientID()),
		zap.String("test_id", s.TestID()))
}

// EnqueueExecute appends an execute item and returns its command id.
// Items are accepted before processing is enabled; they stay queued
// until StartProcessing.
func (m *Manager) EnqueueExecute(command []string) string {
	return m.enqueue(&Item{
		ID:       uuid.NewString(),
		Type:     TypeExecute,
		Command:  command,
		Status:   StatusQueued,
		QueuedAt: time.Now(),
	})
}

// EnqueueEnd appends an end item. quickCleanup selects the abbreviated
// teardown path.
func (m *Manager) EnqueueEnd(quickCleanup bool) string {
	return m.enqueue(&Item{
		ID:           uuid.NewString(),
		Type:         TypeEnd,
		QuickCleanup: quickCleanup,
		Status:       StatusQueued,
		QueuedAt:     time.Now(),
	})
}

func (m *Manager) enqueue(it *Item) string {
	m.mu.Lock()
	m.pending = append(m.pending, it)
	depth := len(m.pending)
	m.mu.Unlock()

	m.metrics.SetQueueDepth(depth)
	m.log.Debug("command enqueued",
		zap.String("id", it.ID),
		zap.String("type", string(it.Type)),
		zap.Int("depth", depth))

	m.signal()
	return it.ID
}

// StartProcessing enables consumption and launches the consumer loop if
// it is not already running.
func (m *Manager) StartProcessing(ctx context.Context) {
	m.mu.Lock()
	m.enabled = true
	launch := !m.loopRunning
	if launch {
		m.loopRunning = true
	}
	m.mu.Unlock()

	if launch {
		go m.loop(ctx)
	}
	m.signal()
}

// StopProcessing halts consumption. Already-queued items remain queued
// until processing is re-enabled.
func (m *Manager) StopProcessing() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
}

// Active reports whether a session is currently bound.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Enabled reports whether the queue is currently consuming.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// LastURL returns the final URL of the most recently ended session,
// kept for potential reuse by the next one.
func (m *Manager) LastURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURL
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.loopRunning = false
			m.mu.Unlock()
			return
		case <-m.wake:
			m.drain(ctx)
		}
	}
}

// drain consumes items until the queue empties or processing is
// disabled. Strict FIFO, one item at a time.
func (m *Manager) drain(ctx context.Context) {
	for {
		m.mu.Lock()
		if !m.enabled || len(m.pending) == 0 {
			depth := len(m.pending)
			m.mu.Unlock()
			m.metrics.SetQueueDepth(depth)
			return
		}
		it := m.pending[0]
		m.pending = m.pending[1:]
		it.Status = StatusProcessing
		m.processing = true
		if it.Type == TypeEnd {
			m.phase = PhaseEnding
		} else {
			m.phase = PhaseExecuting
		}
		sess := m.session
		depth := len(m.pending)
		m.mu.Unlock()

		m.metrics.SetQueueDepth(depth)

		start := time.Now()
		switch it.Type {
		case TypeExecute:
			m.processExecute(ctx, it, sess)
		case TypeEnd:
			m.processEnd(ctx, it, sess)
		}
		m.metrics.RecordCommand(string(it.Type), string(it.Status), time.Since(start))
	}
}

// processExecute delegates to the session and records the full result.
// Command failure is recorded, never propagated: the queue keeps going.
func (m *Manager) processExecute(ctx context.Context, it *Item, sess Session) {
	var res *ExecutionResult
	if sess == nil {
		res = &ExecutionResult{Error: "no active session"}
	} else {
		res = sess.ExecuteCommand(ctx, it.Command)
		if res == nil {
			res = &ExecutionResult{Error: "session returned no result"}
		}
	}

	now := time.Now()

	m.mu.Lock()
	it.Result = res
	it.CompletedAt = &now
	if res.Success {
		it.Status = StatusCompleted
	} else {
		it.Status = StatusFailed
	}
	m.history.push(*it)
	m.processing = false
	m.phase = PhaseIdle
	m.mu.Unlock()

	if !res.Success {
		m.log.Warn("command failed, queue continues",
			zap.String("id", it.ID),
			zap.Strings("command", it.Command),
			zap.String("error", res.Error))
	}
}

// processEnd terminates the session, unbinds it, disables processing,
// and remembers the session's last URL.
func (m *Manager) processEnd(ctx context.Context, it *Item, sess Session) {
	var err error
	if sess != nil {
		if it.QuickCleanup {
			err = sess.QuickEnd(ctx)
		} else {
			err = sess.End(ctx)
		}
	}

	now := time.Now()

	m.mu.Lock()
	if sess != nil {
		m.lastURL = sess.CurrentURL()
	}
	m.session = nil
	m.enabled = false
	m.processing = false
	m.phase = PhaseEnded
	it.CompletedAt = &now
	if err != nil {
		it.Status = StatusFailed
		it.Result = &ExecutionResult{Error: err.Error()}
	} else {
		it.Status = StatusCompleted
		it.Result = &ExecutionResult{Success: true}
	}
	m.history.push(*it)
	m.mu.Unlock()

	if sess != nil {
		m.metrics.SessionEnded()
	}
	m.log.Info("session ended",
		zap.Bool("quick_cleanup", it.QuickCleanup),
		zap.Error(err))
}

// CurrentState is the live half of a status snapshot.
type CurrentState struct {
	IsProcessing   bool       `json:"isProcessing"`
	QueueLength    int        `json:"queueLength"`
	Phase          string     `json:"phase"`
	ClientID       string     `json:"clientId,omitempty"`
	TestID         string     `json:"testId,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	SecondsRunning float64    `json:"secondsRunning"`
}

// StatusSnapshot is the JSON-serializable view polled by dashboards.
type StatusSnapshot struct {
	CurrentState      CurrentState `json:"currentState"`
	Queued            []Item       `json:"queued"`
	RecentlyCompleted []Item       `json:"recentlyCompleted"`
}

// Status returns a point-in-time snapshot. Pure read; safe to poll at
// high frequency.
func (m *Manager) Status() StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := CurrentState{
		IsProcessing: m.processing,
		QueueLength:  len(m.pending),
		Phase:        m.phase,
	}
	if m.session != nil {
		cs.ClientID = m.session.ClientID()
		cs.TestID = m.session.TestID()
		started := m.sessionStart
		cs.StartedAt = &started
		cs.SecondsRunning = time.Since(m.sessionStart).Seconds()
	}

	queued := make([]Item, len(m.pending))
	for i, it := range m.pending {
		queued[i] = *it
	}

	return StatusSnapshot{
		CurrentState:      cs,
		Queued:            queued,
		RecentlyCompleted: m.history.list(),
	}
}
