package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabbitize/rabbitize/internal/artifacts"
	"github.com/rabbitize/rabbitize/internal/notify"
	"github.com/rabbitize/rabbitize/internal/stability"
)

type fakeDriver struct {
	mu       sync.Mutex
	executed [][]string
	execErr  error
	shot     []byte
	shotErr  error
	dom      string
	url      string
	closed   bool
}

func (d *fakeDriver) Execute(ctx context.Context, command []string) (map[string]interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, command)
	if d.execErr != nil {
		return nil, d.execErr
	}
	return map[string]interface{}{"url": d.url}, nil
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shot, d.shotErr
}

func (d *fakeDriver) DOM(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dom, nil
}

func (d *fakeDriver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDriver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func pngShot(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 9, G: 9, B: 9, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestSession(t *testing.T, d Driver, stab stability.Config) *Session {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), "c", "t", "sess-1", nil)
	require.NoError(t, err)
	return New(Options{
		ID:        "sess-1",
		ClientID:  "c",
		TestID:    "t",
		Driver:    d,
		Stability: stab,
		Store:     store,
	})
}

func TestExecuteCommandCapturesEvidence(t *testing.T) {
	d := &fakeDriver{
		shot: pngShot(t),
		dom:  "<html><body>ok</body></html>",
		url:  "https://example.com",
	}
	s := newTestSession(t, d, stability.Config{Enabled: false})

	res := s.ExecuteCommand(context.Background(), []string{":click"})

	require.True(t, res.Success, "error: %s", res.Error)
	assert.Equal(t, "https://example.com", res.State["url"])
	require.NotNil(t, res.Artifacts)
	assert.FileExists(t, res.Artifacts["screenshot"])
	assert.FileExists(t, res.Artifacts["dom"])
}

func TestExecuteCommandWaitsOutStability(t *testing.T) {
	d := &fakeDriver{shot: pngShot(t), url: "https://example.com"}
	s := newTestSession(t, d, stability.Config{
		Enabled:        true,
		Interval:       100 * time.Millisecond,
		FrameCount:     2,
		Timeout:        10 * time.Second,
		DownscaleWidth: 32,
	})
	defer s.Detector().Stop()

	res := s.ExecuteCommand(context.Background(), []string{":click"})
	require.True(t, res.Success, "error: %s", res.Error)
	assert.Equal(t, 0, s.Detector().BufferedFrames())
}

func TestExecuteCommandDriverFailureStopsDetector(t *testing.T) {
	d := &fakeDriver{
		shot:    pngShot(t),
		execErr: errors.New("click target vanished"),
	}
	s := newTestSession(t, d, stability.Config{
		Enabled:        true,
		Interval:       100 * time.Millisecond,
		FrameCount:     4,
		DownscaleWidth: 32,
	})

	// Bring the detector up so the failure path has something to stop.
	require.NoError(t, s.Detector().Start(context.Background()))

	res := s.ExecuteCommand(context.Background(), []string{":click"})
	assert.False(t, res.Success)
	assert.Equal(t, "click target vanished", res.Error)
	assert.False(t, s.Detector().Running())
}

func TestExecuteCommandRejectsEmptyCommand(t *testing.T) {
	s := newTestSession(t, &fakeDriver{}, stability.Config{Enabled: false})

	res := s.ExecuteCommand(context.Background(), nil)
	assert.False(t, res.Success)
	assert.Equal(t, "empty command", res.Error)
}

func TestEndDeliversSummaryAndClosesDriver(t *testing.T) {
	received := make(chan notify.SessionSummary, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s notify.SessionSummary
		if err := json.NewDecoder(r.Body).Decode(&s); err == nil {
			received <- s
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := &fakeDriver{shot: pngShot(t), dom: "<html></html>", url: "https://example.com/done"}
	store, err := artifacts.NewStore(t.TempDir(), "c", "t", "sess-1", nil)
	require.NoError(t, err)

	s := New(Options{
		ID:        "sess-1",
		ClientID:  "c",
		TestID:    "t",
		Driver:    d,
		Stability: stability.Config{Enabled: false},
		Store:     store,
		Notifier:  notify.NewWebhook(srv.URL, 1, nil),
	})

	s.ExecuteCommand(context.Background(), []string{":click"})
	require.NoError(t, s.End(context.Background()))

	assert.True(t, d.isClosed())

	select {
	case summary := <-received:
		assert.Equal(t, "sess-1", summary.SessionID)
		assert.Equal(t, 1, summary.CommandsExecuted)
		assert.Equal(t, "https://example.com/done", summary.LastURL)
	case <-time.After(2 * time.Second):
		t.Fatal("session summary never delivered")
	}

	// End is idempotent.
	require.NoError(t, s.End(context.Background()))
}

func TestQuickEndSkipsEvidenceAndWebhook(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := &fakeDriver{shot: pngShot(t)}
	s := New(Options{
		ID:        "sess-1",
		ClientID:  "c",
		TestID:    "t",
		Driver:    d,
		Stability: stability.Config{Enabled: false},
		Notifier:  notify.NewWebhook(srv.URL, 1, nil),
	})

	require.NoError(t, s.QuickEnd(context.Background()))
	assert.True(t, d.isClosed())
	assert.Zero(t, calls, "quick cleanup skips the webhook")
}
