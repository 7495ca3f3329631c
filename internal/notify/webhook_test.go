package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilWebhookIsNoOp(t *testing.T) {
	var w *Webhook
	assert.NoError(t, w.SessionEnded(context.Background(), SessionSummary{}))
	assert.Nil(t, NewWebhook("", 3, nil))
}

func TestSessionEndedDeliversSummary(t *testing.T) {
	var got SessionSummary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 1, nil)
	summary := SessionSummary{
		SessionID:        "sess-1",
		ClientID:         "client-1",
		TestID:           "test-1",
		StartedAt:        time.Now().Add(-time.Minute),
		EndedAt:          time.Now(),
		CommandsExecuted: 7,
		LastURL:          "https://example.com",
	}

	require.NoError(t, w.SessionEnded(context.Background(), summary))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 7, got.CommandsExecuted)
}

func TestSessionEndedRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 3, nil)
	require.NoError(t, w.SessionEnded(context.Background(), SessionSummary{SessionID: "sess-1"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSessionEndedReportsPermanentRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 2, nil)
	err := w.SessionEnded(context.Background(), SessionSummary{})
	assert.Error(t, err)
}
