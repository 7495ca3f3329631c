package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/monitoring"
	"github.com/rabbitize/rabbitize/internal/queue"
)

const statusInterval = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard runs cross-origin in dev
	},
}

// Handler manages status-stream WebSocket connections.
type Handler struct {
	queue   *queue.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a WebSocket handler over the command queue.
func NewHandler(q *queue.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		queue:   q,
		metrics: metrics,
		log:     log.Named("ws"),
	}
}

// statusMessage is one frame on the stream.
type statusMessage struct {
	Type    string               `json:"type"`
	Status  queue.StatusSnapshot `json:"status"`
	Metrics monitoring.Snapshot  `json:"metrics"`
}

// HandleConnection upgrades the request and pushes status snapshots
// until the client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()

	// Drain reads so we notice the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg := statusMessage{
				Type:    "status",
				Status:  h.queue.Status(),
				Metrics: h.metrics.GetSnapshot(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
