package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rabbitize/rabbitize/internal/api"
	"github.com/rabbitize/rabbitize/internal/browser"
	"github.com/rabbitize/rabbitize/internal/config"
	"github.com/rabbitize/rabbitize/internal/logging"
	"github.com/rabbitize/rabbitize/internal/middleware"
	"github.com/rabbitize/rabbitize/internal/monitoring"
	"github.com/rabbitize/rabbitize/internal/queue"
	"github.com/rabbitize/rabbitize/internal/session"
	"github.com/rabbitize/rabbitize/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Server wires the queue, handlers, and HTTP stack together.
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	router  *gin.Engine
	http    *http.Server
	queue   *queue.Manager
	metrics *monitoring.Metrics
}

// NewServer builds a ready-to-run server from configuration.
func NewServer(cfg *config.Config, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewDefault()
	}

	metrics := monitoring.NewMetrics()
	q := queue.NewManager(log, metrics)

	newDriver := func() (session.Driver, error) {
		return browser.New(browser.Config{
			Headless:       cfg.Browser.Headless,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
			JPEGQuality:    cfg.Browser.JPEGQuality,
		}, log)
	}

	handlers := api.NewHandlers(cfg, q, metrics, log, newDriver)
	wsHandler := ws.NewHandler(q, metrics, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	router.Use(monitoring.Middleware(metrics))

	router.GET("/", handlers.Root)
	router.POST("/start", handlers.Start)
	router.POST("/execute", handlers.Execute)
	router.POST("/end", handlers.End)
	router.GET("/status", handlers.Status)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/summary", handlers.MetricsSummary)
	router.GET("/ws/status", wsHandler.HandleConnection)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg:     cfg,
		log:     log.Named("server"),
		router:  router,
		http:    &http.Server{Addr: addr, Handler: router},
		queue:   q,
		metrics: metrics,
	}
}

// Run serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then tears down any live browser
// session so Chromium does not outlive the process.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)

	if s.queue.Active() {
		s.queue.EnqueueEnd(true)
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for s.queue.Active() {
			select {
			case <-shutdownCtx.Done():
				return err
			case <-tick.C:
			}
		}
	}

	return err
}
