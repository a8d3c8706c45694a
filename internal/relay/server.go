// Package relay is the local HTTP relay: it forwards AI and platform API
// calls to an allow-list of upstream hosts and streams task updates over
// WebSocket.
package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/SuLition/CatParse/internal/config"
)

// Server is the relay HTTP server
type Server struct {
	engine   *gin.Engine
	srv      *http.Server
	hub      *Hub
	upstream *http.Client
	allowed  map[string]bool
	timeout  time.Duration
	started  time.Time
	logger   *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithUpstreamClient replaces the client used for forwarded calls
func WithUpstreamClient(c *http.Client) Option { return func(s *Server) { s.upstream = c } }

// NewServer builds the relay for cfg, streaming snapshots from source
func NewServer(cfg config.RelaySettings, source TaskSource, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("relay")

	s := &Server{
		upstream: &http.Client{Timeout: cfg.GetTimeout()},
		allowed:  make(map[string]bool, len(cfg.AllowedHosts)),
		timeout:  cfg.GetTimeout(),
		started:  time.Now(),
		logger:   logger,
	}
	for _, h := range cfg.AllowedHosts {
		s.allowed[strings.ToLower(h)] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(source, logger.Named("ws"))

	engine := gin.New()
	engine.Use(Logger(logger), Recovery(logger))

	engine.GET("/health", s.handleHealth)
	engine.GET("/ws/tasks", s.hub.Handle)
	engine.POST("/proxy/:provider", RateLimit(rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)), s.handleProxy)
	s.engine = engine

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves until Shutdown; it returns http.ErrServerClosed after a clean shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown disconnects WebSocket clients and stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}

// HealthResponse is the /health reply
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     int64  `json:"uptime"`
	WebSockets int    `json:"websocket_connections"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Uptime:     int64(time.Since(s.started).Seconds()),
		WebSockets: s.hub.Count(),
	})
}
