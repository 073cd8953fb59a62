// Package httpapi serves the latest monitor view as JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shini4i/netchoo/internal/monitor"
	"github.com/shini4i/netchoo/internal/scheduler"
)

// Health states reported by GET /health.
const (
	StatusStarting = "starting"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. "127.0.0.1:9100".
	Addr string
}

// Health is the body of GET /health.
type Health struct {
	Status              string     `json:"status"`
	RunID               uuid.UUID  `json:"run_id"`
	Seq                 uint64     `json:"seq"`
	// LastUpdate is nil until the first successful tick.
	LastUpdate          *time.Time `json:"last_update,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// Server holds the last published notification and serves it.
type Server struct {
	opts   Options
	engine *gin.Engine

	mu     sync.RWMutex
	view   *monitor.View
	health Health
}

// New builds the router. Call Run to listen, or mount Handler elsewhere.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		health: Health{Status: StatusStarting},
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/health", s.getHealth)
	api := r.Group("/api")
	api.GET("/interfaces", s.listInterfaces)
	api.GET("/interfaces/:name", s.getInterface)
	s.engine = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Publish records a notification. It is safe to use as a scheduler callback.
func (s *Server) Publish(n scheduler.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.RunID = n.RunID
	s.health.Seq = n.Seq
	s.health.ConsecutiveFailures = n.ConsecutiveFailures
	if n.Failed() {
		s.health.Status = StatusDegraded
		s.health.LastError = n.Err.Error()
		return
	}
	s.health.Status = StatusOK
	s.health.LastError = ""
	updated := n.Time
	s.health.LastUpdate = &updated
	s.view = n.View
}

// Run listens on Options.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP API: %w", err)
	}
	slog.Info("HTTP API stopped")
	return nil
}

func (s *Server) snapshot() (*monitor.View, Health) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.health
}

func (s *Server) getHealth(c *gin.Context) {
	_, h := s.snapshot()
	code := http.StatusOK
	if h.Status == StatusStarting {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func (s *Server) listInterfaces(c *gin.Context) {
	view, h := s.snapshot()
	if view == nil {
		errorJSON(c, http.StatusServiceUnavailable, noDataMessage(h))
		return
	}

	out := make([]monitor.InterfaceView, 0, len(view.Interfaces))
	for _, name := range view.Names() {
		out = append(out, view.Interfaces[name])
	}
	c.JSON(http.StatusOK, gin.H{
		"time":       view.Time,
		"seq":        h.Seq,
		"interfaces": out,
	})
}

func (s *Server) getInterface(c *gin.Context) {
	view, h := s.snapshot()
	if view == nil {
		errorJSON(c, http.StatusServiceUnavailable, noDataMessage(h))
		return
	}

	name := c.Param("name")
	iv, ok := view.Get(name)
	if !ok {
		errorJSON(c, http.StatusNotFound, fmt.Sprintf("interface %q not found", name))
		return
	}
	c.JSON(http.StatusOK, iv)
}

func noDataMessage(h Health) string {
	if h.LastError != "" {
		return "no sample yet: " + h.LastError
	}
	return "no sample yet"
}

func errorJSON(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// requestLogger logs each request through slog at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP())
	}
}
