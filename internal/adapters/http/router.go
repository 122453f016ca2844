package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/observability/metrics"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router serves liveness, readiness and Prometheus metrics.
type Router struct {
	backend Pinger
	metrics *metrics.BotMetrics
}

func NewRouter(backend Pinger, botMetrics *metrics.BotMetrics) *Router {
	return &Router{backend: backend, metrics: botMetrics}
}

func (rt *Router) Handler() http.Handler {
	engine := gin.New()
	engine.Use(requestIDMiddleware(), recoveryMiddleware(), accessLogMiddleware())
	if rt.metrics != nil {
		engine.Use(rt.metrics.GinMiddleware())
		engine.GET("/metrics", gin.WrapH(rt.metrics.Handler()))
	}

	engine.GET("/healthz", rt.healthz)
	engine.GET("/readyz", rt.readyz)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

func (rt *Router) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rt *Router) readyz(c *gin.Context) {
	if rt.backend == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()
	if err := rt.backend.Ping(ctx); err != nil {
		slog.Warn("readiness_check_failed", "request_id", requestIDFromContext(c.Request.Context()), "error", err)
		c.JSON(mapErrorToHTTPStatus(err), gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrTransport), domain.IsKind(err, domain.ErrBackend),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Server runs the router until the context is cancelled.
type Server struct {
	srv *http.Server
}

func NewServer(port string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_started", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen %s: %w", s.srv.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
