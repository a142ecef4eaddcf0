// Package api exposes the registry over HTTP.
//
// All routes live under /api/v1 and answer with a Response envelope.
// Admin clients manage activation codes, devices and the global status;
// device clients redeem codes, send heartbeats and read or stream the
// global status.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/kioskfleet/internal/registry"
)

// Server serves the registry's HTTP API.
type Server struct {
	reg    *registry.Registry
	logger *slog.Logger
	engine *gin.Engine
}

// NewServer builds the router for reg.
func NewServer(reg *registry.Registry, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		reg:    reg,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.engine.Group("/api/v1")

	v1.GET("/health", s.health)

	activations := v1.Group("/activations")
	activations.POST("", s.createActivation)
	activations.GET("", s.listActivations)
	activations.GET("/:id", s.getActivation)
	activations.DELETE("/:id", s.revokeActivation)
	activations.POST("/redeem", s.redeem)

	devices := v1.Group("/devices")
	devices.GET("", s.listDevices)
	devices.GET("/:id", s.getDevice)
	devices.DELETE("/:id", s.deleteDevice)
	devices.PUT("/:id/active", s.setActive)
	devices.PUT("/:id/status", s.setStatus)
	devices.POST("/:id/heartbeat", s.heartbeat)

	v1.GET("/global-status", s.getGlobalStatus)
	v1.PUT("/global-status", s.setGlobalStatus)
	v1.GET("/global-status/stream", s.streamGlobalStatus)

	v1.GET("/fleet/summary", s.summary)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	success(c, http.StatusOK, gin.H{"status": "healthy"})
}
