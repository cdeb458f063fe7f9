// Package api exposes the chat, notification and analytics endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadflow/internal/analytics"
	"github.com/leadflow/internal/notify"
	"github.com/leadflow/internal/pipeline"
)

// Server represents the API server
type Server struct {
	echo *echo.Echo
	host string
	port int
}

// NewServer creates a new API server
func NewServer(host string, port int, p *pipeline.Pipeline, d *notify.Dispatcher,
	recorder *analytics.Recorder, experiments *analytics.Engine) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		host: host,
		port: port,
	}

	server.setupRoutes(p, d, recorder, experiments)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(p *pipeline.Pipeline, d *notify.Dispatcher,
	recorder *analytics.Recorder, experiments *analytics.Engine) {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	chat := &chatHandler{pipeline: p}
	v1.POST("/chat/messages", chat.postMessage)

	notifications := &notificationHandler{dispatcher: d}
	v1.POST("/notifications/:id/response", notifications.markResponded)

	stats := &analyticsHandler{recorder: recorder, experiments: experiments}
	v1.GET("/analytics/summary", stats.summary)
	v1.GET("/analytics/sessions/:id/timeline", stats.timeline)
	v1.GET("/analytics/experiments", stats.experimentsList)
}

// Start begins the API server and blocks until an interrupt arrives or the
// given context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

// Handler exposes the underlying http.Handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
