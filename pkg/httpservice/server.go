package httpservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
	"github.com/yourorg/ctk-wopi/pkg/middleware"
)

// Server wraps a Gin server with configuration and middleware.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	port       int
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Logger       logging.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodySize    int64 // bytes, 0 disables the limit

	SlowRequestThreshold time.Duration
	Telemetry            middleware.TelemetryRecorder

	// Middleware runs after the request-scoped logger is attached.
	Middleware []gin.HandlerFunc
}

// Handler defines an interface for registering HTTP handlers.
type Handler interface {
	Register(router *gin.Engine)
}

// NewServer creates a new HTTP server with the provided configuration and handlers.
func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	gin.SetMode(gin.ReleaseMode)

	router := NewRouter(cfg, handlers...)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		logger:     cfg.Logger,
		port:       cfg.Port,
	}, nil
}

// NewRouter builds the gin engine with the full middleware chain and the
// given handlers registered. It adds no routes of its own, so every endpoint
// goes through a handler's access gate. cfg.Logger must be set.
func NewRouter(cfg ServerConfig, handlers ...Handler) *gin.Engine {
	router := gin.New()

	router.Use(RecoveryMiddleware(cfg.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.Logger))
	router.Use(middleware.ContextLoggerMiddleware(cfg.Logger))
	router.Use(cfg.Middleware...)
	router.Use(LoggingMiddleware(cfg.Logger))
	router.Use(middleware.SlowRequestMiddleware(cfg.SlowRequestThreshold, cfg.Telemetry, cfg.Logger))

	if cfg.MaxBodySize > 0 {
		router.Use(RequestSizeLimitMiddleware(cfg.MaxBodySize, cfg.Logger))
	}

	router.Use(SecurityHeadersMiddleware())

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		}))
	}

	router.Use(middleware.ErrorHandlerMiddleware())

	for _, handler := range handlers {
		handler.Register(router)
	}

	return router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.NewField("port", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}
