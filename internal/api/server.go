package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"datafeed/internal/config"
	"datafeed/internal/failover"
	"datafeed/internal/logger"
	"datafeed/internal/monitoring"
)

// Server exposes the failover engine over HTTP for the dashboard and
// monitoring collaborators.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	log        logger.Logger
}

// NewServer creates the API server around an engine.
func NewServer(cfg *config.Config, engine *failover.Engine, metrics *monitoring.Metrics, log logger.Logger) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.Global()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware(cfg.CORS))
	router.Use(metrics.Middleware())
	if cfg.RateLimit.Enabled {
		router.Use(rateLimitMiddleware(cfg.RateLimit))
	}

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: NewHandlers(engine, log),
		log:      log,
	}
	s.registerRoutes(metrics)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes(metrics *monitoring.Metrics) {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/data", s.handlers.GetData)
		v1.GET("/providers/status", s.handlers.ProviderStatus)
		v1.POST("/providers/health-check", s.handlers.HealthCheckAll)
		v1.PUT("/providers/:name/enabled", s.handlers.SetProviderEnabled)
	}
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.log.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
