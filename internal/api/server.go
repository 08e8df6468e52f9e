package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ariastack/aria-engine/internal/config"
	"github.com/ariastack/aria-engine/internal/services"
)

// Server wraps the HTTP listener and route wiring.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
}

// NewServer constructs the HTTP server with all routes registered.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, service *services.InvestigationService) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control"}
	router.Use(cors.New(corsConfig))

	h := newHandlers(logger, service)
	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/incidents/demo-alert", h.demoAlert)
	router.POST("/incidents/investigate", h.investigate)

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the route tree (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves incoming requests until Shutdown is invoked.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the provided context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	if s.cfg.GracefulTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.GracefulTimeout
}
