package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/preview"
	"github.com/ppiankov/instaweb/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// sessionTTL drops a preview session after this much inactivity
const sessionTTL = 30 * time.Minute

// maxBodyBytes caps request bodies
const maxBodyBytes = "256K"

// Deps are the collaborators served over HTTP
type Deps struct {
	// Extractor backs POST /extract and session turns; nil means no credentials
	Extractor extract.Extractor
	Local     *extract.LocalExtractor
	Previews  *preview.Orchestrator
	Logger    *zap.Logger
}

// Server is the HTTP endpoint
type Server struct {
	echo      *echo.Echo
	cfg       model.ServerConfig
	extractor extract.Extractor
	local     *extract.LocalExtractor
	previews  *preview.Orchestrator
	sessions  *gocache.Cache
	logger    *zap.Logger
}

// New builds the server and registers its routes
func New(cfg model.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	local := deps.Local
	if local == nil {
		local = extract.NewLocalExtractor()
	}

	s := &Server{
		echo:      echo.New(),
		cfg:       cfg,
		extractor: deps.Extractor,
		local:     local,
		previews:  deps.Previews,
		sessions:  gocache.New(sessionTTL, sessionTTL/2),
		logger:    logger,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(RequestID())
	s.echo.Use(AccessLog(logger))
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.BodyLimit(maxBodyBytes))

	var limiter *worker.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = NewClientLimiter(cfg)
	}
	s.routes(RateLimit(limiter))

	return s
}

// NewClientLimiter creates the per-client limiter for the extraction routes
func NewClientLimiter(cfg model.ServerConfig) *worker.Limiter {
	return worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
}

func (s *Server) routes(limit echo.MiddlewareFunc) {
	e := s.echo

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/extract", s.handleExtract, limit)
	e.POST("/extract/local", s.handleExtractLocal, limit)

	e.POST("/preview", s.handlePreview)
	e.DELETE("/preview/cache", s.handleInvalidateTemplate)

	sessions := e.Group("/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.GET("/:id", s.handleSessionState)
	sessions.PUT("/:id", s.handleSessionUpdate)
	sessions.PATCH("/:id", s.handleSessionMerge)
	sessions.DELETE("/:id", s.handleDeleteSession)
	sessions.POST("/:id/turns", s.handleSessionTurn, limit)
	sessions.POST("/:id/reset", s.handleSessionReset)
	sessions.GET("/:id/messages", s.handleSessionMessages)
	sessions.POST("/:id/messages", s.handleSessionResponse)
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.echo.Start(s.cfg.Addr)
	}()

	s.logger.Info("server started", zap.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
