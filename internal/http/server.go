// Package http provides the HTTP API for extractd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/doccache"
	"github.com/arborfin/extractd/internal/document"
	"github.com/arborfin/extractd/internal/extraction"
	"github.com/arborfin/extractd/internal/gstr"
)

// Server exposes the extraction engine over HTTP.
type Server struct {
	echo   *echo.Echo
	engine *extraction.Engine
	cache  *doccache.Cache
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server. The cache is optional.
func NewServer(engine *extraction.Engine, cache *doccache.Cache, logger *zap.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8750}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		engine: engine,
		cache:  cache,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/extract", s.handleExtract)
	v1.POST("/gstr/extract", s.handleGSTRExtract)
	v1.GET("/cache/stats", s.handleCacheStats)
	v1.DELETE("/cache", s.handleCacheClear)
}

// ExtractRequest is the request body for POST /api/v1/extract.
type ExtractRequest struct {
	Document     *document.Parsed `json:"document"`
	ParameterIDs []string         `json:"parameter_ids,omitempty"`
}

// ExtractResponse is the response body for POST /api/v1/extract.
type ExtractResponse struct {
	RunID             string                       `json:"run_id"`
	DocumentHash      string                       `json:"document_hash"`
	Results           map[string]extraction.Result `json:"results"`
	OverallConfidence float64                      `json:"overall_confidence"`
	DurationMS        int64                        `json:"duration_ms"`
}

// GSTRExtractRequest is the request body for POST /api/v1/gstr/extract.
type GSTRExtractRequest struct {
	Document *document.Parsed `json:"document"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid extract request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Document == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document field is required")
	}

	doc := s.resolveDocument(req.Document)

	resp, err := s.engine.Extract(c.Request().Context(), doc, req.ParameterIDs)
	if err != nil {
		if errors.Is(err, extraction.ErrNoParameters) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("extraction failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "extraction failed")
	}

	return c.JSON(http.StatusOK, ExtractResponse{
		RunID:             resp.RunID,
		DocumentHash:      resp.DocumentHash,
		Results:           resp.Results,
		OverallConfidence: resp.OverallConfidence,
		DurationMS:        resp.Duration.Milliseconds(),
	})
}

func (s *Server) handleGSTRExtract(c echo.Context) error {
	var req GSTRExtractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Document == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document field is required")
	}

	doc := s.resolveDocument(req.Document)
	return c.JSON(http.StatusOK, gstr.Extract(doc, s.logger))
}

func (s *Server) handleCacheStats(c echo.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return c.JSON(http.StatusOK, doccache.Stats{})
	}
	return c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(c echo.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return c.NoContent(http.StatusNoContent)
	}
	if err := s.cache.Clear(); err != nil {
		s.logger.Error("cache clear failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "cache clear failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// resolveDocument serves a previously cached copy of the same content
// when available and records new documents for later runs.
func (s *Server) resolveDocument(doc *document.Parsed) *document.Parsed {
	if s.cache == nil || !s.cache.Enabled() {
		return doc
	}
	hash := doc.Hash()
	if cached, ok := s.cache.Get(hash); ok {
		return cached
	}
	if err := s.cache.Put(doc); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
	return doc
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
