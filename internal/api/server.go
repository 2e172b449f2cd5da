// Package api exposes the document portal over HTTP: session lifecycle,
// document upload, index construction, question answering, version
// comparison and metadata analysis. The handlers are a thin collaborator;
// all semantics live in the session manager and the use cases.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docport/config"
	"docport/internal/domain"
	"docport/internal/logger"
	"docport/internal/port"
	"docport/internal/session"
	"docport/internal/usecase"
)

type Server struct {
	cfg       *config.Config
	sessions  *session.Manager
	extractor port.Extractor
	query     *usecase.QueryUseCase
	comparer  *usecase.CompareUseCase
	analyzer  *usecase.AnalyzeUseCase
}

func New(cfg *config.Config, sessions *session.Manager, extractor port.Extractor,
	query *usecase.QueryUseCase, comparer *usecase.CompareUseCase, analyzer *usecase.AnalyzeUseCase) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		extractor: extractor,
		query:     query,
		comparer:  comparer,
		analyzer:  analyzer,
	}
}

// Router assembles the echo instance with middleware and all routes.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if s.cfg.Server.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.Server.MaxUploadMB)))
	}
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/health", s.health)
	e.POST("/sessions", s.createSession)
	e.DELETE("/sessions/:id", s.destroySession)
	e.POST("/sessions/:id/documents", s.uploadDocument)
	e.POST("/sessions/:id/index", s.buildIndex)
	e.POST("/sessions/:id/ask", s.ask)
	e.POST("/sessions/:id/compare", s.compareVersions)
	e.POST("/sessions/:id/analyze", s.analyze)

	return e
}

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logger.Info("http server listening on %s", addr)
	return s.Router().Start(addr)
}

// errorHandler renders every failure as a JSON payload carrying the
// correlation fields from domain.Error, with a status derived from the
// error taxonomy.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		code = statusFor(err)
	}

	payload := map[string]any{"error": msg}
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Session != "" {
			payload["session_id"] = de.Session
		}
		if de.Workflow != "" {
			payload["workflow"] = string(de.Workflow)
		}
		if de.Checksum != "" {
			payload["document"] = de.Checksum
		}
	}

	if code >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if err := c.JSON(code, payload); err != nil {
		logger.Error("write error response: %v", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDocument), errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoContext):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
