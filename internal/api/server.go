// Package api exposes the assessment engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/assessment-engine/internal/models"
	"github.com/mindwell-health/assessment-engine/internal/session"
)

// SessionService is the surface of the session layer the API needs.
type SessionService interface {
	Start(ctx context.Context, concern string, demographics map[string]any) (session.View, error)
	Continue(ctx context.Context, sessionID, answer string) (session.View, error)
	Results(ctx context.Context, sessionID string) (session.View, error)
	RecordStageResult(ctx context.Context, sessionID, stageID string, result models.StageResult) error
}

// Server wraps the gin router around the session service.
type Server struct {
	sessions SessionService
	logger   *slog.Logger
	router   *gin.Engine
}

// NewServer builds the HTTP surface.
func NewServer(sessions SessionService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		sessions: sessions,
		logger:   logger,
		router:   gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the router for mounting or testing.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/v1")
	v1.POST("/assessments", s.startAssessment)
	v1.POST("/assessments/:id/messages", s.continueAssessment)
	v1.PUT("/assessments/:id/stages/:stage", s.recordStage)
	v1.GET("/assessments/:id/results", s.results)
}

type startRequest struct {
	Concern      string         `json:"concern" binding:"required"`
	Demographics map[string]any `json:"demographics"`
}

func (s *Server) startAssessment(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "concern is required"})
		return
	}

	view, err := s.sessions.Start(c.Request.Context(), req.Concern, req.Demographics)
	if err != nil {
		s.logger.Error("start assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start assessment"})
		return
	}
	c.JSON(http.StatusCreated, view)
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) continueAssessment(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	view, err := s.sessions.Continue(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown assessment"})
			return
		}
		s.logger.Error("continue assessment failed", "session", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process message"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) recordStage(c *gin.Context) {
	var result models.StageResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage payload"})
		return
	}

	if err := s.sessions.RecordStageResult(c.Request.Context(), c.Param("id"), c.Param("stage"), result); err != nil {
		s.logger.Error("record stage failed", "session", c.Param("id"), "stage", c.Param("stage"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record stage result"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) results(c *gin.Context) {
	view, err := s.sessions.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown assessment"})
			return
		}
		s.logger.Error("fetch results failed", "session", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch results"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string, gracefulTimeout time.Duration) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
