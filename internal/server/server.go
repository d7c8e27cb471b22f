// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the analysis pipeline and record store over HTTP.
// Callers identify themselves with the X-Owner-ID header; all record access
// is scoped to that owner.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pishield/pishield/internal/classify"
	"github.com/pishield/pishield/internal/extract"
	"github.com/pishield/pishield/internal/pipeline"
	"github.com/pishield/pishield/internal/queue"
	"github.com/pishield/pishield/internal/store"
	"github.com/pishield/pishield/pkg/types"
)

const ownerHeader = "X-Owner-ID"

// Analyzer runs the synchronous analysis path.
type Analyzer interface {
	Analyze(ctx context.Context, artifact types.Artifact) (*types.AnalysisRecord, error)
}

// JobEnqueuer accepts asynchronous analysis requests. Nil disables the
// async path.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, job queue.Job) error
}

// Server wires the HTTP surface to the pipeline and store.
type Server struct {
	pipeline Analyzer
	store    store.Store
	jobs     JobEnqueuer
	logger   *slog.Logger
}

// New constructs the server. jobs may be nil when no queue is configured.
func New(p Analyzer, st store.Store, jobs JobEnqueuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: p, store: st, jobs: jobs, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), metricsMiddleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", metricsHandler())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyses", s.createAnalysis)
		v1.GET("/analyses", s.listAnalyses)
		v1.GET("/analyses/:id", s.getAnalysis)
		v1.DELETE("/analyses/:id", s.deleteAnalysis)
		v1.DELETE("/analyses", s.purgeAnalyses)
	}
	return r
}

// Run serves until the listener fails.
func (s *Server) Run(cfg types.ServerConfig) error {
	addr := cfg.Address
	if addr == "" {
		addr = ":8080"
	}
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type analysisRequest struct {
	URL          string `json:"url" binding:"required"`
	DeclaredType string `json:"declared_type" binding:"required"`
	FileName     string `json:"file_name"`
}

func ownerID(c *gin.Context) (string, bool) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ownerHeader + " header is required"})
		return "", false
	}
	return owner, true
}

// createAnalysis runs the pipeline synchronously, or with ?async=1 enqueues
// the request and returns immediately.
func (s *Server) createAnalysis(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artifact := types.Artifact{
		ID:           uuid.NewString(),
		OwnerID:      owner,
		URL:          req.URL,
		DeclaredType: req.DeclaredType,
		FileName:     req.FileName,
		SubmittedAt:  time.Now().UTC(),
	}

	if c.Query("async") == "1" {
		if s.jobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asynchronous analysis is not configured"})
			return
		}
		// Reject unsupported types before queuing so the caller finds out now.
		if _, err := classify.Classify(artifact.DeclaredType); err != nil {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		if err := s.jobs.EnqueueJob(c.Request.Context(), queue.JobFromArtifact(artifact)); err != nil {
			s.logger.Error("enqueue failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue analysis"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": artifact.ID, "status": "queued"})
		return
	}

	record, err := s.pipeline.Analyze(c.Request.Context(), artifact)
	if err != nil {
		s.respondAnalysisError(c, record, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// respondAnalysisError maps pipeline errors to status codes. A persistence
// failure still carries a completed verdict, so the caller gets the record
// with a warning instead of an error.
func (s *Server) respondAnalysisError(c *gin.Context, record *types.AnalysisRecord, err error) {
	var extErr *extract.ExtractionError
	var perr *pipeline.PersistenceError

	switch {
	case errors.Is(err, classify.ErrUnsupportedMediaType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, extract.ErrAnalysisPending):
		c.JSON(http.StatusAccepted, gin.H{"status": "pending", "detail": err.Error()})
	case errors.As(err, &perr):
		c.JSON(http.StatusOK, gin.H{
			"record":  record,
			"warning": "analysis completed but was not stored; it will be retried",
		})
	case errors.As(err, &extErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

func (s *Server) listAnalyses(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := s.store.ListByOwner(c.Request.Context(), owner, limit, offset)
	if err != nil {
		s.logger.Error("list failed", "owner_id", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list analyses"})
		return
	}
	if records == nil {
		records = []types.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

func (s *Server) getAnalysis(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	record, err := s.store.GetByOwner(c.Request.Context(), owner, c.Param("id"))
	if errors.Is(err, store.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	if err != nil {
		s.logger.Error("get failed", "owner_id", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load analysis"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) deleteAnalysis(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	err := s.store.DeleteByOwner(c.Request.Context(), owner, c.Param("id"))
	if errors.Is(err, store.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	if err != nil {
		s.logger.Error("delete failed", "owner_id", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete analysis"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) purgeAnalyses(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	deleted, err := s.store.PurgeOwner(c.Request.Context(), owner)
	if err != nil {
		s.logger.Error("purge failed", "owner_id", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not purge analyses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
