// Package api exposes the HTTP surface: search control, progress, and the
// company catalog.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobscout/internal/dispatch"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/metrics"
	"github.com/jonesrussell/jobscout/internal/queue"
	"github.com/jonesrussell/jobscout/internal/reporter"
	"github.com/jonesrussell/jobscout/internal/repository"
)

// JobStore is the job persistence the handlers need.
type JobStore interface {
	Create(ctx context.Context, job *domain.SearchJob) error
	Latest(ctx context.Context) (*domain.SearchJob, error)
	SetPauseRequested(ctx context.Context, id string, requested bool) error
}

// SearchHandler serves search submission, progress, and pause.
type SearchHandler struct {
	jobs              JobStore
	dispatcher        dispatch.Dispatcher
	reporter          *reporter.Reporter
	generativeEnabled bool
	logger            logger.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(jobs JobStore, dispatcher dispatch.Dispatcher, rep *reporter.Reporter, generativeEnabled bool, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		jobs:              jobs,
		dispatcher:        dispatcher,
		reporter:          rep,
		generativeEnabled: generativeEnabled,
		logger:            log,
	}
}

// Start accepts a search request, creates the job, and dispatches it.
// Only one search may be in flight at a time.
func (h *SearchHandler) Start(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if vErr := domain.ValidateSearchRequest(&req, h.generativeEnabled); vErr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Message, "field": vErr.Field})
		return
	}

	latest, err := h.jobs.Latest(c.Request.Context())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to check for active job", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start search"})
		return
	}
	if latest != nil && !latest.Status.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "A search is already in progress",
			"job_id": latest.ID,
		})
		return
	}

	job := domain.NewSearchJob()
	if err := h.jobs.Create(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start search"})
		return
	}

	task := &queue.SearchTask{JobID: job.ID, Request: &req, Attempt: 1}
	if err := h.dispatcher.Dispatch(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to dispatch job",
			logger.String("job_id", job.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start search"})
		return
	}

	metrics.JobsSubmitted.Inc()
	h.logger.Info("Search accepted", logger.String("job_id", job.ID))

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

// Progress reports the state of the most recent search.
func (h *SearchHandler) Progress(c *gin.Context) {
	latest, err := h.jobs.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, h.reporter.Snapshot(nil))
			return
		}
		h.logger.Error("Failed to load job", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load progress"})
		return
	}

	c.JSON(http.StatusOK, h.reporter.Snapshot(latest))
}

// Pause toggles the pause flag on the active search. The pipeline honors the
// flag at its next company boundary rather than stopping mid-company.
func (h *SearchHandler) Pause(c *gin.Context) {
	latest, err := h.jobs.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No search to pause"})
			return
		}
		h.logger.Error("Failed to load job", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pause search"})
		return
	}

	if latest.Status.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "Search already finished"})
		return
	}

	requested := !latest.PauseRequested
	if err := h.jobs.SetPauseRequested(c.Request.Context(), latest.ID, requested); err != nil {
		h.logger.Error("Failed to set pause flag",
			logger.String("job_id", latest.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pause search"})
		return
	}

	h.logger.Info("Pause flag toggled",
		logger.String("job_id", latest.ID),
		logger.Bool("pause_requested", requested),
	)

	c.JSON(http.StatusOK, gin.H{"job_id": latest.ID, "pause_requested": requested})
}
