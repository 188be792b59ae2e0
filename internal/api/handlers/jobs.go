package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/jobs"
	"github.com/nexconsult/simples-batch/internal/models"
)

// JobsHandler handles batch enrichment job requests
type JobsHandler struct {
	registry *jobs.Registry
	defaults models.Request
	logger   *logrus.Logger
}

// NewJobsHandler creates a new jobs handler. defaults fills in omitted
// request fields (workers, delay, rounds).
func NewJobsHandler(registry *jobs.Registry, defaults models.Request, logger *logrus.Logger) *JobsHandler {
	return &JobsHandler{
		registry: registry,
		defaults: defaults,
		logger:   logger,
	}
}

// Submit starts a new enrichment job
func (h *JobsHandler) Submit(c *gin.Context) {
	requestID := c.GetString("request_id")

	var request models.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid job request format")

		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid request format",
			Message:   err.Error(),
			Code:      "INVALID_REQUEST",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if len(request.Rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "No rows provided",
			Message:   "rows must contain at least one entry",
			Code:      "NO_ROWS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if request.Workers == 0 {
		request.Workers = h.defaults.Workers
	}
	if request.DelaySeconds == 0 {
		request.DelaySeconds = h.defaults.DelaySeconds
	}
	if request.ReprocessRounds == 0 {
		request.ReprocessRounds = h.defaults.ReprocessRounds
	}

	if request.Workers < 1 || request.Workers > 32 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid workers",
			Message:   "workers must be between 1 and 32",
			Code:      "INVALID_WORKERS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	if request.ReprocessRounds < 0 || request.ReprocessRounds > 10 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid reprocess_rounds",
			Message:   "reprocess_rounds must be between 0 and 10",
			Code:      "INVALID_ROUNDS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	job, err := h.registry.Submit(request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Failed to submit job",
			Message:   err.Error(),
			Code:      "SUBMIT_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     job.ID,
		"rows":       len(request.Rows),
	}).Info("Job accepted")

	c.JSON(http.StatusAccepted, job)
}

// Get returns the current state of one job
func (h *JobsHandler) Get(c *gin.Context) {
	job, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Job not found",
			Code:      "JOB_NOT_FOUND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// List returns all known jobs
func (h *JobsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"jobs":      h.registry.List(),
		"timestamp": time.Now(),
	})
}

// Stop requests cancellation of a running job
func (h *JobsHandler) Stop(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.Stop(id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Job not found",
			Code:      "JOB_NOT_FOUND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.WithField("job_id", id).Info("Job stop requested")

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Stop requested, job will finish gracefully",
		"job_id":    id,
		"timestamp": time.Now(),
	})
}
