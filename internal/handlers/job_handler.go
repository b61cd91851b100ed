package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/unionbase/jibun/api/internal/errors"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// JobHandler handles job status polling, deletion and publishing.
type JobHandler struct {
	service services.JobService
}

// NewJobHandler creates a new JobHandler instance.
func NewJobHandler(service services.JobService) *JobHandler {
	return &JobHandler{service: service}
}

// JobStatusResponse is the pollable job view. Result is null until the first
// chunk has been persisted; Error is set only for FAILED jobs.
type JobStatusResponse struct {
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	TotalCount  int               `json:"totalCount"`
	Result      *models.JobResult `json:"result"`
	Error       *string           `json:"error"`
	IsPublished bool              `json:"isPublished"`
}

// Status handles GET /api/v1/jobs/:jobID. Polling it has no side effects.
func (h *JobHandler) Status(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.service.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			apierrors.NotFound(c, "Job not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to load job", err)
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		Status:      string(job.Status),
		Progress:    job.Progress,
		TotalCount:  job.TotalCount,
		Result:      job.Result,
		Error:       job.Error,
		IsPublished: job.IsPublished,
	})
}

// Delete handles DELETE /api/v1/jobs/:jobID. Deleting the record never rolls
// back data the job produced.
func (h *JobHandler) Delete(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, services.ErrJobNotFound):
			apierrors.NotFound(c, "Job not found")
		case errors.Is(err, services.ErrJobNotTerminal):
			apierrors.Conflict(c, "Job is still running")
		default:
			apierrors.InternalServerError(c, "Failed to delete job", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// Publish handles POST /api/v1/jobs/:jobID/publish.
func (h *JobHandler) Publish(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Publish(c.Request.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, services.ErrJobNotFound):
			apierrors.NotFound(c, "Job not found")
		case errors.Is(err, services.ErrJobNotTerminal):
			apierrors.Conflict(c, "Job has not completed")
		default:
			apierrors.InternalServerError(c, "Failed to publish job", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// jobIDParam parses the :jobID path parameter, responding with 400 on
// failure.
func jobIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid job id", nil)
		return uuid.Nil, false
	}
	return id, true
}
