package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/unionbase/jibun/api/internal/errors"
	"github.com/unionbase/jibun/api/internal/jobs"
	"github.com/unionbase/jibun/api/internal/middleware"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// UploadHandler handles batch submission endpoints: bulk member upload and
// registry sync. Both return a job id immediately; status is polled via the
// jobs endpoint.
type UploadHandler struct {
	preRegister services.PreRegisterService
	sync        services.SyncService
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(preRegister services.PreRegisterService, sync services.SyncService) *UploadHandler {
	return &UploadHandler{
		preRegister: preRegister,
		sync:        sync,
	}
}

// UploadRequest is the bulk upload payload: the ordered rows as produced by
// the spreadsheet parsing layer.
type UploadRequest struct {
	Rows []models.RawOwnershipRow `json:"rows" binding:"required,min=1"`
}

// JobSubmittedResponse is returned by all batch submission endpoints.
type JobSubmittedResponse struct {
	JobID string `json:"jobId"`
}

// PreRegister handles POST /api/v1/tenants/:tenantID/pre-register.
func (h *UploadHandler) PreRegister(c *gin.Context) {
	tenantID, ok := tenantIDParam(c)
	if !ok {
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing bulk upload", map[string]interface{}{
			"tenant_id": tenantID,
			"rows":      len(req.Rows),
		})
	}

	jobID, err := h.preRegister.SubmitUpload(c.Request.Context(), tenantID, req.Rows)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyUpload):
			apierrors.BadRequest(c, "No processable rows in upload", nil)
		case errors.Is(err, jobs.ErrJobInProgress):
			apierrors.Conflict(c, "An upload is already being processed for this tenant")
		default:
			apierrors.InternalServerError(c, "Failed to submit upload", err)
		}
		return
	}

	c.JSON(http.StatusOK, JobSubmittedResponse{JobID: jobID.String()})
}

// SyncProperties handles POST /api/v1/tenants/:tenantID/sync-properties.
func (h *UploadHandler) SyncProperties(c *gin.Context) {
	tenantID, ok := tenantIDParam(c)
	if !ok {
		return
	}

	jobID, err := h.sync.SubmitSync(c.Request.Context(), tenantID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoMembers):
			apierrors.BadRequest(c, "Tenant has no members to sync", nil)
		case errors.Is(err, jobs.ErrJobInProgress):
			apierrors.Conflict(c, "A sync is already being processed for this tenant")
		default:
			apierrors.InternalServerError(c, "Failed to submit sync", err)
		}
		return
	}

	c.JSON(http.StatusOK, JobSubmittedResponse{JobID: jobID.String()})
}

// tenantIDParam parses the :tenantID path parameter, responding with 400 on
// failure.
func tenantIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("tenantID"), 10, 64)
	if err != nil || id < 1 {
		apierrors.BadRequest(c, "Invalid tenant id", nil)
		return 0, false
	}
	return id, true
}
