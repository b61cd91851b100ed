package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/unionbase/jibun/api/internal/errors"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// MemberHandler handles operations on persisted pre-registered members.
type MemberHandler struct {
	service services.MemberService
}

// NewMemberHandler creates a new MemberHandler instance.
func NewMemberHandler(service services.MemberService) *MemberHandler {
	return &MemberHandler{service: service}
}

// RematchRequest carries the operator's corrections for a manual re-match.
// All fields are optional; omitted fields keep their stored values.
type RematchRequest struct {
	Address string `json:"address"`
	Dong    string `json:"dong"`
	Ho      string `json:"ho"`
}

// RematchResponse reports the synchronous re-match outcome.
type RematchResponse struct {
	Success bool                        `json:"success"`
	Matched bool                        `json:"matched"`
	Member  *models.PreRegisteredMember `json:"member,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// ResetResponse reports a tenant-wide member reset.
type ResetResponse struct {
	Success bool  `json:"success"`
	Removed int64 `json:"removed"`
}

// Rematch handles POST /api/v1/members/:memberID/rematch.
func (h *MemberHandler) Rematch(c *gin.Context) {
	memberID, ok := memberIDParam(c)
	if !ok {
		return
	}

	var req RematchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	result, err := h.service.Rematch(c.Request.Context(), memberID, services.RematchInput{
		Address: req.Address,
		Dong:    req.Dong,
		Ho:      req.Ho,
	})
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			apierrors.NotFound(c, "Member not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to re-match member", err)
		return
	}

	c.JSON(http.StatusOK, RematchResponse{
		Success: true,
		Matched: result.Matched,
		Member:  result.Member,
	})
}

// Delete handles DELETE /api/v1/members/:memberID.
func (h *MemberHandler) Delete(c *gin.Context) {
	memberID, ok := memberIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), memberID); err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			apierrors.NotFound(c, "Member not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to delete member", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ResetTenant handles DELETE /api/v1/tenants/:tenantID/members.
func (h *MemberHandler) ResetTenant(c *gin.Context) {
	tenantID, ok := tenantIDParam(c)
	if !ok {
		return
	}

	removed, err := h.service.ResetTenant(c.Request.Context(), tenantID)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to reset tenant members", err)
		return
	}

	c.JSON(http.StatusOK, ResetResponse{Success: true, Removed: removed})
}

// memberIDParam parses the :memberID path parameter, responding with 400 on
// failure.
func memberIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("memberID"), 10, 64)
	if err != nil || id < 1 {
		apierrors.BadRequest(c, "Invalid member id", nil)
		return 0, false
	}
	return id, true
}
