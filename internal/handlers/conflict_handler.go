package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/unionbase/jibun/api/internal/conflict"
	apierrors "github.com/unionbase/jibun/api/internal/errors"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// Resolution action names on the wire.
const (
	ActionUpdate     = "update"
	ActionTransfer   = "transfer"
	ActionAddCoOwner = "add_co_owner"
	ActionAddProxy   = "add_proxy"
)

// ConflictHandler handles ownership conflict checks and resolutions.
type ConflictHandler struct {
	service services.ConflictService
}

// NewConflictHandler creates a new ConflictHandler instance.
func NewConflictHandler(service services.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// ConflictCheckRequest identifies a pending candidate and the target unit.
type ConflictCheckRequest struct {
	PendingUserID  int64   `json:"pendingUserId" binding:"required,min=1"`
	PendingName    string  `json:"pendingName" binding:"required"`
	PendingPhone   *string `json:"pendingPhone"`
	Dong           *string `json:"dong"`
	Ho             *string `json:"ho"`
	PropertyUnitID int64   `json:"conflictedPropertyUnitId" binding:"required,min=1"`
}

// ConflictResolutionRequest carries the operator's 4-way decision. Which
// optional fields are required depends on the action; the mapping to a typed
// resolution enforces that here, before the service sees the request.
type ConflictResolutionRequest struct {
	Action                string   `json:"action" binding:"required,oneof=update transfer add_co_owner add_proxy"`
	PendingUserID         int64    `json:"pendingUserId" binding:"required,min=1"`
	ExistingUserID        int64    `json:"existingUserId" binding:"required,min=1"`
	PropertyUnitID        int64    `json:"conflictedPropertyUnitId" binding:"required,min=1"`
	PendingName           string   `json:"pendingName" binding:"required"`
	PendingPhone          *string  `json:"pendingPhone"`
	ShareRatioForExisting *float64 `json:"shareRatioForExisting"`
	ShareRatioForNew      *float64 `json:"shareRatioForNew"`
	RelationshipType      *string  `json:"relationshipType"`
	TransferShareRatio    *float64 `json:"shareRatio"`
}

// ConflictResolutionResponse reports the resolution outcome.
type ConflictResolutionResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResolvedUserID *int64 `json:"resolvedUserId,omitempty"`
}

// EnsureUnitRequest identifies the unit a pending candidate claims. Dong and
// ho are accepted as entered; the service canonicalizes them.
type EnsureUnitRequest struct {
	TenantID       int64   `json:"tenantId" binding:"required,min=1"`
	PNU            string  `json:"pnu" binding:"required"`
	Address        string  `json:"address" binding:"required"`
	Dong           *string `json:"dong"`
	Ho             *string `json:"ho"`
	BuildingUnitID *int64  `json:"buildingUnitId"`
}

// EnsureUnit handles POST /api/v1/conflicts/units. It resolves the canonical
// property unit for the claimed address, creating the row when it does not
// exist, so the candidate can be checked against that unit's ownership state.
func (h *ConflictHandler) EnsureUnit(c *gin.Context) {
	var req EnsureUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	unit, err := h.service.EnsureUnit(c.Request.Context(), models.PropertyUnit{
		TenantID:       req.TenantID,
		PNU:            req.PNU,
		Address:        req.Address,
		Dong:           req.Dong,
		Ho:             req.Ho,
		BuildingUnitID: req.BuildingUnitID,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidPNU) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to ensure property unit", err)
		return
	}

	c.JSON(http.StatusOK, unit)
}

// Check handles POST /api/v1/conflicts/check. The result is recomputed each
// call; nothing is persisted.
func (h *ConflictHandler) Check(c *gin.Context) {
	var req ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	pending := conflict.PendingIdentity{
		UserID: req.PendingUserID,
		Name:   req.PendingName,
		Phone:  req.PendingPhone,
		Dong:   req.Dong,
		Ho:     req.Ho,
	}

	result, err := h.service.Check(c.Request.Context(), pending, req.PropertyUnitID)
	if err != nil {
		if errors.Is(err, services.ErrUnitNotFound) {
			apierrors.NotFound(c, "Property unit not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to check conflicts", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Resolve handles POST /api/v1/conflicts/resolve.
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var req ConflictResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	resolution, err := req.toResolution()
	if err != nil {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}

	resolvedUserID, err := h.service.Resolve(c.Request.Context(), conflict.Request{
		Resolution:     resolution,
		PendingUserID:  req.PendingUserID,
		ExistingUserID: req.ExistingUserID,
		PropertyUnitID: req.PropertyUnitID,
		PendingName:    req.PendingName,
		PendingPhone:   req.PendingPhone,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnitNotFound):
			apierrors.NotFound(c, "Property unit not found")
		case errors.Is(err, conflict.ErrInvalidShareRatio),
			errors.Is(err, conflict.ErrInvalidRelationship):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, conflict.ErrShareRatioExceeded),
			errors.Is(err, conflict.ErrExistingOwnerNotFound):
			apierrors.Conflict(c, err.Error())
		default:
			apierrors.InternalServerError(c, "Failed to resolve conflict", err)
		}
		return
	}

	c.JSON(http.StatusOK, ConflictResolutionResponse{
		Success:        true,
		Message:        "conflict resolved",
		ResolvedUserID: &resolvedUserID,
	})
}

// toResolution maps the wire action and its optional fields to the typed
// resolution variant, rejecting requests whose required fields are missing.
func (r *ConflictResolutionRequest) toResolution() (conflict.Resolution, error) {
	switch r.Action {
	case ActionUpdate:
		return conflict.Update{OwnerName: r.PendingName, Phone: r.PendingPhone}, nil
	case ActionTransfer:
		return conflict.Transfer{ShareRatio: r.TransferShareRatio}, nil
	case ActionAddCoOwner:
		if r.ShareRatioForExisting == nil || r.ShareRatioForNew == nil {
			return nil, errors.New("add_co_owner requires shareRatioForExisting and shareRatioForNew")
		}
		return conflict.AddCoOwner{
			RatioExisting: *r.ShareRatioForExisting,
			RatioNew:      *r.ShareRatioForNew,
		}, nil
	case ActionAddProxy:
		if r.RelationshipType == nil {
			return nil, errors.New("add_proxy requires relationshipType")
		}
		return conflict.AddProxy{Relationship: models.OwnershipType(*r.RelationshipType)}, nil
	default:
		return nil, errors.New("unknown action")
	}
}
