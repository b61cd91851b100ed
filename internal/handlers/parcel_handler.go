package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/unionbase/jibun/api/internal/errors"
	"github.com/unionbase/jibun/api/internal/middleware"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// ParcelHandler handles read access to the parcel registry.
type ParcelHandler struct {
	service services.ParcelService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
	}
}

// AtPointRequest represents the query parameters for the at-point endpoint.
type AtPointRequest struct {
	Lat float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng float64 `form:"lng" binding:"required,min=-180,max=180"`
}

// ParcelResponse is the registry view of one parcel. Units are included on
// PNU lookups so operators can see the dong/ho breakdown.
type ParcelResponse struct {
	Parcel *models.Parcel        `json:"parcel"`
	Units  []models.BuildingUnit `json:"units,omitempty"`
}

// ByPNU handles GET /api/v1/parcels/:pnu.
func (h *ParcelHandler) ByPNU(c *gin.Context) {
	pnu := c.Param("pnu")
	if pnu == "" {
		apierrors.BadRequest(c, "Invalid PNU", nil)
		return
	}

	parcel, units, err := h.service.ByPNU(c.Request.Context(), pnu)
	if err != nil {
		if errors.Is(err, services.ErrParcelNotFound) {
			apierrors.NotFound(c, "Parcel not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to query parcel", err)
		return
	}

	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel, Units: units})
}

// AtPoint handles GET /api/v1/parcels/at-point. It returns the parcel whose
// collected boundary contains the given point.
func (h *ParcelHandler) AtPoint(c *gin.Context) {
	var req AtPointRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing at-point request", map[string]interface{}{
			"lat": req.Lat,
			"lng": req.Lng,
		})
	}

	parcel, err := h.service.AtPoint(c.Request.Context(), req.Lat, req.Lng)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCoordinates) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		if errors.Is(err, services.ErrParcelNotFound) {
			apierrors.NotFound(c, "No parcel found at this location")
			return
		}
		apierrors.InternalServerError(c, "Failed to query parcel data", err)
		return
	}

	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel})
}
