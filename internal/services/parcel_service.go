package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrParcelNotFound     = errors.New("parcel not found")
)

// ParcelService exposes read access to the parcel registry: direct PNU
// lookups and point-in-polygon queries against collected boundaries.
type ParcelService interface {
	// ByPNU returns the parcel with the given registry identifier together
	// with its recorded building units. Returns ErrParcelNotFound when the
	// PNU is unknown.
	ByPNU(ctx context.Context, pnu string) (*models.Parcel, []models.BuildingUnit, error)

	// AtPoint returns the parcel whose boundary contains the given WGS84
	// point. Returns ErrInvalidCoordinates for out-of-range input and
	// ErrParcelNotFound when no boundary covers the point.
	AtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	repo repository.ParcelRepository
	log  *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(repo repository.ParcelRepository, log *logger.Logger) ParcelService {
	return &parcelService{
		repo: repo,
		log:  log,
	}
}

func (s *parcelService) ByPNU(ctx context.Context, pnu string) (*models.Parcel, []models.BuildingUnit, error) {
	parcel, err := s.repo.ParcelByPNU(ctx, pnu)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query parcel %s: %w", pnu, err)
	}
	if parcel == nil {
		return nil, nil, ErrParcelNotFound
	}

	units, err := s.repo.UnitsByParcel(ctx, parcel.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query units for parcel %s: %w", pnu, err)
	}
	return parcel, units, nil
}

func (s *parcelService) AtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	if lat < MinLatitude || lat > MaxLatitude {
		return nil, fmt.Errorf("%w: latitude must be between %.0f and %.0f, got %f",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, lat)
	}
	if lng < MinLongitude || lng > MaxLongitude {
		return nil, fmt.Errorf("%w: longitude must be between %.0f and %.0f, got %f",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, lng)
	}

	parcel, err := s.repo.ParcelAtPoint(ctx, lat, lng)
	if err != nil {
		s.log.Error("Failed to query parcel at point", err, map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
		return nil, fmt.Errorf("failed to query parcel: %w", err)
	}
	if parcel == nil {
		s.log.Debug("No parcel found at point", map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
		return nil, ErrParcelNotFound
	}
	return parcel, nil
}
