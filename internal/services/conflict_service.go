package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unionbase/jibun/api/internal/conflict"
	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/normalize"
	"github.com/unionbase/jibun/api/internal/repository"
)

// ErrUnitNotFound is returned when the referenced property unit does not
// exist.
var ErrUnitNotFound = errors.New("property unit not found")

// ErrInvalidPNU is returned when a unit is requested without a parcel number.
var ErrInvalidPNU = errors.New("pnu is required")

// ConflictService orchestrates conflict checks and resolutions over a
// property unit.
type ConflictService interface {
	// Check recomputes the conflict state for a pending candidate against a
	// unit. Safe to call repeatedly; nothing is persisted.
	Check(ctx context.Context, pending conflict.PendingIdentity, propertyUnitID int64) (conflict.CheckResult, error)

	// Resolve applies one resolution action atomically and returns the
	// resulting primary owner's user id. Precondition violations come back
	// as the conflict package's sentinel errors with no partial mutation.
	Resolve(ctx context.Context, req conflict.Request) (int64, error)

	// EnsureUnit resolves the canonical property unit for a pending
	// candidate's address, creating it if no row exists yet. Dong/ho are
	// canonicalized before the lookup so spelling variants land on the same
	// unit.
	EnsureUnit(ctx context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error)
}

// conflictService is the concrete implementation of ConflictService.
type conflictService struct {
	detector  *conflict.Detector
	resolver  *conflict.Resolver
	ownership repository.OwnershipRepository
	log       *logger.Logger
}

// NewConflictService creates a new instance of ConflictService.
func NewConflictService(detector *conflict.Detector, resolver *conflict.Resolver, ownership repository.OwnershipRepository, log *logger.Logger) ConflictService {
	return &conflictService{
		detector:  detector,
		resolver:  resolver,
		ownership: ownership,
		log:       log,
	}
}

func (s *conflictService) Check(ctx context.Context, pending conflict.PendingIdentity, propertyUnitID int64) (conflict.CheckResult, error) {
	unit, err := s.ownership.UnitByID(ctx, propertyUnitID)
	if err != nil {
		return conflict.CheckResult{}, fmt.Errorf("failed to load property unit %d: %w", propertyUnitID, err)
	}
	if unit == nil {
		return conflict.CheckResult{}, ErrUnitNotFound
	}

	return s.detector.Check(ctx, pending, propertyUnitID)
}

func (s *conflictService) Resolve(ctx context.Context, req conflict.Request) (int64, error) {
	unit, err := s.ownership.UnitByID(ctx, req.PropertyUnitID)
	if err != nil {
		return 0, fmt.Errorf("failed to load property unit %d: %w", req.PropertyUnitID, err)
	}
	if unit == nil {
		return 0, ErrUnitNotFound
	}

	return s.resolver.Resolve(ctx, req)
}

func (s *conflictService) EnsureUnit(ctx context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error) {
	if strings.TrimSpace(unit.PNU) == "" {
		return nil, ErrInvalidPNU
	}
	unit.PNU = strings.TrimSpace(unit.PNU)
	if unit.Dong != nil {
		unit.Dong = normalize.Designator(*unit.Dong)
	}
	if unit.Ho != nil {
		unit.Ho = normalize.Designator(*unit.Ho)
	}

	out, err := s.ownership.FindOrCreateUnit(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure property unit (tenant=%d, pnu=%s): %w", unit.TenantID, unit.PNU, err)
	}

	s.log.Debug("Property unit ensured", map[string]interface{}{
		"unit_id":   out.ID,
		"tenant_id": out.TenantID,
		"pnu":       out.PNU,
	})
	return out, nil
}
