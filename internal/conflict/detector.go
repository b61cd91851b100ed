package conflict

import (
	"context"
	"fmt"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// PendingIdentity is the candidate side of a conflict check: the user about
// to become a recorded owner of a property unit.
type PendingIdentity struct {
	UserID int64   `json:"userId"`
	Name   string  `json:"name"`
	Phone  *string `json:"phone,omitempty"`
	Dong   *string `json:"dong,omitempty"`
	Ho     *string `json:"ho,omitempty"`
}

// CheckResult is the outcome of a conflict check. Conflicts carries the full
// existing-owner snapshots needed for a side-by-side comparison.
type CheckResult struct {
	HasConflict bool                     `json:"hasConflict"`
	Conflicts   []models.OwnershipRecord `json:"conflicts"`
	PendingUser PendingIdentity          `json:"pendingUser"`
}

// Detector decides whether a pending candidate collides with recorded
// ownership of a property unit.
type Detector struct {
	ownership repository.OwnershipRepository
	log       *logger.Logger
}

// NewDetector creates a Detector.
func NewDetector(ownership repository.OwnershipRepository, log *logger.Logger) *Detector {
	return &Detector{ownership: ownership, log: log}
}

// Check reports whether the unit already has an ACTIVE recorded owner who is
// a different person than the candidate. Identity comparison is by stable
// user id, never by display name: two distinct people sharing a name must
// still conflict, and the same person re-submitting must not. ARCHIVED
// records and delegated-access records (FAMILY/PROXY) never conflict.
//
// The result is recomputed on demand and not persisted.
func (d *Detector) Check(ctx context.Context, pending PendingIdentity, propertyUnitID int64) (CheckResult, error) {
	result := CheckResult{PendingUser: pending, Conflicts: []models.OwnershipRecord{}}

	records, err := d.ownership.ActiveByUnit(ctx, propertyUnitID)
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to load ownership for unit %d: %w", propertyUnitID, err)
	}

	for _, rec := range records {
		if !rec.Type.CountsTowardShares() {
			continue
		}
		if rec.UserID == pending.UserID {
			continue
		}
		result.Conflicts = append(result.Conflicts, rec)
	}
	result.HasConflict = len(result.Conflicts) > 0

	if result.HasConflict {
		d.log.Info("Ownership conflict detected", map[string]interface{}{
			"property_unit_id": propertyUnitID,
			"pending_user_id":  pending.UserID,
			"existing_owners":  len(result.Conflicts),
		})
	}

	return result, nil
}
