package conflict

import (
	"context"
	"errors"
	"fmt"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// Resolution precondition violations. These reject the request synchronously
// with no partial mutation; resolution is never retried automatically.
var (
	ErrExistingOwnerNotFound = errors.New("no active ownership record for the existing owner on this unit")
	ErrShareRatioExceeded    = errors.New("combined share ratio exceeds 100")
	ErrInvalidShareRatio     = errors.New("share ratio must be greater than 0 and at most 100")
	ErrInvalidRelationship   = errors.New("relationship type must be FAMILY or PROXY")
)

// Resolution is the operator's decision for one conflict. Each variant
// carries exactly the fields its action needs, so there is no "field X
// required only when action Y" validation at request time.
type Resolution interface {
	isResolution()
}

// Update overwrites the existing owner's mutable fields in place. Chosen when
// the operator determines the candidate is the same person re-submitting with
// corrected info. Same-person detection is an explicit operator decision, not
// inferred.
type Update struct {
	OwnerName string
	Phone     *string
}

// Transfer records a change of hands: the existing ACTIVE record is archived
// and a new ACTIVE OWNER record is created for the candidate. ShareRatio
// defaults to 100 when nil.
type Transfer struct {
	ShareRatio *float64
}

// AddCoOwner splits the unit between the existing owner and the candidate.
type AddCoOwner struct {
	RatioExisting float64
	RatioNew      float64
}

// AddProxy records the candidate as a family member or delegate. The existing
// owner's record is untouched and the new record carries no share.
type AddProxy struct {
	Relationship models.OwnershipType
}

func (Update) isResolution()     {}
func (Transfer) isResolution()   {}
func (AddCoOwner) isResolution() {}
func (AddProxy) isResolution()   {}

// Request identifies one conflict and the chosen resolution.
type Request struct {
	Resolution     Resolution
	PendingUserID  int64
	ExistingUserID int64
	PropertyUnitID int64
	PendingName    string
	PendingPhone   *string
}

// Resolver applies resolution actions atomically. All record mutations for
// one conflict happen inside a single transaction holding the property unit's
// row lock, so two simultaneous resolutions against the same unit cannot both
// succeed.
type Resolver struct {
	ownership repository.OwnershipRepository
	log       *logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver(ownership repository.OwnershipRepository, log *logger.Logger) *Resolver {
	return &Resolver{ownership: ownership, log: log}
}

// Resolve applies req and returns the user id of the canonical/primary owner
// of the unit after resolution. Either every mutation commits or none do.
func (r *Resolver) Resolve(ctx context.Context, req Request) (resolvedUserID int64, err error) {
	if err := validate(req.Resolution); err != nil {
		return 0, err
	}

	err = r.ownership.WithUnitLock(ctx, req.PropertyUnitID, func(tx repository.OwnershipTx) error {
		records, err := tx.ActiveByUnit(ctx, req.PropertyUnitID)
		if err != nil {
			return fmt.Errorf("failed to load ownership for unit %d: %w", req.PropertyUnitID, err)
		}

		existing := findActiveOwner(records, req.ExistingUserID)

		switch action := req.Resolution.(type) {
		case Update:
			resolvedUserID, err = r.update(ctx, tx, existing, action)
		case Transfer:
			resolvedUserID, err = r.transfer(ctx, tx, existing, req, action)
		case AddCoOwner:
			resolvedUserID, err = r.addCoOwner(ctx, tx, existing, records, req, action)
		case AddProxy:
			resolvedUserID, err = r.addProxy(ctx, tx, existing, req, action)
		default:
			err = fmt.Errorf("unknown resolution action %T", req.Resolution)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	r.log.Info("Conflict resolved", map[string]interface{}{
		"property_unit_id": req.PropertyUnitID,
		"action":           fmt.Sprintf("%T", req.Resolution),
		"resolved_user_id": resolvedUserID,
	})
	return resolvedUserID, nil
}

// validate rejects malformed resolution payloads before any lock is taken.
func validate(res Resolution) error {
	switch action := res.(type) {
	case Update, Transfer:
		return nil
	case AddCoOwner:
		if action.RatioExisting <= 0 || action.RatioNew <= 0 {
			return ErrInvalidShareRatio
		}
		if action.RatioExisting+action.RatioNew > 100+models.ShareTolerance {
			return fmt.Errorf("%w: %.2f + %.2f", ErrShareRatioExceeded, action.RatioExisting, action.RatioNew)
		}
		return nil
	case AddProxy:
		if action.Relationship != models.OwnershipFamily && action.Relationship != models.OwnershipProxy {
			return ErrInvalidRelationship
		}
		return nil
	default:
		return fmt.Errorf("unknown resolution action %T", res)
	}
}

// findActiveOwner returns the existing user's ACTIVE equity record, or nil.
func findActiveOwner(records []models.OwnershipRecord, userID int64) *models.OwnershipRecord {
	for i := range records {
		if records[i].UserID == userID && records[i].Type.CountsTowardShares() {
			return &records[i]
		}
	}
	return nil
}

func (r *Resolver) update(ctx context.Context, tx repository.OwnershipTx, existing *models.OwnershipRecord, action Update) (int64, error) {
	if existing == nil {
		return 0, ErrExistingOwnerNotFound
	}
	existing.OwnerName = action.OwnerName
	existing.Phone = action.Phone
	if err := tx.Update(ctx, existing); err != nil {
		return 0, fmt.Errorf("failed to update ownership record %d: %w", existing.ID, err)
	}
	return existing.UserID, nil
}

func (r *Resolver) transfer(ctx context.Context, tx repository.OwnershipTx, existing *models.OwnershipRecord, req Request, action Transfer) (int64, error) {
	if existing == nil {
		return 0, ErrExistingOwnerNotFound
	}
	if err := tx.Archive(ctx, existing.ID); err != nil {
		return 0, fmt.Errorf("failed to archive ownership record %d: %w", existing.ID, err)
	}

	ratio := 100.0
	if action.ShareRatio != nil {
		if *action.ShareRatio <= 0 || *action.ShareRatio > 100 {
			return 0, ErrInvalidShareRatio
		}
		ratio = *action.ShareRatio
	}

	record := models.OwnershipRecord{
		OwnerName:      req.PendingName,
		Phone:          req.PendingPhone,
		Type:           models.OwnershipOwner,
		Status:         models.OwnershipActive,
		ShareRatio:     &ratio,
		UserID:         req.PendingUserID,
		PropertyUnitID: req.PropertyUnitID,
	}
	if err := tx.Insert(ctx, &record); err != nil {
		return 0, fmt.Errorf("failed to insert ownership record: %w", err)
	}
	return req.PendingUserID, nil
}

func (r *Resolver) addCoOwner(ctx context.Context, tx repository.OwnershipTx, existing *models.OwnershipRecord, records []models.OwnershipRecord, req Request, action AddCoOwner) (int64, error) {
	if existing == nil {
		return 0, ErrExistingOwnerNotFound
	}

	// The cap applies across every ACTIVE equity record on the unit, not
	// just the pair being adjusted.
	others := models.SumActiveShares(records)
	if existing.ShareRatio != nil {
		others -= *existing.ShareRatio
	}
	if others+action.RatioExisting+action.RatioNew > 100+models.ShareTolerance {
		return 0, fmt.Errorf("%w: unit already carries %.2f", ErrShareRatioExceeded, others)
	}

	existing.ShareRatio = &action.RatioExisting
	if err := tx.Update(ctx, existing); err != nil {
		return 0, fmt.Errorf("failed to update ownership record %d: %w", existing.ID, err)
	}

	record := models.OwnershipRecord{
		OwnerName:      req.PendingName,
		Phone:          req.PendingPhone,
		Type:           models.OwnershipCoOwner,
		Status:         models.OwnershipActive,
		ShareRatio:     &action.RatioNew,
		UserID:         req.PendingUserID,
		PropertyUnitID: req.PropertyUnitID,
	}
	if err := tx.Insert(ctx, &record); err != nil {
		return 0, fmt.Errorf("failed to insert co-owner record: %w", err)
	}

	// The original owner stays primary for approval purposes.
	return existing.UserID, nil
}

func (r *Resolver) addProxy(ctx context.Context, tx repository.OwnershipTx, existing *models.OwnershipRecord, req Request, action AddProxy) (int64, error) {
	if existing == nil {
		return 0, ErrExistingOwnerNotFound
	}

	record := models.OwnershipRecord{
		OwnerName:      req.PendingName,
		Phone:          req.PendingPhone,
		Type:           action.Relationship,
		Status:         models.OwnershipActive,
		UserID:         req.PendingUserID,
		PropertyUnitID: req.PropertyUnitID,
	}
	if err := tx.Insert(ctx, &record); err != nil {
		return 0, fmt.Errorf("failed to insert %s record: %w", action.Relationship, err)
	}
	return existing.UserID, nil
}
