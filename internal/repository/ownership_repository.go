package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unionbase/jibun/api/internal/database"
	"github.com/unionbase/jibun/api/internal/models"
)

// OwnershipTx is the mutation surface available inside a unit lock. All
// writes to ownership records go through it so the per-unit mutual exclusion
// boundary cannot be bypassed.
type OwnershipTx interface {
	// ActiveByUnit returns all ACTIVE ownership records for a property unit.
	ActiveByUnit(ctx context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error)

	// Insert persists a new ownership record and fills in its id.
	Insert(ctx context.Context, record *models.OwnershipRecord) error

	// Update overwrites a record's mutable fields (name, phone, share ratio).
	Update(ctx context.Context, record *models.OwnershipRecord) error

	// Archive sets a record's status to ARCHIVED. Records are never deleted.
	Archive(ctx context.Context, recordID int64) error
}

// OwnershipRepository defines data access for ownership records and property
// units.
type OwnershipRepository interface {
	// ActiveByUnit returns all ACTIVE ownership records for a property unit.
	// Returns an empty slice when the unit has no recorded owners.
	ActiveByUnit(ctx context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error)

	// UnitByID returns a property unit, or nil, nil when it does not exist.
	UnitByID(ctx context.Context, unitID int64) (*models.PropertyUnit, error)

	// FindOrCreateUnit resolves the canonical property unit row for the
	// given identity, creating it when absent.
	FindOrCreateUnit(ctx context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error)

	// WithUnitLock runs fn inside a transaction that holds the property
	// unit's row lock. The transaction commits when fn returns nil and
	// rolls back otherwise.
	WithUnitLock(ctx context.Context, propertyUnitID int64, fn func(tx OwnershipTx) error) error
}

// ownershipRepository is the pgx implementation of OwnershipRepository.
type ownershipRepository struct {
	db *database.Database
}

// NewOwnershipRepository creates a new instance of OwnershipRepository.
func NewOwnershipRepository(db *database.Database) OwnershipRepository {
	return &ownershipRepository{db: db}
}

const ownershipColumns = `
	id, user_id, property_unit_id, owner_name, phone, ownership_type,
	share_ratio, status, created_at, updated_at`

func scanOwnership(row pgx.Row) (models.OwnershipRecord, error) {
	var rec models.OwnershipRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.PropertyUnitID,
		&rec.OwnerName,
		&rec.Phone,
		&rec.Type,
		&rec.ShareRatio,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func activeByUnit(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, propertyUnitID int64) ([]models.OwnershipRecord, error) {
	query := `
		SELECT ` + ownershipColumns + `
		FROM ownership_records
		WHERE property_unit_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at, id
	`
	rows, err := q.Query(ctx, query, propertyUnitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ownership for unit %d: %w", propertyUnitID, err)
	}
	defer rows.Close()

	records := []models.OwnershipRecord{}
	for rows.Next() {
		rec, err := scanOwnership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ownership row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ownership rows: %w", err)
	}
	return records, nil
}

func (r *ownershipRepository) ActiveByUnit(ctx context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error) {
	return activeByUnit(ctx, r.db.Pool, propertyUnitID)
}

func (r *ownershipRepository) UnitByID(ctx context.Context, unitID int64) (*models.PropertyUnit, error) {
	query := `
		SELECT id, tenant_id, pnu, address, dong, ho, building_unit_id, created_at
		FROM property_units
		WHERE id = $1
	`
	var unit models.PropertyUnit
	err := r.db.Pool.QueryRow(ctx, query, unitID).Scan(
		&unit.ID,
		&unit.TenantID,
		&unit.PNU,
		&unit.Address,
		&unit.Dong,
		&unit.Ho,
		&unit.BuildingUnitID,
		&unit.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property unit %d: %w", unitID, err)
	}
	return &unit, nil
}

func (r *ownershipRepository) FindOrCreateUnit(ctx context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error) {
	query := `
		INSERT INTO property_units (tenant_id, pnu, address, dong, ho, building_unit_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, pnu, COALESCE(dong, ''), COALESCE(ho, ''))
		DO UPDATE SET address = EXCLUDED.address
		RETURNING id, tenant_id, pnu, address, dong, ho, building_unit_id, created_at
	`
	var out models.PropertyUnit
	err := r.db.Pool.QueryRow(ctx, query,
		unit.TenantID, unit.PNU, unit.Address, unit.Dong, unit.Ho, unit.BuildingUnitID,
	).Scan(
		&out.ID,
		&out.TenantID,
		&out.PNU,
		&out.Address,
		&out.Dong,
		&out.Ho,
		&out.BuildingUnitID,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert property unit (tenant=%d, pnu=%s): %w", unit.TenantID, unit.PNU, err)
	}
	return &out, nil
}

func (r *ownershipRepository) WithUnitLock(ctx context.Context, propertyUnitID int64, fn func(tx OwnershipTx) error) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock on the unit serializes concurrent resolutions for it.
	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM property_units WHERE id = $1 FOR UPDATE`, propertyUnitID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("property unit %d does not exist", propertyUnitID)
		}
		return fmt.Errorf("failed to lock property unit %d: %w", propertyUnitID, err)
	}

	if err := fn(&ownershipTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}
	return nil
}

// ownershipTx implements OwnershipTx over an open pgx transaction.
type ownershipTx struct {
	tx pgx.Tx
}

func (t *ownershipTx) ActiveByUnit(ctx context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error) {
	return activeByUnit(ctx, t.tx, propertyUnitID)
}

func (t *ownershipTx) Insert(ctx context.Context, record *models.OwnershipRecord) error {
	query := `
		INSERT INTO ownership_records
			(user_id, property_unit_id, owner_name, phone, ownership_type, share_ratio, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := t.tx.QueryRow(ctx, query,
		record.UserID,
		record.PropertyUnitID,
		record.OwnerName,
		record.Phone,
		record.Type,
		record.ShareRatio,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ownership record: %w", err)
	}
	return nil
}

func (t *ownershipTx) Update(ctx context.Context, record *models.OwnershipRecord) error {
	query := `
		UPDATE ownership_records
		SET owner_name = $2, phone = $3, share_ratio = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, query, record.ID, record.OwnerName, record.Phone, record.ShareRatio)
	if err != nil {
		return fmt.Errorf("failed to update ownership record %d: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ownership record %d does not exist", record.ID)
	}
	return nil
}

func (t *ownershipTx) Archive(ctx context.Context, recordID int64) error {
	query := `
		UPDATE ownership_records
		SET status = 'ARCHIVED', updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE'
	`
	tag, err := t.tx.Exec(ctx, query, recordID)
	if err != nil {
		return fmt.Errorf("failed to archive ownership record %d: %w", recordID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ownership record %d is not active", recordID)
	}
	return nil
}
