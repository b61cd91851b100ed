package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unionbase/jibun/api/internal/database"
	"github.com/unionbase/jibun/api/internal/models"
)

// MemberRepository defines data access for pre-registered members.
type MemberRepository interface {
	// GetByID returns a member, or nil, nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*models.PreRegisteredMember, error)

	// FindByOwnerAddress returns the tenant's member with the given owner
	// name and normalized address, or nil, nil. This is the per-tenant
	// uniqueness rule used for duplicate detection.
	FindByOwnerAddress(ctx context.Context, tenantID int64, ownerName, address string) (*models.PreRegisteredMember, error)

	// Insert persists a new member and fills in id and timestamps.
	Insert(ctx context.Context, member *models.PreRegisteredMember) error

	// Update overwrites a member's fields in place. Used by manual re-match
	// so correction never creates a second row.
	Update(ctx context.Context, member *models.PreRegisteredMember) error

	// DeleteByID removes a single member. Returns false when it did not exist.
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// DeleteByTenant hard-deletes every member of a tenant (bulk reset).
	// Returns the number of rows removed.
	DeleteByTenant(ctx context.Context, tenantID int64) (int64, error)

	// ListByTenant returns a page of the tenant's members in stable id
	// order, for chunked sync jobs.
	ListByTenant(ctx context.Context, tenantID int64, afterID int64, limit int) ([]models.PreRegisteredMember, error)

	// CountByTenant returns the tenant's member count.
	CountByTenant(ctx context.Context, tenantID int64) (int, error)
}

// memberRepository is the concrete implementation of MemberRepository.
type memberRepository struct {
	db *database.Database
}

// NewMemberRepository creates a new instance of MemberRepository.
func NewMemberRepository(db *database.Database) MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `
	id, tenant_id, owner_name, address, phone, dong, ho,
	land_area, land_ratio, building_area, building_ratio,
	official_value, notes, pnu, building_unit_id, matched,
	created_at, updated_at`

func scanMember(row pgx.Row) (models.PreRegisteredMember, error) {
	var m models.PreRegisteredMember
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.OwnerName,
		&m.Address,
		&m.Phone,
		&m.Dong,
		&m.Ho,
		&m.LandArea,
		&m.LandRatio,
		&m.BuildingArea,
		&m.BuildingRatio,
		&m.OfficialValue,
		&m.Notes,
		&m.PNU,
		&m.BuildingUnitID,
		&m.Matched,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*models.PreRegisteredMember, error) {
	query := `SELECT ` + memberColumns + ` FROM pre_registered_members WHERE id = $1`
	m, err := scanMember(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query member %d: %w", id, err)
	}
	return &m, nil
}

func (r *memberRepository) FindByOwnerAddress(ctx context.Context, tenantID int64, ownerName, address string) (*models.PreRegisteredMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM pre_registered_members
		WHERE tenant_id = $1 AND owner_name = $2 AND address = $3
		ORDER BY id
		LIMIT 1
	`
	m, err := scanMember(r.db.Pool.QueryRow(ctx, query, tenantID, ownerName, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query member (tenant=%d, owner=%q): %w", tenantID, ownerName, err)
	}
	return &m, nil
}

func (r *memberRepository) Insert(ctx context.Context, member *models.PreRegisteredMember) error {
	query := `
		INSERT INTO pre_registered_members
			(tenant_id, owner_name, address, phone, dong, ho,
			 land_area, land_ratio, building_area, building_ratio,
			 official_value, notes, pnu, building_unit_id, matched)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		member.TenantID,
		member.OwnerName,
		member.Address,
		member.Phone,
		member.Dong,
		member.Ho,
		member.LandArea,
		member.LandRatio,
		member.BuildingArea,
		member.BuildingRatio,
		member.OfficialValue,
		member.Notes,
		member.PNU,
		member.BuildingUnitID,
		member.Matched,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert member (tenant=%d, owner=%q): %w", member.TenantID, member.OwnerName, err)
	}
	return nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.PreRegisteredMember) error {
	query := `
		UPDATE pre_registered_members
		SET owner_name = $2, address = $3, phone = $4, dong = $5, ho = $6,
		    land_area = $7, land_ratio = $8, building_area = $9, building_ratio = $10,
		    official_value = $11, notes = $12, pnu = $13, building_unit_id = $14,
		    matched = $15, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		member.ID,
		member.OwnerName,
		member.Address,
		member.Phone,
		member.Dong,
		member.Ho,
		member.LandArea,
		member.LandRatio,
		member.BuildingArea,
		member.BuildingRatio,
		member.OfficialValue,
		member.Notes,
		member.PNU,
		member.BuildingUnitID,
		member.Matched,
	)
	if err != nil {
		return fmt.Errorf("failed to update member %d: %w", member.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %d does not exist", member.ID)
	}
	return nil
}

func (r *memberRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM pre_registered_members WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete member %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *memberRepository) DeleteByTenant(ctx context.Context, tenantID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM pre_registered_members WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete members for tenant %d: %w", tenantID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *memberRepository) ListByTenant(ctx context.Context, tenantID int64, afterID int64, limit int) ([]models.PreRegisteredMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM pre_registered_members
		WHERE tenant_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`
	rows, err := r.db.Pool.Query(ctx, query, tenantID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list members for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	members := []models.PreRegisteredMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

func (r *memberRepository) CountByTenant(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM pre_registered_members WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members for tenant %d: %w", tenantID, err)
	}
	return count, nil
}
