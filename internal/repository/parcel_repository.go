package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unionbase/jibun/api/internal/database"
	"github.com/unionbase/jibun/api/internal/models"
)

// Maximum number of parcel candidates returned for one address key. A lot
// address should resolve to a handful of parcels at most; anything past this
// bound is noise the matcher would reject anyway.
const maxAddressCandidates = 20

// ParcelRepository is the read-only adapter over the externally populated
// parcel registry. It satisfies the matcher's Registry interface.
type ParcelRepository interface {
	// ParcelsByAddress finds parcels whose canonical address equals or
	// contains the normalized address key. Returns an empty slice when no
	// parcel matches (not an error).
	ParcelsByAddress(ctx context.Context, address string) ([]models.Parcel, error)

	// ParcelByPNU returns the parcel with the given PNU, or nil, nil when
	// it does not exist.
	ParcelByPNU(ctx context.Context, pnu string) (*models.Parcel, error)

	// ParcelAtPoint returns the parcel whose boundary contains the given
	// WGS84 point, or nil, nil when no parcel covers it.
	ParcelAtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error)

	// UnitsByParcel returns the building units recorded for a parcel.
	// Returns an empty slice when the parcel has no units.
	UnitsByParcel(ctx context.Context, parcelID int64) ([]models.BuildingUnit, error)
}

// parcelRepository is the concrete implementation of ParcelRepository.
type parcelRepository struct {
	db *database.Database
}

// NewParcelRepository creates a new instance of ParcelRepository.
func NewParcelRepository(db *database.Database) ParcelRepository {
	return &parcelRepository{
		db: db,
	}
}

const parcelColumns = `
	id, pnu, address, road_address, area, official_value, owner_count,
	ST_AsGeoJSON(geom) as geometry, created_at, updated_at`

// scanParcel reads one parcel row including its optional boundary geometry.
func scanParcel(row pgx.Row) (models.Parcel, error) {
	var parcel models.Parcel
	var geomJSON []byte

	err := row.Scan(
		&parcel.ID,
		&parcel.PNU,
		&parcel.Address,
		&parcel.RoadAddress,
		&parcel.Area,
		&parcel.OfficialValue,
		&parcel.OwnerCount,
		&geomJSON,
		&parcel.CreatedAt,
		&parcel.UpdatedAt,
	)
	if err != nil {
		return parcel, err
	}

	if geomJSON != nil {
		var geom models.MultiPolygon
		if err := geom.Scan(geomJSON); err != nil {
			return parcel, fmt.Errorf("failed to parse geometry for parcel %d: %w", parcel.ID, err)
		}
		parcel.Geom = &geom
	}
	return parcel, nil
}

// ParcelsByAddress queries the registry for candidate parcels. Equality and
// containment both run against upper-cased, whitespace-collapsed addresses so
// the comparison mirrors the normalizer's key. Fuzzy scoring happens in the
// matcher, not in SQL.
func (r *parcelRepository) ParcelsByAddress(ctx context.Context, address string) ([]models.Parcel, error) {
	query := `
		SELECT ` + parcelColumns + `
		FROM parcels
		WHERE upper(regexp_replace(address, '\s+', ' ', 'g')) LIKE '%' || $1 || '%'
		   OR $1 LIKE '%' || upper(regexp_replace(address, '\s+', ' ', 'g')) || '%'
		ORDER BY id
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, address, maxAddressCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels by address %q: %w", address, err)
	}
	defer rows.Close()

	parcels := []models.Parcel{}
	for rows.Next() {
		parcel, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		parcels = append(parcels, parcel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parcel rows: %w", err)
	}
	return parcels, nil
}

// ParcelByPNU looks up a single parcel by its registry identifier.
func (r *parcelRepository) ParcelByPNU(ctx context.Context, pnu string) (*models.Parcel, error) {
	query := `
		SELECT ` + parcelColumns + `
		FROM parcels
		WHERE pnu = $1
	`
	parcel, err := scanParcel(r.db.Pool.QueryRow(ctx, query, pnu))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query parcel by pnu %s: %w", pnu, err)
	}
	return &parcel, nil
}

// ParcelAtPoint runs a point-in-polygon lookup against the registry
// boundaries. ST_Contains uses the spatial index on geom.
func (r *parcelRepository) ParcelAtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	query := `
		SELECT ` + parcelColumns + `
		FROM parcels
		WHERE geom IS NOT NULL
		  AND ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1
	`
	parcel, err := scanParcel(r.db.Pool.QueryRow(ctx, query, lng, lat))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query parcel at point (%f, %f): %w", lat, lng, err)
	}
	return &parcel, nil
}

// UnitsByParcel returns the building units linked to a parcel, ordered for
// deterministic matching.
func (r *parcelRepository) UnitsByParcel(ctx context.Context, parcelID int64) ([]models.BuildingUnit, error) {
	query := `
		SELECT id, parcel_id, building_name, dong, ho, created_at
		FROM building_units
		WHERE parcel_id = $1
		ORDER BY dong NULLS FIRST, ho NULLS FIRST, id
	`
	rows, err := r.db.Pool.Query(ctx, query, parcelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units for parcel %d: %w", parcelID, err)
	}
	defer rows.Close()

	units := []models.BuildingUnit{}
	for rows.Next() {
		var unit models.BuildingUnit
		err := rows.Scan(
			&unit.ID,
			&unit.ParcelID,
			&unit.BuildingName,
			&unit.Dong,
			&unit.Ho,
			&unit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan building unit row: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating building unit rows: %w", err)
	}
	return units, nil
}
