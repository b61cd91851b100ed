package conflict

import (
	"context"
	"errors"

	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// memOwnership is an in-memory OwnershipRepository. WithUnitLock runs fn
// against a snapshot and keeps the mutations only when fn succeeds, mirroring
// transactional rollback.
type memOwnership struct {
	records   []models.OwnershipRecord
	units     map[int64]*models.PropertyUnit
	nextID    int64
	lockCalls int
	failLoads bool
}

func newMemOwnership(records ...models.OwnershipRecord) *memOwnership {
	m := &memOwnership{units: map[int64]*models.PropertyUnit{}}
	for _, rec := range records {
		if rec.ID >= m.nextID {
			m.nextID = rec.ID + 1
		}
		m.records = append(m.records, rec)
	}
	return m
}

func (m *memOwnership) ActiveByUnit(_ context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error) {
	if m.failLoads {
		return nil, errors.New("storage unavailable")
	}
	out := []models.OwnershipRecord{}
	for _, rec := range m.records {
		if rec.PropertyUnitID == propertyUnitID && rec.Status == models.OwnershipActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memOwnership) UnitByID(_ context.Context, unitID int64) (*models.PropertyUnit, error) {
	return m.units[unitID], nil
}

func (m *memOwnership) FindOrCreateUnit(_ context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error) {
	unit.ID = m.nextID
	m.nextID++
	m.units[unit.ID] = &unit
	return &unit, nil
}

func (m *memOwnership) WithUnitLock(ctx context.Context, _ int64, fn func(tx repository.OwnershipTx) error) error {
	m.lockCalls++
	tx := &memOwnershipTx{repo: m, snapshot: append([]models.OwnershipRecord(nil), m.records...)}
	if err := fn(tx); err != nil {
		m.records = tx.snapshot
		return err
	}
	return nil
}

// byUserID returns the stored records for a user, active and archived.
func (m *memOwnership) byUserID(userID int64) []models.OwnershipRecord {
	var out []models.OwnershipRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

type memOwnershipTx struct {
	repo     *memOwnership
	snapshot []models.OwnershipRecord
}

func (t *memOwnershipTx) ActiveByUnit(ctx context.Context, propertyUnitID int64) ([]models.OwnershipRecord, error) {
	return t.repo.ActiveByUnit(ctx, propertyUnitID)
}

func (t *memOwnershipTx) Insert(_ context.Context, record *models.OwnershipRecord) error {
	record.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.records = append(t.repo.records, *record)
	return nil
}

func (t *memOwnershipTx) Update(_ context.Context, record *models.OwnershipRecord) error {
	for i := range t.repo.records {
		if t.repo.records[i].ID == record.ID {
			t.repo.records[i] = *record
			return nil
		}
	}
	return errors.New("record does not exist")
}

func (t *memOwnershipTx) Archive(_ context.Context, recordID int64) error {
	for i := range t.repo.records {
		if t.repo.records[i].ID == recordID && t.repo.records[i].Status == models.OwnershipActive {
			t.repo.records[i].Status = models.OwnershipArchived
			return nil
		}
	}
	return errors.New("record is not active")
}

func ratioPtr(v float64) *float64 { return &v }

func activeRecord(id, userID, unitID int64, name string, typ models.OwnershipType, ratio *float64) models.OwnershipRecord {
	return models.OwnershipRecord{
		ID:             id,
		UserID:         userID,
		PropertyUnitID: unitID,
		OwnerName:      name,
		Type:           typ,
		Status:         models.OwnershipActive,
		ShareRatio:     ratio,
	}
}
