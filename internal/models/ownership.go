package models

import (
	"time"
)

// OwnershipType classifies how a user relates to a property unit.
// FAMILY and PROXY represent delegated access, not equity, and are excluded
// from share-ratio arithmetic.
type OwnershipType string

const (
	OwnershipOwner   OwnershipType = "OWNER"
	OwnershipCoOwner OwnershipType = "CO_OWNER"
	OwnershipFamily  OwnershipType = "FAMILY"
	OwnershipProxy   OwnershipType = "PROXY"
)

// CountsTowardShares reports whether records of this type participate in the
// per-unit 100% share cap.
func (t OwnershipType) CountsTowardShares() bool {
	return t == OwnershipOwner || t == OwnershipCoOwner
}

// Valid reports whether t is a known ownership type.
func (t OwnershipType) Valid() bool {
	switch t {
	case OwnershipOwner, OwnershipCoOwner, OwnershipFamily, OwnershipProxy:
		return true
	}
	return false
}

// OwnershipStatus is the lifecycle state of an ownership record.
// Records are archived on transfer or supersession, never hard-deleted.
type OwnershipStatus string

const (
	OwnershipActive   OwnershipStatus = "ACTIVE"
	OwnershipArchived OwnershipStatus = "ARCHIVED"
)

// ShareTolerance absorbs floating error when summing share ratios against the
// 100% cap.
const ShareTolerance = 0.01

// PropertyUnit is the tenant-scoped canonical identity of one ownable unit:
// a parcel, optionally narrowed to a building unit by dong/ho.
type PropertyUnit struct {
	CreatedAt      time.Time `json:"createdAt"`
	PNU            string    `json:"pnu"`
	Address        string    `json:"address"`
	Dong           *string   `json:"dong,omitempty"`
	Ho             *string   `json:"ho,omitempty"`
	BuildingUnitID *int64    `json:"buildingUnitId,omitempty"`
	ID             int64     `json:"id"`
	TenantID       int64     `json:"tenantId"`
}

// OwnershipRecord is the canonical, approved ownership fact for a
// (user, property unit) pair. ShareRatio is a percentage in [0,100]; nil
// means full or undefined share.
type OwnershipRecord struct {
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	OwnerName      string          `json:"ownerName"`
	Phone          *string         `json:"phone,omitempty"`
	Type           OwnershipType   `json:"type"`
	Status         OwnershipStatus `json:"status"`
	ShareRatio     *float64        `json:"shareRatio,omitempty"`
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	PropertyUnitID int64           `json:"propertyUnitId"`
}

// SumActiveShares returns the total ACTIVE OWNER/CO_OWNER share percentage in
// records. Nil ratios are excluded: a sole owner with an undefined ratio does
// not consume the cap.
func SumActiveShares(records []OwnershipRecord) float64 {
	var sum float64
	for _, r := range records {
		if r.Status != OwnershipActive || !r.Type.CountsTowardShares() {
			continue
		}
		if r.ShareRatio != nil {
			sum += *r.ShareRatio
		}
	}
	return sum
}
