package models

import (
	"time"
)

// RawOwnershipRow is one uploaded spreadsheet line as delivered by the file
// parsing layer. All fields are raw strings; nothing has been normalized yet.
// LotNumbers may hold several comma-separated lots owned by the same person,
// in which case the row fans out into one CandidateRecord per lot.
type RawOwnershipRow struct {
	OwnerName         string `json:"ownerName"`
	Phone             string `json:"phone,omitempty"`
	ResidentAddress   string `json:"residentAddress,omitempty"`
	LegalDistrict     string `json:"legalDistrict"`
	LotNumbers        string `json:"lotNumbers"`
	RoadAddress       string `json:"roadAddress,omitempty"`
	BuildingName      string `json:"buildingName,omitempty"`
	Dong              string `json:"dong,omitempty"`
	Ho                string `json:"ho,omitempty"`
	LandArea          string `json:"landArea,omitempty"`
	LandShareRatio    string `json:"landShareRatio,omitempty"`
	BuildingArea      string `json:"buildingArea,omitempty"`
	BuildingShareRatio string `json:"buildingShareRatio,omitempty"`
	OfficialValue     string `json:"officialValue,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// CandidateRecord is one normalized ownership candidate, ready for matching.
// Optional numeric fields are nil when the source cell was blank or zero:
// zero share means "owns none of this component" and is never stored as a 0
// ratio alongside real shares.
type CandidateRecord struct {
	OwnerName     string
	Address       string
	Phone         *string
	Dong          *string
	Ho            *string
	LandArea      *float64
	LandRatio     *float64
	BuildingArea  *float64
	BuildingRatio *float64
	OfficialValue *int64
	Notes         *string
}

// PreRegisteredMember is a persisted candidate together with its matching
// outcome. PNU is nil exactly when the record is unmatched.
type PreRegisteredMember struct {
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	OwnerName      string    `json:"ownerName"`
	Address        string    `json:"address"`
	Phone          *string   `json:"phone,omitempty"`
	Dong           *string   `json:"dong,omitempty"`
	Ho             *string   `json:"ho,omitempty"`
	LandArea       *float64  `json:"landArea,omitempty"`
	LandRatio      *float64  `json:"landRatio,omitempty"`
	BuildingArea   *float64  `json:"buildingArea,omitempty"`
	BuildingRatio  *float64  `json:"buildingRatio,omitempty"`
	OfficialValue  *int64    `json:"officialValue,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	PNU            *string   `json:"pnu,omitempty"`
	BuildingUnitID *int64    `json:"buildingUnitId,omitempty"`
	ID             int64     `json:"id"`
	TenantID       int64     `json:"tenantId"`
	Matched        bool      `json:"matched"`
}
