package models

import (
	"time"
)

// Parcel represents one land parcel in the GIS registry, keyed by PNU.
// The registry is populated by an external import pipeline; this subsystem
// consumes it read-only. All nullable fields use pointers to distinguish
// between zero values and NULL.
type Parcel struct {
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	PNU           string        `json:"pnu"`
	Address       string        `json:"address"`
	RoadAddress   *string       `json:"roadAddress,omitempty"`
	Area          *float64      `json:"area,omitempty"`
	OfficialValue *int64        `json:"officialValue,omitempty"`
	Geom          *MultiPolygon `json:"geometry,omitempty"`
	OwnerCount    int           `json:"ownerCount"`
	ID            int64         `json:"id"`
}

// BuildingUnit is one addressable unit (dong/ho) inside a building on a parcel.
// Dong and ho are stored in normalized form.
type BuildingUnit struct {
	CreatedAt    time.Time `json:"createdAt"`
	BuildingName *string   `json:"buildingName,omitempty"`
	Dong         *string   `json:"dong,omitempty"`
	Ho           *string   `json:"ho,omitempty"`
	ID           int64     `json:"id"`
	ParcelID     int64     `json:"parcelId"`
}
