package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/unionbase/jibun/api/internal/models"
)

// Row-level validation errors. These drop a single row from a batch; they are
// counted in the job summary, never fatal to the job.
var (
	ErrMissingOwnerName = errors.New("owner name is required")
	ErrMissingLots      = errors.New("legal district and lot number are required")
)

// ExpandRow fans one uploaded row out into one CandidateRecord per lot
// number. The property address of each candidate is the legal-district text
// plus the lot number; dong/ho and both share ratios are normalized here so
// everything downstream works on canonical values.
func ExpandRow(row models.RawOwnershipRow) ([]models.CandidateRecord, error) {
	owner := strings.TrimSpace(row.OwnerName)
	if owner == "" {
		return nil, ErrMissingOwnerName
	}

	district := strings.TrimSpace(row.LegalDistrict)
	lots := splitLots(row.LotNumbers)
	if district == "" || len(lots) == 0 {
		return nil, fmt.Errorf("%w: owner %q", ErrMissingLots, owner)
	}

	phone := optionalString(row.Phone)
	notes := optionalString(row.Notes)
	dong := Designator(row.Dong)
	ho := Designator(row.Ho)
	landArea := Number(row.LandArea)
	landRatio := Ratio(row.LandShareRatio)
	buildingArea := Number(row.BuildingArea)
	buildingRatio := Ratio(row.BuildingShareRatio)
	officialValue := optionalInt(row.OfficialValue)

	candidates := make([]models.CandidateRecord, 0, len(lots))
	for _, lot := range lots {
		candidates = append(candidates, models.CandidateRecord{
			OwnerName:     owner,
			Address:       Address(district + " " + lot),
			Phone:         phone,
			Dong:          dong,
			Ho:            ho,
			LandArea:      landArea,
			LandRatio:     landRatio,
			BuildingArea:  buildingArea,
			BuildingRatio: buildingRatio,
			OfficialValue: officialValue,
			Notes:         notes,
		})
	}
	return candidates, nil
}

// splitLots splits a comma-separated lot-number cell, dropping blanks.
func splitLots(raw string) []string {
	parts := strings.Split(raw, ",")
	lots := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			lots = append(lots, trimmed)
		}
	}
	return lots
}

func optionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalInt(s string) *int64 {
	n := Number(s)
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}
