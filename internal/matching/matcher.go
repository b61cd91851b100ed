package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xrash/smetrics"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/normalize"
)

// Outcome classifies a match attempt.
type Outcome string

const (
	// OutcomeMatched means exactly one parcel (and, when dong/ho was given,
	// one building unit) was resolved.
	OutcomeMatched Outcome = "MATCHED"
	// OutcomeUnmatched means no parcel was found for the address. The
	// candidate is retained so an operator can correct and retry.
	OutcomeUnmatched Outcome = "UNMATCHED"
	// OutcomeAmbiguous means several parcels survived matching and the
	// candidate lacked the dong/ho specificity to pick one. Stored as
	// unmatched, but distinguishable in diagnostics.
	OutcomeAmbiguous Outcome = "AMBIGUOUS"
)

// Result is the outcome of matching one candidate. PNU and BuildingUnitID
// are set only when Outcome is OutcomeMatched.
type Result struct {
	Outcome        Outcome
	PNU            string
	ParcelID       int64
	BuildingUnitID *int64
}

// Registry is the read-only view of the parcel registry the matcher needs.
type Registry interface {
	// ParcelsByAddress returns parcels whose canonical address exactly
	// equals or contains the given normalized address key. Empty slice when
	// nothing matches.
	ParcelsByAddress(ctx context.Context, address string) ([]models.Parcel, error)

	// UnitsByParcel returns the building units recorded for a parcel.
	UnitsByParcel(ctx context.Context, parcelID int64) ([]models.BuildingUnit, error)
}

// Jaro-Winkler parameters follow the usual boost threshold and prefix size.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// Matcher resolves normalized candidates to parcels and building units.
// Lookups for a given address key are cached because bulk uploads repeat the
// same lot across many owners.
type Matcher struct {
	registry  Registry
	cache     *lru.Cache[string, []models.Parcel]
	log       *logger.Logger
	threshold float64
}

// New creates a Matcher. threshold is the minimum Jaro-Winkler score for a
// fuzzy address match; cacheSize bounds the address lookup cache.
func New(registry Registry, threshold float64, cacheSize int, log *logger.Logger) (*Matcher, error) {
	cache, err := lru.New[string, []models.Parcel](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parcel cache: %w", err)
	}
	return &Matcher{
		registry:  registry,
		cache:     cache,
		log:       log,
		threshold: threshold,
	}, nil
}

// Match resolves a candidate against the registry. The strategy is staged:
// exact normalized-address equality, then case/whitespace-insensitive
// containment, then Jaro-Winkler scoring with a Levenshtein tie-break. When
// several parcels survive and the candidate has no dong/ho to narrow them,
// the result is ambiguous rather than an arbitrary pick.
//
// Match never returns an error for a miss; errors are reserved for registry
// failures, which are fatal to the surrounding batch loop.
func (m *Matcher) Match(ctx context.Context, candidate models.CandidateRecord) (Result, error) {
	key := normalize.Address(candidate.Address)
	if key == "" {
		return Result{Outcome: OutcomeUnmatched}, nil
	}

	parcels, err := m.lookup(ctx, key)
	if err != nil {
		return Result{}, err
	}

	best := m.selectParcels(key, parcels)
	switch len(best) {
	case 0:
		return Result{Outcome: OutcomeUnmatched}, nil
	case 1:
		// fall through to unit resolution
	default:
		narrowed, err := m.narrowByUnit(ctx, best, candidate)
		if err != nil {
			return Result{}, err
		}
		if narrowed == nil {
			m.log.Debug("Ambiguous address", map[string]interface{}{
				"address":    key,
				"candidates": len(best),
			})
			return Result{Outcome: OutcomeAmbiguous}, nil
		}
		best = []models.Parcel{*narrowed}
	}

	parcel := best[0]
	result := Result{
		Outcome:  OutcomeMatched,
		PNU:      parcel.PNU,
		ParcelID: parcel.ID,
	}

	if candidate.Dong != nil || candidate.Ho != nil {
		unit, err := m.resolveUnit(ctx, parcel.ID, candidate)
		if err != nil {
			return Result{}, err
		}
		if unit != nil {
			result.BuildingUnitID = &unit.ID
		}
	}
	return result, nil
}

// lookup fetches parcel candidates for an address key, via the LRU cache.
func (m *Matcher) lookup(ctx context.Context, key string) ([]models.Parcel, error) {
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}
	parcels, err := m.registry.ParcelsByAddress(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("registry lookup failed for %q: %w", key, err)
	}
	m.cache.Add(key, parcels)
	return parcels, nil
}

// selectParcels filters registry candidates down to plausible matches for
// the address key.
func (m *Matcher) selectParcels(key string, parcels []models.Parcel) []models.Parcel {
	if len(parcels) == 0 {
		return nil
	}

	// Stage 1: exact equality on the normalized address.
	var exact []models.Parcel
	for _, p := range parcels {
		if normalize.Address(p.Address) == key {
			exact = append(exact, p)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	// Stage 2: containment either way, whitespace/case-insensitive.
	var contained []models.Parcel
	for _, p := range parcels {
		addr := normalize.Address(p.Address)
		if strings.Contains(addr, key) || strings.Contains(key, addr) {
			contained = append(contained, p)
		}
	}
	if len(contained) > 0 {
		return contained
	}

	// Stage 3: fuzzy scoring. Keep the best-scoring parcel above the
	// threshold; break score ties with edit distance.
	var (
		best      []models.Parcel
		bestScore float64
		bestDist  int
	)
	for _, p := range parcels {
		addr := normalize.Address(p.Address)
		score := smetrics.JaroWinkler(key, addr, jwBoostThreshold, jwPrefixSize)
		if score < m.threshold {
			continue
		}
		dist := levenshtein.ComputeDistance(key, addr)
		switch {
		case score > bestScore || (score == bestScore && dist < bestDist):
			best = []models.Parcel{p}
			bestScore = score
			bestDist = dist
		case score == bestScore && dist == bestDist:
			best = append(best, p)
		}
	}
	return best
}

// narrowByUnit tries to disambiguate between parcels using the candidate's
// dong/ho: a parcel that actually contains the designated unit wins. Returns
// nil when the candidate has no dong/ho or when no single parcel survives.
func (m *Matcher) narrowByUnit(ctx context.Context, parcels []models.Parcel, candidate models.CandidateRecord) (*models.Parcel, error) {
	if candidate.Dong == nil && candidate.Ho == nil {
		return nil, nil
	}

	var hit *models.Parcel
	for i := range parcels {
		unit, err := m.resolveUnit(ctx, parcels[i].ID, candidate)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			continue
		}
		if hit != nil {
			// Two parcels both contain the unit; still ambiguous.
			return nil, nil
		}
		hit = &parcels[i]
	}
	return hit, nil
}

// resolveUnit finds the building unit within a parcel whose normalized
// dong/ho equal the candidate's. A candidate field that is nil matches any
// unit value; a unit field that is nil only matches a nil candidate field.
func (m *Matcher) resolveUnit(ctx context.Context, parcelID int64, candidate models.CandidateRecord) (*models.BuildingUnit, error) {
	units, err := m.registry.UnitsByParcel(ctx, parcelID)
	if err != nil {
		return nil, fmt.Errorf("unit lookup failed for parcel %d: %w", parcelID, err)
	}
	for i := range units {
		if designatorMatches(candidate.Dong, units[i].Dong) && designatorMatches(candidate.Ho, units[i].Ho) {
			return &units[i], nil
		}
	}
	return nil, nil
}

// designatorMatches compares a candidate designator against a unit's stored
// one. The candidate side being nil is a wildcard.
func designatorMatches(want, have *string) bool {
	if want == nil {
		return true
	}
	if have == nil {
		return false
	}
	normWant := normalize.Designator(*want)
	normHave := normalize.Designator(*have)
	if normWant == nil || normHave == nil {
		return false
	}
	return *normWant == *normHave
}
