package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/matching"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/normalize"
	"github.com/unionbase/jibun/api/internal/repository"
)

// ErrMemberNotFound is returned when the referenced pre-registered member
// does not exist.
var ErrMemberNotFound = errors.New("pre-registered member not found")

// RematchInput carries the operator's corrected fields for a manual
// re-match. Empty strings leave the stored value untouched.
type RematchInput struct {
	Address string
	Dong    string
	Ho      string
}

// RematchResult is the outcome of a manual re-match.
type RematchResult struct {
	Member  *models.PreRegisteredMember
	Matched bool
}

// MemberService defines operations on persisted pre-registered members.
type MemberService interface {
	// Rematch normalizes the corrected fields, re-runs matching and updates
	// the member in place. Re-running against the same member never creates
	// a second record. Returns ErrMemberNotFound when the id is unknown.
	Rematch(ctx context.Context, memberID int64, input RematchInput) (RematchResult, error)

	// Delete removes one member. Returns ErrMemberNotFound when absent.
	Delete(ctx context.Context, memberID int64) error

	// ResetTenant hard-deletes all of a tenant's members and returns the
	// number removed.
	ResetTenant(ctx context.Context, tenantID int64) (int64, error)
}

// memberService is the concrete implementation of MemberService.
type memberService struct {
	members repository.MemberRepository
	matcher ParcelMatcher
	log     *logger.Logger
}

// NewMemberService creates a new instance of MemberService.
func NewMemberService(members repository.MemberRepository, matcher ParcelMatcher, log *logger.Logger) MemberService {
	return &memberService{
		members: members,
		matcher: matcher,
		log:     log,
	}
}

// Rematch applies operator corrections and re-resolves the member against
// the registry, synchronously.
func (s *memberService) Rematch(ctx context.Context, memberID int64, input RematchInput) (RematchResult, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return RematchResult{}, fmt.Errorf("failed to load member %d: %w", memberID, err)
	}
	if member == nil {
		return RematchResult{}, ErrMemberNotFound
	}

	if input.Address != "" {
		member.Address = normalize.Address(input.Address)
	}
	if input.Dong != "" {
		member.Dong = normalize.Designator(input.Dong)
	}
	if input.Ho != "" {
		member.Ho = normalize.Designator(input.Ho)
	}

	result, err := s.matcher.Match(ctx, candidateFromMember(member))
	if err != nil {
		return RematchResult{}, fmt.Errorf("matching failed for member %d: %w", memberID, err)
	}

	if result.Outcome == matching.OutcomeMatched {
		pnu := result.PNU
		member.PNU = &pnu
		member.BuildingUnitID = result.BuildingUnitID
		member.Matched = true
	} else {
		member.PNU = nil
		member.BuildingUnitID = nil
		member.Matched = false
	}

	if err := s.members.Update(ctx, member); err != nil {
		return RematchResult{}, fmt.Errorf("failed to update member %d: %w", memberID, err)
	}

	s.log.Info("Member re-matched", map[string]interface{}{
		"member_id": memberID,
		"matched":   member.Matched,
		"outcome":   string(result.Outcome),
	})

	return RematchResult{Member: member, Matched: member.Matched}, nil
}

func (s *memberService) Delete(ctx context.Context, memberID int64) error {
	deleted, err := s.members.DeleteByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete member %d: %w", memberID, err)
	}
	if !deleted {
		return ErrMemberNotFound
	}
	return nil
}

func (s *memberService) ResetTenant(ctx context.Context, tenantID int64) (int64, error) {
	removed, err := s.members.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset members for tenant %d: %w", tenantID, err)
	}
	s.log.Info("Tenant members reset", map[string]interface{}{
		"tenant_id": tenantID,
		"removed":   removed,
	})
	return removed, nil
}

// candidateFromMember rebuilds the matching input from a stored member.
func candidateFromMember(member *models.PreRegisteredMember) models.CandidateRecord {
	return models.CandidateRecord{
		OwnerName:     member.OwnerName,
		Address:       member.Address,
		Phone:         member.Phone,
		Dong:          member.Dong,
		Ho:            member.Ho,
		LandArea:      member.LandArea,
		LandRatio:     member.LandRatio,
		BuildingArea:  member.BuildingArea,
		BuildingRatio: member.BuildingRatio,
		OfficialValue: member.OfficialValue,
		Notes:         member.Notes,
	}
}
