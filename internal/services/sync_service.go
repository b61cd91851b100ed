package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/unionbase/jibun/api/internal/jobs"
	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/matching"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// ErrNoMembers is returned when a sync is requested for a tenant with no
// pre-registered members.
var ErrNoMembers = errors.New("tenant has no pre-registered members to sync")

// SyncService re-resolves a tenant's stored members against the parcel
// registry as an asynchronous SYNC_PROPERTIES job, picking up registry
// changes since the original upload.
type SyncService interface {
	// SubmitSync schedules a registry sync for the tenant and returns the
	// job id. Returns ErrNoMembers for an empty tenant and
	// jobs.ErrJobInProgress when a sync is already live.
	SubmitSync(ctx context.Context, tenantID int64) (uuid.UUID, error)
}

// syncService is the concrete implementation of SyncService.
type syncService struct {
	runner    *jobs.Runner
	members   repository.MemberRepository
	matcher   ParcelMatcher
	chunkSize int
	log       *logger.Logger
}

// NewSyncService creates a new instance of SyncService.
func NewSyncService(runner *jobs.Runner, members repository.MemberRepository, matcher ParcelMatcher, chunkSize int, log *logger.Logger) SyncService {
	return &syncService{
		runner:    runner,
		members:   members,
		matcher:   matcher,
		chunkSize: chunkSize,
		log:       log,
	}
}

func (s *syncService) SubmitSync(ctx context.Context, tenantID int64) (uuid.UUID, error) {
	total, err := s.members.CountByTenant(ctx, tenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to count members for tenant %d: %w", tenantID, err)
	}
	if total == 0 {
		return uuid.Nil, ErrNoMembers
	}

	return s.runner.Submit(ctx, tenantID, models.JobSyncProperties, total, s.syncTask(tenantID))
}

// syncTask walks the tenant's members in stable id order, one page per
// chunk. Members whose match outcome changes are updated (synced); members
// already in the right state are skipped. Per-member data problems are
// counted as failed; registry or persistence errors abort the job.
func (s *syncService) syncTask(tenantID int64) jobs.Task {
	return func(ctx context.Context, tracker *jobs.Tracker) error {
		var afterID int64
		for {
			page, err := s.members.ListByTenant(ctx, tenantID, afterID, s.chunkSize)
			if err != nil {
				return fmt.Errorf("failed to page members for tenant %d: %w", tenantID, err)
			}
			if len(page) == 0 {
				return nil
			}
			afterID = page[len(page)-1].ID

			summary, err := s.syncChunk(ctx, page)
			if err != nil {
				return err
			}
			if err := tracker.Advance(ctx, len(page), summary); err != nil {
				return err
			}
		}
	}
}

func (s *syncService) syncChunk(ctx context.Context, page []models.PreRegisteredMember) (models.JobResult, error) {
	var summary models.JobResult

	for i := range page {
		member := &page[i]
		if member.Address == "" {
			summary.FailedCount++
			summary.AddError(fmt.Sprintf("member %d has no address", member.ID))
			continue
		}

		result, err := s.matcher.Match(ctx, candidateFromMember(member))
		if err != nil {
			return summary, fmt.Errorf("matching failed for member %d: %w", member.ID, err)
		}

		if !applyMatch(member, result) {
			summary.SkippedCount++
			continue
		}

		if err := s.members.Update(ctx, member); err != nil {
			return summary, fmt.Errorf("failed to update member %d: %w", member.ID, err)
		}
		summary.SyncedCount++
	}

	return summary, nil
}

// applyMatch writes a match result onto a member and reports whether
// anything changed.
func applyMatch(member *models.PreRegisteredMember, result matching.Result) bool {
	var pnu *string
	var unitID *int64
	matched := false
	if result.Outcome == matching.OutcomeMatched {
		p := result.PNU
		pnu = &p
		unitID = result.BuildingUnitID
		matched = true
	}

	if member.Matched == matched && equalStringPtr(member.PNU, pnu) && equalInt64Ptr(member.BuildingUnitID, unitID) {
		return false
	}
	member.PNU = pnu
	member.BuildingUnitID = unitID
	member.Matched = matched
	return true
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
