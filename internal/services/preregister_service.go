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
	"github.com/unionbase/jibun/api/internal/normalize"
	"github.com/unionbase/jibun/api/internal/repository"
)

// Service-level errors
var (
	ErrEmptyUpload = errors.New("no processable rows after fan-out")
)

// ParcelMatcher resolves a normalized candidate against the parcel registry.
// Implemented by matching.Matcher; narrowed to an interface so services can
// be tested without a registry.
type ParcelMatcher interface {
	Match(ctx context.Context, candidate models.CandidateRecord) (matching.Result, error)
}

// PreRegisterService defines the bulk upload pipeline: normalization,
// fan-out, matching and persistence of pre-registered members, tracked as an
// asynchronous PRE_REGISTER job.
type PreRegisterService interface {
	// SubmitUpload validates and fans out rows, then schedules the batch
	// job. Returns the job id immediately, ErrEmptyUpload when nothing
	// remains after fan-out, or jobs.ErrJobInProgress when the tenant
	// already has a live upload job.
	SubmitUpload(ctx context.Context, tenantID int64, rows []models.RawOwnershipRow) (uuid.UUID, error)
}

// preRegisterService is the concrete implementation of PreRegisterService.
type preRegisterService struct {
	runner    *jobs.Runner
	members   repository.MemberRepository
	matcher   ParcelMatcher
	chunkSize int
	log       *logger.Logger
}

// NewPreRegisterService creates a new instance of PreRegisterService.
func NewPreRegisterService(runner *jobs.Runner, members repository.MemberRepository, matcher ParcelMatcher, chunkSize int, log *logger.Logger) PreRegisterService {
	return &preRegisterService{
		runner:    runner,
		members:   members,
		matcher:   matcher,
		chunkSize: chunkSize,
		log:       log,
	}
}

// SubmitUpload fans rows out into candidates synchronously so an empty batch
// can be rejected before a job record exists. Rows that fail row-level
// validation are dropped here, counted and reported in the job summary, and
// never abort the batch.
func (s *preRegisterService) SubmitUpload(ctx context.Context, tenantID int64, rows []models.RawOwnershipRow) (uuid.UUID, error) {
	var candidates []models.CandidateRecord
	dropped := models.JobResult{}

	for i, row := range rows {
		expanded, err := normalize.ExpandRow(row)
		if err != nil {
			dropped.FailedCount++
			dropped.AddError(fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		candidates = append(candidates, expanded...)
	}

	if len(candidates) == 0 {
		return uuid.Nil, ErrEmptyUpload
	}

	s.log.Info("Upload accepted", map[string]interface{}{
		"tenant_id":  tenantID,
		"rows":       len(rows),
		"candidates": len(candidates),
		"dropped":    dropped.FailedCount,
	})

	task := s.uploadTask(tenantID, candidates, dropped)
	return s.runner.Submit(ctx, tenantID, models.JobPreRegister, len(candidates), task)
}

// uploadTask processes candidates chunk by chunk in input order. Matching
// misses and duplicates are absorbed into the summary; only registry or
// persistence failures abort the job.
func (s *preRegisterService) uploadTask(tenantID int64, candidates []models.CandidateRecord, dropped models.JobResult) jobs.Task {
	return func(ctx context.Context, tracker *jobs.Tracker) error {
		first := true
		for _, bounds := range jobs.Chunks(len(candidates), s.chunkSize) {
			chunk := candidates[bounds[0]:bounds[1]]

			summary, err := s.processChunk(ctx, tenantID, chunk)
			if err != nil {
				return err
			}
			if first {
				// Rows dropped during fan-out surface in the first
				// chunk's summary so the final counts cover the
				// whole upload.
				summary.Merge(dropped)
				first = false
			}

			if err := tracker.Advance(ctx, len(chunk), summary); err != nil {
				return err
			}
		}
		return nil
	}
}

// processChunk matches and persists one chunk of candidates.
func (s *preRegisterService) processChunk(ctx context.Context, tenantID int64, chunk []models.CandidateRecord) (models.JobResult, error) {
	var summary models.JobResult

	for _, candidate := range chunk {
		result, err := s.matcher.Match(ctx, candidate)
		if err != nil {
			// Registry unreachable: the loop itself cannot continue.
			return summary, fmt.Errorf("matching failed for %q: %w", candidate.Address, err)
		}

		switch result.Outcome {
		case matching.OutcomeMatched:
			summary.MatchedCount++
		case matching.OutcomeAmbiguous:
			summary.UnmatchedCount++
			summary.AddError(fmt.Sprintf("ambiguous address %q for owner %q", candidate.Address, candidate.OwnerName))
		default:
			summary.UnmatchedCount++
		}

		existing, err := s.members.FindByOwnerAddress(ctx, tenantID, candidate.OwnerName, candidate.Address)
		if err != nil {
			return summary, fmt.Errorf("duplicate check failed for %q: %w", candidate.Address, err)
		}
		if existing != nil {
			// Same (owner, address) already present for the tenant:
			// original preserved, new row ignored. This keeps a
			// re-submission after a FAILED job from corrupting
			// already-saved members.
			summary.DuplicateCount++
			continue
		}

		member := memberFromCandidate(tenantID, candidate, result)
		if err := s.members.Insert(ctx, &member); err != nil {
			return summary, fmt.Errorf("failed to save member %q: %w", candidate.OwnerName, err)
		}
		summary.SavedCount++
	}

	return summary, nil
}

// memberFromCandidate builds the persisted record for one candidate and its
// matching outcome. PNU present iff matched.
func memberFromCandidate(tenantID int64, candidate models.CandidateRecord, result matching.Result) models.PreRegisteredMember {
	member := models.PreRegisteredMember{
		TenantID:      tenantID,
		OwnerName:     candidate.OwnerName,
		Address:       candidate.Address,
		Phone:         candidate.Phone,
		Dong:          candidate.Dong,
		Ho:            candidate.Ho,
		LandArea:      candidate.LandArea,
		LandRatio:     candidate.LandRatio,
		BuildingArea:  candidate.BuildingArea,
		BuildingRatio: candidate.BuildingRatio,
		OfficialValue: candidate.OfficialValue,
		Notes:         candidate.Notes,
	}
	if result.Outcome == matching.OutcomeMatched {
		pnu := result.PNU
		member.PNU = &pnu
		member.BuildingUnitID = result.BuildingUnitID
		member.Matched = true
	}
	return member
}
