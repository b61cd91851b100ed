package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// Service-level errors
var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobNotTerminal = errors.New("job has not finished")
)

// JobService exposes the pollable job surface: status, deletion and
// publishing of completed output.
type JobService interface {
	// Status returns the current job record. Side-effect free, safe to poll
	// at short intervals. Returns ErrJobNotFound for an unknown id.
	Status(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)

	// Delete removes a terminal job's record without touching the data the
	// job produced. Returns ErrJobNotTerminal while the job is live.
	Delete(ctx context.Context, id uuid.UUID) error

	// Publish promotes a COMPLETED job's output to visible state.
	Publish(ctx context.Context, id uuid.UUID) error
}

// jobService is the concrete implementation of JobService.
type jobService struct {
	repo repository.JobRepository
	log  *logger.Logger
}

// NewJobService creates a new instance of JobService.
func NewJobService(repo repository.JobRepository, log *logger.Logger) JobService {
	return &jobService{repo: repo, log: log}
}

func (s *jobService) Status(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *jobService) Delete(ctx context.Context, id uuid.UUID) error {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Status.Terminal() {
		return ErrJobNotTerminal
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	if !deleted {
		return ErrJobNotFound
	}

	s.log.Info("Job record deleted", map[string]interface{}{
		"job_id": id.String(),
	})
	return nil
}

func (s *jobService) Publish(ctx context.Context, id uuid.UUID) error {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.Status != models.JobCompleted {
		return ErrJobNotTerminal
	}

	if err := s.repo.MarkPublished(ctx, id); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", id, err)
	}
	return nil
}
