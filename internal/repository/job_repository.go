package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/unionbase/jibun/api/internal/database"
	"github.com/unionbase/jibun/api/internal/models"
)

// JobRepository defines data access for sync jobs. While a job is
// PROCESSING, UpdateProgress is the only mutation path to its record; there
// is no concurrent external writer.
type JobRepository interface {
	// Create persists a new PENDING job.
	Create(ctx context.Context, job *models.SyncJob) error

	// GetByID returns a job, or nil, nil when it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)

	// MarkProcessing moves a PENDING job to PROCESSING.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// UpdateProgress writes the current progress percentage and merged
	// result summary of a PROCESSING job.
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, result *models.JobResult) error

	// Complete terminates a job as COMPLETED with its final summary.
	Complete(ctx context.Context, id uuid.UUID, result *models.JobResult) error

	// Fail terminates a job as FAILED, preserving whatever partial summary
	// had accumulated.
	Fail(ctx context.Context, id uuid.UUID, errSummary string, partial *models.JobResult) error

	// HasProcessing reports whether the tenant already has a PENDING or
	// PROCESSING job of the given kind.
	HasProcessing(ctx context.Context, tenantID int64, kind models.JobKind) (bool, error)

	// MarkPublished sets the is_published flag on a terminal job.
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// Delete removes a job record. It never touches the data the job
	// produced. Returns false when the job did not exist.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// jobRepository is the concrete implementation of JobRepository.
type jobRepository struct {
	db *database.Database
}

// NewJobRepository creates a new instance of JobRepository.
func NewJobRepository(db *database.Database) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (id, tenant_id, kind, status, progress, total_count, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.TenantID,
		job.Kind,
		job.Status,
		job.Progress,
		job.TotalCount,
		job.IsPublished,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	query := `
		SELECT id, tenant_id, kind, status, progress, total_count, result, error,
		       is_published, created_at, updated_at
		FROM sync_jobs
		WHERE id = $1
	`
	var job models.SyncJob
	var resultJSON []byte
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.TenantID,
		&job.Kind,
		&job.Status,
		&job.Progress,
		&job.TotalCount,
		&resultJSON,
		&job.Error,
		&job.IsPublished,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query job %s: %w", id, err)
	}

	if resultJSON != nil {
		var result models.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result for job %s: %w", id, err)
		}
		job.Result = &result
	}
	return &job, nil
}

func (r *jobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sync_jobs
		SET status = 'PROCESSING', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not pending", id)
	}
	return nil
}

func (r *jobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, result *models.JobResult) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	// greatest() keeps progress monotonic even if a stale write slips in.
	query := `
		UPDATE sync_jobs
		SET progress = greatest(progress, $2), result = $3, updated_at = now()
		WHERE id = $1 AND status = 'PROCESSING'
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, progress, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to update progress for job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not processing", id)
	}
	return nil
}

func (r *jobRepository) Complete(ctx context.Context, id uuid.UUID, result *models.JobResult) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	query := `
		UPDATE sync_jobs
		SET status = 'COMPLETED', progress = 100, result = $2, updated_at = now()
		WHERE id = $1 AND status = 'PROCESSING'
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not processing", id)
	}
	return nil
}

func (r *jobRepository) Fail(ctx context.Context, id uuid.UUID, errSummary string, partial *models.JobResult) error {
	resultJSON, err := marshalResult(partial)
	if err != nil {
		return err
	}
	query := `
		UPDATE sync_jobs
		SET status = 'FAILED', error = $2, result = $3, updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, errSummary, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is already terminal", id)
	}
	return nil
}

func (r *jobRepository) HasProcessing(ctx context.Context, tenantID int64, kind models.JobKind) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sync_jobs
			WHERE tenant_id = $1 AND kind = $2 AND status IN ('PENDING', 'PROCESSING')
		)
	`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, tenantID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check processing jobs (tenant=%d, kind=%s): %w", tenantID, kind, err)
	}
	return exists, nil
}

func (r *jobRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sync_jobs
		SET is_published = true, updated_at = now()
		WHERE id = $1 AND status = 'COMPLETED'
	`
	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to publish job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not completed", id)
	}
	return nil
}

func (r *jobRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sync_jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func marshalResult(result *models.JobResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}
	return data, nil
}
