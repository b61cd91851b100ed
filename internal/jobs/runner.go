package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// ErrJobInProgress is returned when a tenant already has a live job of the
// same kind. A new submission is rejected rather than run in parallel, which
// would race duplicate matching against the same member rows.
var ErrJobInProgress = errors.New("a job of this kind is already in progress for this tenant")

// Task is the body of one job. It processes its row set in chunks and calls
// tracker.Advance after each chunk. A returned error is fatal to the job;
// per-row failures belong in the chunk summaries instead.
type Task func(ctx context.Context, tracker *Tracker) error

// Runner executes jobs on a bounded worker pool, one task per job. Submission
// returns the job id immediately; callers poll the job record for status.
type Runner struct {
	repo repository.JobRepository
	log  *logger.Logger

	// maxRowErrors bounds the per-row error messages each job retains.
	maxRowErrors int

	// sem bounds the number of concurrently running jobs.
	sem chan struct{}
	wg  sync.WaitGroup

	// submitMu serializes the liveness check against job creation so the
	// at-most-one-live-job-per-(tenant, kind) invariant holds across
	// concurrent submissions.
	submitMu sync.Mutex

	// baseCtx detaches job execution from the submitting request.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewRunner creates a Runner with the given worker pool size. maxRowErrors
// bounds the per-row error messages retained on each job record; a
// non-positive value falls back to models.DefaultMaxRowErrors.
func NewRunner(repo repository.JobRepository, workers, maxRowErrors int, log *logger.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		repo:         repo,
		log:          log,
		maxRowErrors: maxRowErrors,
		sem:          make(chan struct{}, workers),
		baseCtx:      ctx,
		cancel:       cancel,
	}
}

// Submit creates a PENDING job and schedules task for execution. It returns
// ErrJobInProgress when the tenant already has a live job of this kind. The
// returned id is valid for polling immediately.
func (r *Runner) Submit(ctx context.Context, tenantID int64, kind models.JobKind, totalCount int, task Task) (uuid.UUID, error) {
	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	live, err := r.repo.HasProcessing(ctx, tenantID, kind)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check live jobs: %w", err)
	}
	if live {
		return uuid.Nil, ErrJobInProgress
	}

	job := &models.SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       kind,
		Status:     models.JobPending,
		TotalCount: totalCount,
	}
	if err := r.repo.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}

	r.log.Info("Job submitted", map[string]interface{}{
		"job_id":      job.ID.String(),
		"tenant_id":   tenantID,
		"kind":        string(kind),
		"total_count": totalCount,
	})

	r.wg.Add(1)
	go r.run(job.ID, totalCount, task)

	return job.ID, nil
}

// run executes one job to a terminal state. Jobs always end COMPLETED or
// FAILED; there is no mid-flight cancellation contract, so execution uses the
// runner's base context rather than the submitting request's.
func (r *Runner) run(jobID uuid.UUID, totalCount int, task Task) {
	defer r.wg.Done()

	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	ctx := r.baseCtx
	tracker := NewTracker(r.repo, jobID, totalCount, r.maxRowErrors)

	// A job that cannot start still has to reach a terminal state: leaving
	// it PENDING would block the (tenant, kind) slot forever.
	if err := r.repo.MarkProcessing(ctx, jobID); err != nil {
		r.fail(ctx, jobID, tracker, fmt.Errorf("failed to start job: %w", err))
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, jobID, tracker, fmt.Errorf("panic: %v", p))
		}
	}()

	if err := task(ctx, tracker); err != nil {
		r.fail(ctx, jobID, tracker, err)
		return
	}

	if err := r.repo.Complete(ctx, jobID, tracker.Result()); err != nil {
		r.log.Error("Failed to complete job", err, map[string]interface{}{
			"job_id": jobID.String(),
		})
		return
	}

	r.log.Info("Job completed", map[string]interface{}{
		"job_id":    jobID.String(),
		"processed": tracker.Processed(),
	})
}

// fail terminates a job as FAILED, keeping the partial summary accumulated so
// far. Already-committed chunk results stay valid.
func (r *Runner) fail(ctx context.Context, jobID uuid.UUID, tracker *Tracker, cause error) {
	r.log.Error("Job failed", cause, map[string]interface{}{
		"job_id":    jobID.String(),
		"processed": tracker.Processed(),
	})
	if err := r.repo.Fail(ctx, jobID, cause.Error(), tracker.Result()); err != nil {
		r.log.Error("Failed to record job failure", err, map[string]interface{}{
			"job_id": jobID.String(),
		})
	}
}

// Shutdown waits for in-flight jobs to finish, up to ctx's deadline.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return fmt.Errorf("shutdown timed out with jobs still running: %w", ctx.Err())
	}
}
