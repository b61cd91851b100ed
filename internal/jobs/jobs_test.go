package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/unionbase/jibun/api/internal/models"
)

// memJobRepo is an in-memory JobRepository that enforces the same state
// transitions as the SQL implementation.
type memJobRepo struct {
	mu           sync.Mutex
	jobs         map[uuid.UUID]*models.SyncJob
	progressLog  []int
	failProgress bool
	failStart    bool
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[uuid.UUID]*models.SyncJob{}}
}

func (m *memJobRepo) Create(_ context.Context, job *models.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *memJobRepo) MarkProcessing(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStart {
		return errors.New("start write failed")
	}
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobPending {
		return errors.New("job is not pending")
	}
	job.Status = models.JobProcessing
	return nil
}

func (m *memJobRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress int, result *models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failProgress {
		return errors.New("progress write failed")
	}
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobProcessing {
		return errors.New("job is not processing")
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Result = result
	m.progressLog = append(m.progressLog, job.Progress)
	return nil
}

func (m *memJobRepo) Complete(_ context.Context, id uuid.UUID, result *models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobProcessing {
		return errors.New("job is not processing")
	}
	job.Status = models.JobCompleted
	job.Progress = 100
	job.Result = result
	return nil
}

func (m *memJobRepo) Fail(_ context.Context, id uuid.UUID, errSummary string, partial *models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		return errors.New("job is not live")
	}
	job.Status = models.JobFailed
	job.Error = &errSummary
	job.Result = partial
	return nil
}

func (m *memJobRepo) HasProcessing(_ context.Context, tenantID int64, kind models.JobKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.TenantID == tenantID && job.Kind == kind && !job.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memJobRepo) MarkPublished(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobCompleted {
		return errors.New("job is not completed")
	}
	job.IsPublished = true
	return nil
}

func (m *memJobRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}
