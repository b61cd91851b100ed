package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/matching"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// fakeMatcher resolves candidates from a fixed address -> result table.
// Unknown addresses are unmatched.
type fakeMatcher struct {
	results map[string]matching.Result
	failAll bool
	calls   int
}

func (f *fakeMatcher) Match(_ context.Context, candidate models.CandidateRecord) (matching.Result, error) {
	f.calls++
	if f.failAll {
		return matching.Result{}, errors.New("registry unavailable")
	}
	if result, ok := f.results[candidate.Address]; ok {
		return result, nil
	}
	return matching.Result{Outcome: matching.OutcomeUnmatched}, nil
}

// fakeMemberRepo is an in-memory MemberRepository.
type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[int64]*models.PreRegisteredMember
	nextID  int64
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: map[int64]*models.PreRegisteredMember{}, nextID: 1}
}

func (f *fakeMemberRepo) GetByID(_ context.Context, id int64) (*models.PreRegisteredMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[id]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (f *fakeMemberRepo) FindByOwnerAddress(_ context.Context, tenantID int64, ownerName, address string) (*models.PreRegisteredMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, member := range f.members {
		if member.TenantID == tenantID && member.OwnerName == ownerName && member.Address == address {
			copied := *member
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeMemberRepo) Insert(_ context.Context, member *models.PreRegisteredMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	member.ID = f.nextID
	f.nextID++
	copied := *member
	f.members[member.ID] = &copied
	return nil
}

func (f *fakeMemberRepo) Update(_ context.Context, member *models.PreRegisteredMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[member.ID]; !ok {
		return errors.New("member does not exist")
	}
	copied := *member
	f.members[member.ID] = &copied
	return nil
}

func (f *fakeMemberRepo) DeleteByID(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return false, nil
	}
	delete(f.members, id)
	return true, nil
}

func (f *fakeMemberRepo) DeleteByTenant(_ context.Context, tenantID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, member := range f.members {
		if member.TenantID == tenantID {
			delete(f.members, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeMemberRepo) ListByTenant(_ context.Context, tenantID int64, afterID int64, limit int) ([]models.PreRegisteredMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var page []models.PreRegisteredMember
	for id := afterID + 1; id < f.nextID && len(page) < limit; id++ {
		if member, ok := f.members[id]; ok && member.TenantID == tenantID {
			page = append(page, *member)
		}
	}
	return page, nil
}

func (f *fakeMemberRepo) CountByTenant(_ context.Context, tenantID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, member := range f.members {
		if member.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMemberRepo) byTenant(tenantID int64) []models.PreRegisteredMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PreRegisteredMember
	for id := int64(1); id < f.nextID; id++ {
		if member, ok := f.members[id]; ok && member.TenantID == tenantID {
			out = append(out, *member)
		}
	}
	return out
}

// fakeJobRepo is an in-memory JobRepository backing the runner in service
// tests.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.SyncJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*models.SyncJob{}}
}

func (f *fakeJobRepo) Create(_ context.Context, job *models.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobPending {
		return errors.New("job is not pending")
	}
	job.Status = models.JobProcessing
	return nil
}

func (f *fakeJobRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress int, result *models.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobProcessing {
		return errors.New("job is not processing")
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Result = result
	return nil
}

func (f *fakeJobRepo) Complete(_ context.Context, id uuid.UUID, result *models.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobProcessing {
		return errors.New("job is not processing")
	}
	job.Status = models.JobCompleted
	job.Progress = 100
	job.Result = result
	return nil
}

func (f *fakeJobRepo) Fail(_ context.Context, id uuid.UUID, errSummary string, partial *models.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return errors.New("job is not live")
	}
	job.Status = models.JobFailed
	job.Error = &errSummary
	job.Result = partial
	return nil
}

func (f *fakeJobRepo) HasProcessing(_ context.Context, tenantID int64, kind models.JobKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.TenantID == tenantID && job.Kind == kind && !job.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeJobRepo) MarkPublished(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobCompleted {
		return errors.New("job is not completed")
	}
	job.IsPublished = true
	return nil
}

func (f *fakeJobRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return false, nil
	}
	delete(f.jobs, id)
	return true, nil
}

var _ repository.JobRepository = (*fakeJobRepo)(nil)
var _ repository.MemberRepository = (*fakeMemberRepo)(nil)

func testLogger() *logger.Logger {
	return logger.New("test")
}

// awaitJob polls until the job is terminal.
func awaitJob(t *testing.T, repo *fakeJobRepo, jobID uuid.UUID) *models.SyncJob {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		job, err := repo.GetByID(context.Background(), jobID)
		require.NoError(t, err)
		require.NotNil(t, job)
		if job.Status.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never finished (status %s)", jobID, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
