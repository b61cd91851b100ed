package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies what kind of work a SyncJob performs. All kinds share
// the same tracking model and state machine.
type JobKind string

const (
	JobPreRegister    JobKind = "PRE_REGISTER"
	JobSyncProperties JobKind = "SYNC_PROPERTIES"
	JobGISCollect     JobKind = "GIS_COLLECT"
	JobConsentBulk    JobKind = "CONSENT_BULK"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobPreRegister, JobSyncProperties, JobGISCollect, JobConsentBulk:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a SyncJob.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DefaultMaxRowErrors is the default bound on per-row error messages retained
// on a job result, so a pathological batch cannot bloat the job record. The
// job tracker may carry a configured bound instead.
const DefaultMaxRowErrors = 20

// JobResult is the incrementally merged outcome summary of a job. Counts only
// grow while a job is PROCESSING.
type JobResult struct {
	MatchedCount   int      `json:"matchedCount"`
	UnmatchedCount int      `json:"unmatchedCount"`
	SavedCount     int      `json:"savedCount"`
	UpdatedCount   int      `json:"updatedCount"`
	DuplicateCount int      `json:"duplicateCount"`
	SyncedCount    int      `json:"syncedCount"`
	SkippedCount   int      `json:"skippedCount"`
	FailedCount    int      `json:"failedCount"`
	Errors         []string `json:"errors"`
}

// Merge adds the counts of other into r and appends its error messages up to
// the default bound.
func (r *JobResult) Merge(other JobResult) {
	r.MergeBounded(other, DefaultMaxRowErrors)
}

// MergeBounded adds the counts of other into r and appends its error messages
// up to maxErrors retained messages.
func (r *JobResult) MergeBounded(other JobResult, maxErrors int) {
	r.MatchedCount += other.MatchedCount
	r.UnmatchedCount += other.UnmatchedCount
	r.SavedCount += other.SavedCount
	r.UpdatedCount += other.UpdatedCount
	r.DuplicateCount += other.DuplicateCount
	r.SyncedCount += other.SyncedCount
	r.SkippedCount += other.SkippedCount
	r.FailedCount += other.FailedCount
	for _, msg := range other.Errors {
		r.addError(msg, maxErrors)
	}
}

// AddError records a per-row error message, dropping it once the default
// bound is reached. The count fields still reflect every failure.
func (r *JobResult) AddError(msg string) {
	r.addError(msg, DefaultMaxRowErrors)
}

func (r *JobResult) addError(msg string, maxErrors int) {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxRowErrors
	}
	if len(r.Errors) >= maxErrors {
		return
	}
	r.Errors = append(r.Errors, msg)
}

// SyncJob is one unit of asynchronous batch work. Result is nil until the
// first chunk completes; Error is set only on FAILED.
type SyncJob struct {
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	Result      *JobResult `json:"result,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ID          uuid.UUID  `json:"id"`
	TenantID    int64      `json:"tenantId"`
	Progress    int        `json:"progress"`
	TotalCount  int        `json:"totalCount"`
	IsPublished bool       `json:"isPublished"`
}
