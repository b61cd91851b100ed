package jobs

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/repository"
)

// Tracker accumulates a job's result summary and persists progress after
// each chunk. Chunks are processed in input order by a single goroutine, so
// the cumulative summary reflects exactly the rows processed so far and
// counts only grow.
type Tracker struct {
	repo      repository.JobRepository
	jobID     uuid.UUID
	total     int
	maxErrors int
	processed int
	result    models.JobResult
}

// NewTracker creates a tracker for a PROCESSING job with the given total row
// count. maxErrors bounds the per-row error messages retained on the job
// record; a non-positive value falls back to models.DefaultMaxRowErrors.
func NewTracker(repo repository.JobRepository, jobID uuid.UUID, total, maxErrors int) *Tracker {
	if maxErrors <= 0 {
		maxErrors = models.DefaultMaxRowErrors
	}
	return &Tracker{repo: repo, jobID: jobID, total: total, maxErrors: maxErrors}
}

// Advance merges one chunk's summary, advances the processed-row count, and
// persists the updated progress percentage. An error here is fatal to the
// job: if progress cannot be written, the job record would otherwise appear
// to hang.
func (t *Tracker) Advance(ctx context.Context, rows int, chunk models.JobResult) error {
	t.result.MergeBounded(chunk, t.maxErrors)
	t.processed += rows

	if err := t.repo.UpdateProgress(ctx, t.jobID, t.Progress(), &t.result); err != nil {
		return fmt.Errorf("failed to persist job progress: %w", err)
	}
	return nil
}

// Progress returns the current percentage, rounded, in [0,100].
func (t *Tracker) Progress() int {
	if t.total <= 0 {
		return 100
	}
	p := int(math.Round(float64(t.processed) / float64(t.total) * 100))
	if p > 100 {
		p = 100
	}
	return p
}

// Processed returns the number of rows handled so far.
func (t *Tracker) Processed() int {
	return t.processed
}

// Result returns the summary accumulated so far. Nil until the first chunk
// lands, matching the wire contract of a result-less job.
func (t *Tracker) Result() *models.JobResult {
	if t.processed == 0 && isZero(t.result) {
		return nil
	}
	return &t.result
}

func isZero(r models.JobResult) bool {
	return r.MatchedCount == 0 && r.UnmatchedCount == 0 && r.SavedCount == 0 &&
		r.UpdatedCount == 0 && r.DuplicateCount == 0 && r.SyncedCount == 0 &&
		r.SkippedCount == 0 && r.FailedCount == 0 && len(r.Errors) == 0
}

// Chunks splits n items into consecutive [start, end) ranges of at most size.
func Chunks(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	ranges := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
