package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/jobscheduler"
)

type jobRun struct {
	jobName     string
	league      string
	status      jobscheduler.RunStatus
	completedAt time.Time
	updatedAt   time.Time
}

// JobRunRepository is the run ledger for processes without a SQL store. It
// only remembers runs of the current process.
type JobRunRepository struct {
	mu   sync.Mutex
	runs map[string]jobRun
}

func NewJobRunRepository() *JobRunRepository {
	return &JobRunRepository{runs: make(map[string]jobRun)}
}

func (r *JobRunRepository) UpsertEvent(_ context.Context, event jobscheduler.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runs[event.RunID]
	run.jobName = event.JobName
	run.league = event.League
	run.updatedAt = event.OccurredAt
	// A finished run never goes back to started.
	if run.status == "" || event.Status != jobscheduler.StatusStarted {
		run.status = event.Status
	}
	if event.Status == jobscheduler.StatusCompleted {
		run.completedAt = event.OccurredAt
	}
	r.runs[event.RunID] = run
	return nil
}

func (r *JobRunRepository) LastCompleted(_ context.Context, jobName, league string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last time.Time
	for _, run := range r.runs {
		if run.jobName != jobName || run.league != league || run.status != jobscheduler.StatusCompleted {
			continue
		}
		if run.completedAt.After(last) {
			last = run.completedAt
		}
	}
	return last, !last.IsZero(), nil
}

func (r *JobRunRepository) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, run := range r.runs {
		if run.updatedAt.Before(before) {
			delete(r.runs, id)
			purged++
		}
	}
	return purged, nil
}
