package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-trading/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/sports-trading/internal/platform/querybuilder"
)

type JobRunRepository struct {
	db *sqlx.DB
}

func NewJobRunRepository(db *sqlx.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) UpsertEvent(ctx context.Context, event jobscheduler.RunEvent) error {
	query, args, err := buildJobRunUpsert(event, time.Now().UTC())
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job run run_id=%s status=%s: %w", event.RunID, event.Status, err)
	}
	return nil
}

// LastCompleted returns the most recent completion of a job for a league.
// Global jobs use an empty league.
func (r *JobRunRepository) LastCompleted(ctx context.Context, jobName, league string) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(completed_at)").
		From("job_runs").
		Where(
			qb.Eq("job_name", strings.TrimSpace(jobName)),
			qb.Eq("league", strings.ToLower(strings.TrimSpace(league))),
			qb.Eq("status", string(jobscheduler.StatusCompleted)),
		).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build last completed job run query: %w", err)
	}

	var last sql.NullTime
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("last completed job run job=%s league=%s: %w", jobName, league, err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}

func (r *JobRunRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := qb.DeleteFrom("job_runs").Where(qb.Lt("updated_at", before.UTC())).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build purge job runs query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge job runs before=%s: %w", before.Format(time.RFC3339), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge job runs rows affected: %w", err)
	}
	return affected, nil
}

func buildJobRunUpsert(event jobscheduler.RunEvent, now time.Time) (string, []any, error) {
	runID := strings.TrimSpace(event.RunID)
	if runID == "" {
		return "", nil, fmt.Errorf("run id is required")
	}

	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	trigger := strings.TrimSpace(event.Trigger)
	if trigger == "" {
		trigger = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = now
	}

	payloadJSON, err := encodeJSONMap(event.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal job run payload: %w", err)
	}

	model := jobRunInsertModel{
		RunID:      runID,
		JobName:    jobName,
		League:     strings.ToLower(strings.TrimSpace(event.League)),
		TargetDate: optionalString(event.TargetDate),
		Trigger:    trigger,
		Payload:    payloadJSON,
		Status:     string(event.Status),
		LastError:  optionalString(event.ErrorMessage),
	}

	switch event.Status {
	case jobscheduler.StatusStarted:
		model.StartedAt = &occurredAt
		model.StartedTraceID = optionalString(event.TraceID)
		model.StartedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case jobscheduler.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	default:
		return "", nil, fmt.Errorf("unknown job run status %q", event.Status)
	}

	query, args, err := qb.InsertModel("job_runs", model, `ON CONFLICT (run_id)
DO UPDATE SET
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    started_at = COALESCE(job_runs.started_at, EXCLUDED.started_at),
    completed_at = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_at
        ELSE job_runs.completed_at
    END,
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'completed' THEN NULL
        ELSE job_runs.failed_at
    END,
    last_error = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error
        ELSE NULL
    END,
    started_trace_id = COALESCE(job_runs.started_trace_id, EXCLUDED.started_trace_id),
    started_span_id = COALESCE(job_runs.started_span_id, EXCLUDED.started_span_id),
    completed_trace_id = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_trace_id
        ELSE job_runs.completed_trace_id
    END,
    completed_span_id = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_span_id
        ELSE job_runs.completed_span_id
    END,
    failed_trace_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_trace_id
        ELSE job_runs.failed_trace_id
    END,
    failed_span_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_span_id
        ELSE job_runs.failed_span_id
    END,
    updated_at = NOW()`)
	if err != nil {
		return "", nil, fmt.Errorf("build upsert job run query: %w", err)
	}
	return query, args, nil
}
