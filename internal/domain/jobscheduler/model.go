package jobscheduler

import "time"

type RunStatus string

const (
	StatusStarted   RunStatus = "started"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunEvent is one state transition of a job run.
type RunEvent struct {
	RunID        string
	JobName      string
	League       string
	TargetDate   string
	Trigger      string
	Status       RunStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
