package jobscheduler

import (
	"context"
	"time"
)

type Repository interface {
	UpsertEvent(ctx context.Context, event RunEvent) error
	LastCompleted(ctx context.Context, jobName, league string) (time.Time, bool, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}
