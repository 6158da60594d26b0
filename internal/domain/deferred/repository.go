package deferred

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, item Deletion) (Deletion, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Deletion, error)
	Delete(ctx context.Context, id int64) error
}
