package dailyrecord

import "context"

type Repository interface {
	Get(ctx context.Context, league, date string) (Record, bool, error)
	Upsert(ctx context.Context, update Update) error
}
