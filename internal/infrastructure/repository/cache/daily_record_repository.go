package cache

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	basecache "github.com/riskibarqy/sports-trading/internal/platform/cache"
)

// DailyRecordRepository serves repeated reads from memory. Writes go
// straight through and drop the cached copy.
type DailyRecordRepository struct {
	next  dailyrecord.Repository
	cache *basecache.Store[cachedRecord]
}

type cachedRecord struct {
	value  dailyrecord.Record
	exists bool
}

func NewDailyRecordRepository(next dailyrecord.Repository, ttl time.Duration) *DailyRecordRepository {
	return &DailyRecordRepository{next: next, cache: basecache.NewStore[cachedRecord](ttl)}
}

func (r *DailyRecordRepository) Get(ctx context.Context, league, date string) (dailyrecord.Record, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, recordKey(league, date), func(ctx context.Context) (cachedRecord, error) {
		item, exists, err := r.next.Get(ctx, league, date)
		if err != nil {
			return cachedRecord{}, err
		}
		return cachedRecord{value: item, exists: exists}, nil
	})
	if err != nil {
		return dailyrecord.Record{}, false, err
	}
	return cloneRecord(cached.value), cached.exists, nil
}

func (r *DailyRecordRepository) Upsert(ctx context.Context, update dailyrecord.Update) error {
	err := r.next.Upsert(ctx, update)
	r.cache.Delete(ctx, recordKey(update.League, update.Date))
	return err
}

func recordKey(league, date string) string {
	return "record:" + strings.ToLower(strings.TrimSpace(league)) + ":" + strings.TrimSpace(date)
}

// cloneRecord copies the slices so callers cannot mutate the cached value.
func cloneRecord(record dailyrecord.Record) dailyrecord.Record {
	if record.Games != nil {
		record.Games = append(record.Games[:0:0], record.Games...)
	}
	if record.Plays != nil {
		record.Plays = append(record.Plays[:0:0], record.Plays...)
	}
	return record
}
