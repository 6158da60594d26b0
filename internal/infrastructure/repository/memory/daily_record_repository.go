package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
)

// DailyRecordRepository keeps records in process memory for local runs.
type DailyRecordRepository struct {
	mu    sync.RWMutex
	items map[string]dailyrecord.Record
	now   func() time.Time
}

func NewDailyRecordRepository() *DailyRecordRepository {
	return &DailyRecordRepository{items: make(map[string]dailyrecord.Record), now: time.Now}
}

func (r *DailyRecordRepository) Get(_ context.Context, league, date string) (dailyrecord.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[recordKey(league, date)]
	if !ok {
		return dailyrecord.Record{}, false, nil
	}
	return cloneRecord(record), true, nil
}

// Upsert replaces the writable fields and keeps CreatedAt of an existing record.
func (r *DailyRecordRepository) Upsert(_ context.Context, update dailyrecord.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(update.League, update.Date)
	now := r.now().UTC()
	record, ok := r.items[key]
	if !ok {
		record = dailyrecord.Record{
			League:    strings.ToLower(strings.TrimSpace(update.League)),
			Date:      strings.TrimSpace(update.Date),
			CreatedAt: now,
		}
	}
	record.Games = update.Games
	record.Plays = update.Plays
	record.LastUpdated = update.LastUpdated
	record.DataSource = update.DataSource
	record.PPGLocked = update.PPGLocked
	record.UpdatedAt = now

	r.items[key] = cloneRecord(record)
	return nil
}

func recordKey(league, date string) string {
	return strings.ToLower(strings.TrimSpace(league)) + "::" + strings.TrimSpace(date)
}

func cloneRecord(record dailyrecord.Record) dailyrecord.Record {
	copied := record
	if record.Games != nil {
		copied.Games = append(record.Games[:0:0], record.Games...)
	}
	if record.Plays != nil {
		copied.Plays = append(record.Plays[:0:0], record.Plays...)
	}
	return copied
}
