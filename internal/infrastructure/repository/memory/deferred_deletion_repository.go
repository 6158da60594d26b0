package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
)

type DeferredDeletionRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]deferred.Deletion
	now    func() time.Time
}

func NewDeferredDeletionRepository() *DeferredDeletionRepository {
	return &DeferredDeletionRepository{items: make(map[int64]deferred.Deletion), now: time.Now}
}

func (r *DeferredDeletionRepository) Insert(_ context.Context, item deferred.Deletion) (deferred.Deletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	item.CreatedAt = r.now().UTC()
	r.items[item.ID] = item
	return item, nil
}

// ListDue returns deletions due at or before now, oldest first.
func (r *DeferredDeletionRepository) ListDue(_ context.Context, now time.Time, limit int) ([]deferred.Deletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]deferred.Deletion, 0)
	for _, item := range r.items {
		if !item.DeleteAt.After(now) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeleteAt.Equal(out[j].DeleteAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DeleteAt.Before(out[j].DeleteAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DeferredDeletionRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}
