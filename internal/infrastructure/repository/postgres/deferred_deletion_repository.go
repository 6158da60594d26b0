package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
	qb "github.com/riskibarqy/sports-trading/internal/platform/querybuilder"
)

type deferredDeletionTableModel struct {
	ID        int64     `db:"id"`
	ChatID    string    `db:"chat_id"`
	MessageID string    `db:"message_id"`
	DeleteAt  time.Time `db:"delete_at"`
	CreatedAt time.Time `db:"created_at"`
}

type deferredDeletionInsertModel struct {
	ChatID    string    `db:"chat_id"`
	MessageID string    `db:"message_id"`
	DeleteAt  time.Time `db:"delete_at"`
}

type DeferredDeletionRepository struct {
	db *sqlx.DB
}

func NewDeferredDeletionRepository(db *sqlx.DB) *DeferredDeletionRepository {
	return &DeferredDeletionRepository{db: db}
}

func (r *DeferredDeletionRepository) Insert(ctx context.Context, item deferred.Deletion) (deferred.Deletion, error) {
	model := deferredDeletionInsertModel{
		ChatID:    strings.TrimSpace(item.ChatID),
		MessageID: strings.TrimSpace(item.MessageID),
		DeleteAt:  item.DeleteAt.UTC(),
	}

	query, args, err := qb.InsertModel("deferred_deletions", model, "RETURNING id, created_at")
	if err != nil {
		return deferred.Deletion{}, fmt.Errorf("build insert deferred deletion query: %w", err)
	}

	out := item
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&out.ID, &out.CreatedAt); err != nil {
		return deferred.Deletion{}, fmt.Errorf("insert deferred deletion message_id=%s: %w", model.MessageID, err)
	}
	return out, nil
}

func (r *DeferredDeletionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]deferred.Deletion, error) {
	query, args, err := qb.Select("id", "chat_id", "message_id", "delete_at", "created_at").
		From("deferred_deletions").
		Where(qb.Lte("delete_at", now.UTC())).
		OrderBy("delete_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list due deferred deletions query: %w", err)
	}

	var rows []deferredDeletionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list due deferred deletions: %w", err)
	}

	out := make([]deferred.Deletion, 0, len(rows))
	for _, row := range rows {
		out = append(out, deferred.Deletion{
			ID:        row.ID,
			ChatID:    row.ChatID,
			MessageID: row.MessageID,
			DeleteAt:  row.DeleteAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *DeferredDeletionRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.DeleteFrom("deferred_deletions").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete deferred deletion query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete deferred deletion id=%d: %w", id, err)
	}
	return nil
}
