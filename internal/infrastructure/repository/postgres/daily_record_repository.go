package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	qb "github.com/riskibarqy/sports-trading/internal/platform/querybuilder"
)

type DailyRecordRepository struct {
	db *sqlx.DB
}

func NewDailyRecordRepository(db *sqlx.DB) *DailyRecordRepository {
	return &DailyRecordRepository{db: db}
}

func (r *DailyRecordRepository) Get(ctx context.Context, league, date string) (dailyrecord.Record, bool, error) {
	query, args, err := qb.Select("*").
		From("daily_records").
		Where(
			qb.Eq("league", strings.ToLower(strings.TrimSpace(league))),
			qb.Eq("game_date", date),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return dailyrecord.Record{}, false, fmt.Errorf("build get daily record query: %w", err)
	}

	var row dailyRecordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return dailyrecord.Record{}, false, nil
		}
		return dailyrecord.Record{}, false, fmt.Errorf("get daily record league=%s date=%s: %w", league, date, err)
	}

	record, err := dailyRecordFromRow(row)
	if err != nil {
		return dailyrecord.Record{}, false, err
	}
	return record, true, nil
}

func (r *DailyRecordRepository) Upsert(ctx context.Context, update dailyrecord.Update) error {
	query, args, err := buildDailyRecordUpsert(update)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert daily record league=%s date=%s: %w", update.League, update.Date, err)
	}
	return nil
}

// buildDailyRecordUpsert replaces only the writable fields on conflict.
func buildDailyRecordUpsert(update dailyrecord.Update) (string, []any, error) {
	league := strings.ToLower(strings.TrimSpace(update.League))
	if league == "" || strings.TrimSpace(update.Date) == "" {
		return "", nil, fmt.Errorf("daily record league and date are required")
	}

	gamesJSON, err := encodeJSONList(update.Games)
	if err != nil {
		return "", nil, fmt.Errorf("marshal daily record games: %w", err)
	}
	playsJSON, err := encodeJSONList(update.Plays)
	if err != nil {
		return "", nil, fmt.Errorf("marshal daily record plays: %w", err)
	}

	model := dailyRecordUpsertModel{
		League:      league,
		GameDate:    update.Date,
		Games:       gamesJSON,
		Plays:       playsJSON,
		LastUpdated: update.LastUpdated,
		DataSource:  update.DataSource,
		PPGLocked:   update.PPGLocked,
	}

	query, args, err := qb.InsertModel("daily_records", model, `ON CONFLICT (league, game_date)
DO UPDATE SET
    games = EXCLUDED.games,
    plays = EXCLUDED.plays,
    last_updated = EXCLUDED.last_updated,
    data_source = EXCLUDED.data_source,
    ppg_locked = EXCLUDED.ppg_locked,
    updated_at = NOW()`)
	if err != nil {
		return "", nil, fmt.Errorf("build upsert daily record query: %w", err)
	}
	return query, args, nil
}

func dailyRecordFromRow(row dailyRecordTableModel) (dailyrecord.Record, error) {
	games, err := decodeJSONList[game.Game](row.Games)
	if err != nil {
		return dailyrecord.Record{}, fmt.Errorf("decode daily record games id=%d: %w", row.ID, err)
	}
	plays, err := decodeJSONList[game.Play](row.Plays)
	if err != nil {
		return dailyrecord.Record{}, fmt.Errorf("decode daily record plays id=%d: %w", row.ID, err)
	}

	return dailyrecord.Record{
		League:      row.League,
		Date:        dailyrecord.FormatDate(row.GameDate),
		Games:       games,
		Plays:       plays,
		LastUpdated: row.LastUpdated,
		DataSource:  row.DataSource,
		PPGLocked:   row.PPGLocked,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
