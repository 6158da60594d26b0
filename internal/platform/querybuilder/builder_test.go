package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("league", "game_date").
		From("daily_records").
		Where(Eq("league", "nba"), Eq("game_date", "2026-01-15")).
		OrderBy("game_date").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT league, game_date FROM daily_records WHERE league = $1 AND game_date = $2 ORDER BY game_date LIMIT 1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "nba" || args[1] != "2026-01-15" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("deferred_deletions").
		Columns("chat_id", "message_id").
		Values("chan-1", "msg-1").
		Suffix("RETURNING id, created_at").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO deferred_deletions (chat_id, message_id) VALUES ($1, $2) RETURNING id, created_at"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "chan-1" || args[1] != "msg-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		League string `db:"league"`
		Skip   string `db:"-"`
		Locked bool   `db:"ppg_locked"`
	}

	query, args, err := InsertModel("daily_records", row{League: "nba", Locked: true}, "ON CONFLICT (league) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO daily_records (league, ppg_locked) VALUES ($1, $2) ON CONFLICT (league) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "nba" || args[1] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModelErrors(t *testing.T) {
	if _, _, err := InsertModel("daily_records", nil, ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
	var nilPtr *struct {
		League string `db:"league"`
	}
	if _, _, err := InsertModel("daily_records", nilPtr, ""); err == nil {
		t.Fatalf("expected error for nil pointer model")
	}
	if _, _, err := InsertModel("daily_records", struct{ league string }{}, ""); err == nil {
		t.Fatalf("expected error for model without columns")
	}
	if _, _, err := InsertInto("t").Columns("a", "b").Values(1).ToSQL(); err == nil {
		t.Fatalf("expected error for value count mismatch")
	}
}

func TestDeleteBuilder(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := DeleteFrom("job_runs").
		Where(Lt("updated_at", cutoff)).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM job_runs WHERE updated_at < $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != cutoff {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("job_runs").ToSQL(); err == nil {
		t.Fatalf("expected error for unfiltered delete")
	}
}

func TestSelectBuilderCompare(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	query, _, err := Select("id").
		From("deferred_deletions").
		Where(Lte("delete_at", now)).
		OrderBy("delete_at", "id").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM deferred_deletions WHERE delete_at <= $1 ORDER BY delete_at, id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
}
