package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	dailyrecordmock "github.com/riskibarqy/sports-trading/internal/mocks/domain/dailyrecord"
	"github.com/stretchr/testify/mock"
)

type stubScoreboard struct {
	games []ExternalScoreboardGame
	err   error
}

func (s stubScoreboard) FetchScoreboard(_ context.Context, _ string, _ time.Time) ([]ExternalScoreboardGame, error) {
	return s.games, s.err
}

func floatRef(v float64) *float64 { return &v }

func fixedClock() time.Time {
	return time.Date(2026, 1, 15, 20, 4, 0, 0, time.UTC)
}

func TestOpeningLinesService_Run_PatchesExistingAndAppendsNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := dailyrecordmock.NewRepository(t)
	existing := dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-16",
		Games: []game.Game{{
			GameNum:      1,
			AwayTeam:     "Boston Celtics",
			HomeTeam:     "New York Knicks",
			Total:        floatRef(220),
			OpeningTotal: floatRef(220),
			CombinedPPG:  floatRef(231),
		}},
		Plays:     []game.Play{{GameNum: 1, AwayTeam: "Boston Celtics", HomeTeam: "New York Knicks"}},
		PPGLocked: false,
	}
	scoreboard := stubScoreboard{games: []ExternalScoreboardGame{
		{AwayTeam: "Celtics", HomeTeam: "Knicks", Total: floatRef(224.5), Time: "7:30 PM"},
		{AwayTeam: "Denver Nuggets", HomeTeam: "Utah Jazz", Total: floatRef(238)},
	}}

	records.On("Get", mock.Anything, "nba", "2026-01-16").Return(existing, true, nil).Once()
	var stored dailyrecord.Update
	records.
		On("Upsert", mock.Anything, mock.AnythingOfType("dailyrecord.Update")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(dailyrecord.Update) }).
		Return(nil).
		Once()

	svc := NewOpeningLinesService(records, scoreboard, OpeningLinesConfig{}, nil)
	svc.now = fixedClock

	result, err := svc.Run(ctx, JobInput{League: "nba", Date: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("run opening lines: %v", err)
	}
	if result.Games != 2 || result.GamesAdded != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(stored.Games) != 2 {
		t.Fatalf("expected 2 stored games, got=%d", len(stored.Games))
	}

	first := stored.Games[0]
	if first.AwayTeam != "Boston Celtics" || *first.Total != 224.5 || *first.OpeningTotal != 220 {
		t.Fatalf("existing game not patched in place: %+v", first)
	}
	if first.CombinedPPG == nil || *first.CombinedPPG != 231 {
		t.Fatalf("combined ppg must survive a lines refresh: %+v", first.CombinedPPG)
	}
	if first.Edge == nil || *first.Edge != 6.5 {
		t.Fatalf("edge must follow the new total: %+v", first.Edge)
	}
	if first.Time != "7:30 PM" {
		t.Fatalf("unexpected time: %q", first.Time)
	}

	second := stored.Games[1]
	if second.GameNum != 2 || *second.OpeningTotal != 238 {
		t.Fatalf("unexpected appended game: %+v", second)
	}
	if len(stored.Plays) != 1 {
		t.Fatalf("plays must be left untouched, got=%d", len(stored.Plays))
	}
	if stored.LastUpdated != "08:04 PM" || stored.DataSource != dataSourceScoreboard {
		t.Fatalf("unexpected metadata: %q %q", stored.LastUpdated, stored.DataSource)
	}
}

func TestOpeningLinesService_Run_SourceOutageLeavesRecordUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		scoreboard stubScoreboard
	}{
		{name: "fetch error", scoreboard: stubScoreboard{err: errors.New("dial tcp: timeout")}},
		{name: "no games", scoreboard: stubScoreboard{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			records := dailyrecordmock.NewRepository(t)
			svc := NewOpeningLinesService(records, tc.scoreboard, OpeningLinesConfig{}, nil)

			_, err := svc.Run(context.Background(), JobInput{League: "nba", Date: fixedClock()})
			if !crerr.Is(err, ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
			records.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestOpeningLinesService_Run_StoreFailure(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{}, false, errors.New("connection refused")).Once()

	svc := NewOpeningLinesService(records, stubScoreboard{games: []ExternalScoreboardGame{{AwayTeam: "A", HomeTeam: "B"}}}, OpeningLinesConfig{}, nil)
	_, err := svc.Run(context.Background(), JobInput{League: "nba", Date: fixedClock()})
	if !crerr.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !IsFatal(err) {
		t.Fatalf("store failure must be fatal")
	}
}

func TestOpeningLinesService_Run_RecordsFinalScores(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	existing := dailyrecord.Record{
		League:    "nba",
		Date:      "2026-01-15",
		Games:     []game.Game{{GameNum: 1, AwayTeam: "X", HomeTeam: "Y", Total: floatRef(150)}},
		Plays:     []game.Play{},
		PPGLocked: true,
	}
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(existing, true, nil).Once()
	records.
		On("Upsert", mock.Anything, mock.MatchedBy(func(u dailyrecord.Update) bool {
			return u.PPGLocked && len(u.Games) == 1 && u.Games[0].FinalScore != nil && u.Games[0].FinalScore.Combined() == 161
		})).
		Return(nil).
		Once()

	scoreboard := stubScoreboard{games: []ExternalScoreboardGame{
		{AwayTeam: "X", HomeTeam: "Y", FinalScore: &game.Score{Away: 80, Home: 81}},
	}}
	svc := NewOpeningLinesService(records, scoreboard, OpeningLinesConfig{}, nil)
	if _, err := svc.Run(context.Background(), JobInput{League: "nba", Date: fixedClock()}); err != nil {
		t.Fatalf("run opening lines: %v", err)
	}
}
