package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	dailyrecordmock "github.com/riskibarqy/sports-trading/internal/mocks/domain/dailyrecord"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubTeamStats struct {
	mu     sync.Mutex
	scores map[string][]int
	calls  []string
	limit  int
}

func (s *stubTeamStats) FetchTeamStat(_ context.Context, _ string, team TeamRef) (game.TeamStat, error) {
	s.mu.Lock()
	s.calls = append(s.calls, team.Name)
	s.mu.Unlock()

	scores, ok := s.scores[team.Name]
	if !ok {
		return game.TeamStat{}, errors.New("page timed out")
	}
	stat, _ := game.NewTeamStat(team.Name, scores)
	return stat, nil
}

func (s *stubTeamStats) MaxConcurrency() int {
	return s.limit
}

type memoryTeamStatCache struct {
	mu    sync.Mutex
	items map[string]game.TeamStat
}

func (c *memoryTeamStatCache) GetMany(_ context.Context, _, _ string, teams []string) (map[string]game.TeamStat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]game.TeamStat)
	for _, team := range teams {
		if stat, ok := c.items[team]; ok {
			out[team] = stat
		}
	}
	return out, nil
}

func (c *memoryTeamStatCache) SetMany(_ context.Context, _, _ string, stats []game.TeamStat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]game.TeamStat)
	}
	for _, stat := range stats {
		c.items[stat.TeamName] = stat
	}
	return nil
}

func newTestEnrichment(records dailyrecord.Repository, provider TeamStatProvider, cache TeamStatCache) *EnrichmentService {
	svc := NewEnrichmentService(records, provider, cache, EnrichmentConfig{BatchSize: 2, BatchPause: time.Second}, nil)
	svc.now = fixedClock
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func TestEnrichmentService_Run_MergesStatsAndRebuildsPlays(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	existing := dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-15",
		Games: []game.Game{
			{GameNum: 1, AwayTeam: "X", HomeTeam: "Y", Total: floatRef(150)},
			{GameNum: 2, AwayTeam: "A", HomeTeam: "B", Total: floatRef(200)},
		},
		Plays: []game.Play{},
	}
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(existing, true, nil).Once()
	var stored dailyrecord.Update
	records.
		On("Upsert", mock.Anything, mock.AnythingOfType("dailyrecord.Update")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(dailyrecord.Update) }).
		Return(nil).
		Once()

	provider := &stubTeamStats{scores: map[string][]int{
		"X": {80, 80, 80},
		"Y": {78, 78, 78},
		"A": {100, 110, 120},
		"B": {99, 100, 101},
	}}
	svc := newTestEnrichment(records, provider, nil)

	result, err := svc.Run(context.Background(), EnrichInput{
		JobInput:     JobInput{League: "nba", Date: fixedClock()},
		RebuildPlays: true,
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.TeamsScraped)
	require.Equal(t, 0, result.TeamsFailed)

	require.Len(t, stored.Games, 2)
	first := stored.Games[0]
	require.Equal(t, 158.0, *first.CombinedPPG)
	require.Equal(t, 8.0, *first.Edge)
	require.Equal(t, game.RecommendationNone, first.Recommendation)

	second := stored.Games[1]
	require.Equal(t, 210.0, *second.CombinedPPG)
	require.Equal(t, game.RecommendationOver, second.Recommendation)

	require.Len(t, stored.Plays, 1)
	require.Equal(t, 2, stored.Plays[0].GameNum)
	require.Equal(t, game.ColorGreen, stored.Plays[0].Color)
	require.Equal(t, "aggregator", stored.DataSource)
}

func TestEnrichmentService_Run_NoRecordRefusesToProceed(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{}, false, nil).Once()

	provider := &stubTeamStats{}
	svc := newTestEnrichment(records, provider, nil)

	_, err := svc.Run(context.Background(), EnrichInput{JobInput: JobInput{League: "nba", Date: fixedClock()}})
	if !errors.Is(err, ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}
	if IsFatal(err) {
		t.Fatalf("missing record must not be fatal")
	}
	if len(provider.calls) != 0 {
		t.Fatalf("no team must be scraped without a record, got=%v", provider.calls)
	}
}

func TestEnrichmentService_Run_LockedRecordIsSkipped(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{
		League:    "nba",
		Date:      "2026-01-15",
		Games:     []game.Game{{GameNum: 1, AwayTeam: "X", HomeTeam: "Y"}},
		PPGLocked: true,
	}, true, nil).Once()

	svc := newTestEnrichment(records, &stubTeamStats{}, nil)
	result, err := svc.Run(context.Background(), EnrichInput{JobInput: JobInput{League: "nba", Date: fixedClock()}})
	if err != nil {
		t.Fatalf("run enrichment: %v", err)
	}
	if !result.Skipped || result.Reason != "ppg locked" {
		t.Fatalf("expected locked skip, got %+v", result)
	}
}

func TestEnrichmentService_Run_TotalOutageDoesNotWrite(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-15",
		Games:  []game.Game{{GameNum: 1, AwayTeam: "X", HomeTeam: "Y", CombinedPPG: floatRef(210.5)}},
	}, true, nil).Once()

	svc := newTestEnrichment(records, &stubTeamStats{}, nil)
	result, err := svc.Run(context.Background(), EnrichInput{JobInput: JobInput{League: "nba", Date: fixedClock()}})
	if !crerr.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if result.TeamsFailed != 2 {
		t.Fatalf("expected 2 failed teams, got=%d", result.TeamsFailed)
	}
	records.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestEnrichmentService_Run_PartialFailureKeepsPriorValues(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-15",
		Games: []game.Game{{
			GameNum:     1,
			AwayTeam:    "X",
			HomeTeam:    "Y",
			Total:       floatRef(200),
			HomePPG:     floatRef(101),
			CombinedPPG: floatRef(210.5),
		}},
		Plays: []game.Play{{GameNum: 1}},
	}, true, nil).Once()
	records.
		On("Upsert", mock.Anything, mock.MatchedBy(func(u dailyrecord.Update) bool {
			g := u.Games[0]
			return *g.AwayPPG == 90 && *g.HomePPG == 101 && *g.CombinedPPG == 210.5 && len(u.Plays) == 1
		})).
		Return(nil).
		Once()

	provider := &stubTeamStats{scores: map[string][]int{"X": {90, 90, 90}}}
	svc := newTestEnrichment(records, provider, nil)

	result, err := svc.Run(context.Background(), EnrichInput{JobInput: JobInput{League: "nba", Date: fixedClock()}})
	if err != nil {
		t.Fatalf("run enrichment: %v", err)
	}
	if result.TeamsScraped != 1 || result.TeamsFailed != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestEnrichmentService_Run_UsesCachedStats(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-15",
		Games:  []game.Game{{GameNum: 1, AwayTeam: "X", HomeTeam: "Y", Total: floatRef(150)}},
	}, true, nil).Once()
	records.On("Upsert", mock.Anything, mock.AnythingOfType("dailyrecord.Update")).Return(nil).Once()

	cached, _ := game.NewTeamStat("X", []int{80, 80, 80})
	cache := &memoryTeamStatCache{items: map[string]game.TeamStat{"X": cached}}
	provider := &stubTeamStats{scores: map[string][]int{"Y": {78, 78, 78}}}
	svc := newTestEnrichment(records, provider, cache)

	result, err := svc.Run(context.Background(), EnrichInput{JobInput: JobInput{League: "nba", Date: fixedClock()}})
	require.NoError(t, err)
	require.Equal(t, 1, result.TeamsCached)
	require.Equal(t, []string{"Y"}, provider.calls)
	require.Contains(t, cache.items, "Y")
}

func TestNewEnrichmentService_CapsBatchForSessionSources(t *testing.T) {
	t.Parallel()

	svc := NewEnrichmentService(nil, &stubTeamStats{limit: 1}, nil, EnrichmentConfig{BatchSize: 4}, nil)
	if svc.cfg.BatchSize != 1 {
		t.Fatalf("expected batch size 1, got=%d", svc.cfg.BatchSize)
	}
}

func TestCollectTeams_FirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	teams := collectTeams([]game.Game{
		{AwayTeam: "A", HomeTeam: "B"},
		{AwayTeam: "C", HomeTeam: "A", HomeRef: "/teams/a"},
	})
	require.Equal(t, []TeamRef{{Name: "A", Ref: "/teams/a"}, {Name: "B"}, {Name: "C"}}, teams)
}
