package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	dailyrecordmock "github.com/riskibarqy/sports-trading/internal/mocks/domain/dailyrecord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDailyRecordRepository_CachesReads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := dailyrecordmock.NewRepository(t)
	record := dailyrecord.Record{League: "nba", Date: "2026-01-15", Games: []game.Game{{GameNum: 1, AwayTeam: "A", HomeTeam: "B"}}}
	next.On("Get", mock.Anything, "nba", "2026-01-15").Return(record, true, nil).Once()

	repo := NewDailyRecordRepository(next, time.Minute)
	first, found, err := repo.Get(ctx, "nba", "2026-01-15")
	require.NoError(t, err)
	require.True(t, found)

	first.Games[0].AwayTeam = "mutated"
	second, _, err := repo.Get(ctx, "NBA", "2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, "A", second.Games[0].AwayTeam)
}

func TestDailyRecordRepository_UpsertInvalidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := dailyrecordmock.NewRepository(t)
	next.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{}, false, nil).Once()
	next.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	next.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{League: "nba", Date: "2026-01-15"}, true, nil).Once()

	repo := NewDailyRecordRepository(next, time.Minute)
	_, found, err := repo.Get(ctx, "nba", "2026-01-15")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Upsert(ctx, dailyrecord.Update{League: "nba", Date: "2026-01-15"}))

	_, found, err = repo.Get(ctx, "nba", "2026-01-15")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDailyRecordRepository_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := dailyrecordmock.NewRepository(t)
	next.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{}, false, errors.New("db down")).Once()
	next.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{League: "nba"}, true, nil).Once()

	repo := NewDailyRecordRepository(next, time.Minute)
	_, _, err := repo.Get(ctx, "nba", "2026-01-15")
	require.Error(t, err)
	_, found, err := repo.Get(ctx, "nba", "2026-01-15")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestTeamStatCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewTeamStatCache(time.Hour)
	stat, _ := game.NewTeamStat("Boston Celtics", []int{110, 120, 100})
	require.NoError(t, c.SetMany(ctx, "nba", "2026-01-15", []game.TeamStat{stat}))

	got, err := c.GetMany(ctx, "NBA", "2026-01-15", []string{"boston celtics", "Miami Heat"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 110.0, got["boston celtics"].Last3Avg)

	other, err := c.GetMany(ctx, "nba", "2026-01-16", []string{"Boston Celtics"})
	require.NoError(t, err)
	assert.Empty(t, other)
}
