package cache

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/game"
	basecache "github.com/riskibarqy/sports-trading/internal/platform/cache"
)

// TeamStatCache keeps a day's scraped team stats in process memory.
type TeamStatCache struct {
	store *basecache.Store[game.TeamStat]
}

func NewTeamStatCache(ttl time.Duration) *TeamStatCache {
	return &TeamStatCache{store: basecache.NewStore[game.TeamStat](ttl)}
}

func (c *TeamStatCache) GetMany(ctx context.Context, league, date string, teams []string) (map[string]game.TeamStat, error) {
	out := make(map[string]game.TeamStat, len(teams))
	for _, team := range teams {
		if stat, ok := c.store.Get(ctx, TeamStatKey(league, date, team)); ok {
			out[team] = stat
		}
	}
	return out, nil
}

func (c *TeamStatCache) SetMany(ctx context.Context, league, date string, stats []game.TeamStat) error {
	for _, stat := range stats {
		c.store.Set(ctx, TeamStatKey(league, date, stat.TeamName), stat)
	}
	return nil
}

// TeamStatKey is shared with the Redis cache so both backends agree on keys.
func TeamStatKey(league, date, team string) string {
	return "teamstat:" + strings.ToLower(strings.TrimSpace(league)) + ":" + strings.TrimSpace(date) + ":" + strings.ToLower(strings.TrimSpace(team))
}
