package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/infrastructure/repository/cache"
)

const DefaultTeamStatTTL = 6 * time.Hour

type commander interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	Pipelined(ctx context.Context, fn func(goredis.Pipeliner) error) ([]goredis.Cmder, error)
}

// TeamStatCache shares a day's team stats between job processes.
type TeamStatCache struct {
	client commander
	ttl    time.Duration
}

func NewTeamStatCache(client *goredis.Client, ttl time.Duration) *TeamStatCache {
	return newTeamStatCache(client, ttl)
}

func newTeamStatCache(client commander, ttl time.Duration) *TeamStatCache {
	if ttl <= 0 {
		ttl = DefaultTeamStatTTL
	}
	return &TeamStatCache{client: client, ttl: ttl}
}

func (c *TeamStatCache) GetMany(ctx context.Context, league, date string, teams []string) (map[string]game.TeamStat, error) {
	if len(teams) == 0 {
		return map[string]game.TeamStat{}, nil
	}

	keys := make([]string, 0, len(teams))
	for _, team := range teams {
		keys = append(keys, cache.TeamStatKey(league, date, team))
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget team stats league=%s date=%s: %w", league, date, err)
	}
	return decodeStats(teams, values), nil
}

func (c *TeamStatCache) SetMany(ctx context.Context, league, date string, stats []game.TeamStat) error {
	if len(stats) == 0 {
		return nil
	}

	payloads := make(map[string]string, len(stats))
	for _, stat := range stats {
		raw, err := sonic.MarshalString(stat)
		if err != nil {
			return fmt.Errorf("marshal team stat team=%s: %w", stat.TeamName, err)
		}
		payloads[cache.TeamStatKey(league, date, stat.TeamName)] = raw
	}

	_, err := c.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for key, raw := range payloads {
			pipe.Set(ctx, key, raw, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set team stats league=%s date=%s: %w", league, date, err)
	}
	return nil
}

// decodeStats pairs MGET values with the requested names. Missing keys come
// back as nil and undecodable payloads are treated as misses.
func decodeStats(teams []string, values []any) map[string]game.TeamStat {
	out := make(map[string]game.TeamStat, len(teams))
	for i, value := range values {
		if i >= len(teams) {
			break
		}
		raw, ok := value.(string)
		if !ok || raw == "" {
			continue
		}
		var stat game.TeamStat
		if err := sonic.UnmarshalString(raw, &stat); err != nil {
			continue
		}
		out[teams[i]] = stat
	}
	return out
}
