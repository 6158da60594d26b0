package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/game"
)

// ExternalScoreboardGame is one game card read from a scoreboard listing.
type ExternalScoreboardGame struct {
	AwayTeam   string
	HomeTeam   string
	AwayRef    string
	HomeRef    string
	Total      *float64
	Time       string
	FinalScore *game.Score
}

// TeamRef identifies a team page on a stats source.
type TeamRef struct {
	Name string
	Ref  string
}

type ExternalDayProfit struct {
	Day    string
	Profit float64
}

// ExternalWeeklyHistory is the wagering account's per-day profit for a week.
type ExternalWeeklyHistory struct {
	Days      []ExternalDayProfit
	WeekTotal float64
}

type ScoreboardProvider interface {
	FetchScoreboard(ctx context.Context, league string, date time.Time) ([]ExternalScoreboardGame, error)
}

type TeamStatProvider interface {
	FetchTeamStat(ctx context.Context, league string, team TeamRef) (game.TeamStat, error)
}

// ConcurrencyLimiter is implemented by providers that cannot serve many
// requests at once, such as browser-session sources.
type ConcurrencyLimiter interface {
	MaxConcurrency() int
}

type HistoryProvider interface {
	FetchWeeklyHistory(ctx context.Context) (ExternalWeeklyHistory, error)
}

// Notifier delivers text to a single channel.
// Delete returns ErrMessageNotFound when the message is already gone.
type Notifier interface {
	Channel() string
	Send(ctx context.Context, text string) (string, error)
	Delete(ctx context.Context, chatID, messageID string) error
}

// TeamStatCache keeps a day's successful team scrapes across job runs.
type TeamStatCache interface {
	GetMany(ctx context.Context, league, date string, teams []string) (map[string]game.TeamStat, error)
	SetMany(ctx context.Context, league, date string, stats []game.TeamStat) error
}

type noopTeamStatCache struct{}

func (noopTeamStatCache) GetMany(_ context.Context, _, _ string, _ []string) (map[string]game.TeamStat, error) {
	return nil, nil
}

func (noopTeamStatCache) SetMany(_ context.Context, _, _ string, _ []game.TeamStat) error {
	return nil
}

func NewNoopTeamStatCache() TeamStatCache {
	return noopTeamStatCache{}
}

// JobInput targets one league and date.
type JobInput struct {
	League  string
	Date    time.Time
	Trigger string
}

type JobResult struct {
	Job            string `json:"job"`
	League         string `json:"league"`
	Date           string `json:"date"`
	Games          int    `json:"games"`
	GamesAdded     int    `json:"games_added,omitempty"`
	Plays          int    `json:"plays"`
	TeamsRequested int    `json:"teams_requested,omitempty"`
	TeamsCached    int    `json:"teams_cached,omitempty"`
	TeamsScraped   int    `json:"teams_scraped,omitempty"`
	TeamsFailed    int    `json:"teams_failed,omitempty"`
	Notified       bool   `json:"notified,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Detail         any    `json:"detail,omitempty"`
}
