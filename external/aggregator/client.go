package aggregator

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

const defaultBaseURL = "https://www.espn.com"

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type ClientConfig struct {
	BaseURL string
	Scores  ScoreRange
	Logger  *logging.Logger
}

// Client reads a team's recent results from its schedule page.
type Client struct {
	fetcher PageFetcher
	baseURL string
	scores  ScoreRange
	logger  *logging.Logger
}

func NewClient(fetcher PageFetcher, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	scores := cfg.Scores
	if scores.Min <= 0 || scores.Max <= scores.Min {
		scores = DefaultScoreRange()
	}
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		scores:  scores,
		logger:  logger,
	}
}

// MaxConcurrency follows the underlying fetcher, if it declares a limit.
func (c *Client) MaxConcurrency() int {
	if limiter, ok := c.fetcher.(usecase.ConcurrencyLimiter); ok {
		return limiter.MaxConcurrency()
	}
	return 0
}

func (c *Client) FetchTeamStat(ctx context.Context, league string, team usecase.TeamRef) (game.TeamStat, error) {
	pageURL := c.ScheduleURL(league, team)
	html, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return game.TeamStat{}, crerr.Wrapf(err, "fetch schedule team=%s", team.Name)
	}

	scores, err := ParseTeamSchedule(html, c.scores)
	if err != nil {
		return game.TeamStat{}, err
	}
	stat, ok := game.NewTeamStat(team.Name, scores)
	if !ok {
		return game.TeamStat{}, crerr.Newf("no completed games on schedule team=%s", team.Name)
	}

	c.logger.DebugContext(ctx, "team schedule parsed", "league", league, "team", team.Name, "games", len(scores), "last3", stat.Last3)
	return stat, nil
}

// ScheduleURL derives the schedule page from the team link found on the
// scoreboard, or from the team name when no link is known.
func (c *Client) ScheduleURL(league string, team usecase.TeamRef) string {
	ref := strings.TrimSpace(team.Ref)
	if ref != "" {
		if parsed, err := url.Parse(ref); err == nil && parsed.IsAbs() {
			return toSchedulePath(ref)
		}
		if !strings.HasPrefix(ref, "/") {
			ref = "/" + ref
		}
		return c.baseURL + toSchedulePath(ref)
	}

	league = strings.ToLower(strings.TrimSpace(league))
	return c.baseURL + "/" + league + "/team/schedule/_/name/" + Slug(team.Name)
}

func Slug(name string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func toSchedulePath(ref string) string {
	if strings.Contains(ref, "/team/schedule/") {
		return ref
	}
	return strings.Replace(ref, "/team/_/", "/team/schedule/_/", 1)
}
