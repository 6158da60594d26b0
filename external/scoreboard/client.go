package scoreboard

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

const defaultURLTemplate = "https://www.espn.com/{league}/scoreboard/_/date/{date}"

// PageFetcher returns the HTML of a page, rendered or not.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type ClientConfig struct {
	URLTemplate string
	Selectors   Selectors
	Logger      *logging.Logger
}

type Client struct {
	fetcher     PageFetcher
	urlTemplate string
	selectors   Selectors
	logger      *logging.Logger
}

func NewClient(fetcher PageFetcher, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	tmpl := strings.TrimSpace(cfg.URLTemplate)
	if tmpl == "" {
		tmpl = defaultURLTemplate
	}
	sel := cfg.Selectors
	defaults := DefaultSelectors()
	if sel.Card == "" {
		sel.Card = defaults.Card
	}
	if sel.TeamLink == "" {
		sel.TeamLink = defaults.TeamLink
	}
	if sel.Score == "" {
		sel.Score = defaults.Score
	}
	if sel.Odds == "" {
		sel.Odds = defaults.Odds
	}

	return &Client{
		fetcher:     fetcher,
		urlTemplate: tmpl,
		selectors:   sel,
		logger:      logger,
	}
}

func (c *Client) FetchScoreboard(ctx context.Context, league string, date time.Time) ([]usecase.ExternalScoreboardGame, error) {
	pageURL := BuildURL(c.urlTemplate, league, date)
	html, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch scoreboard league=%s", league)
	}

	games, err := Parse(html, c.selectors)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "scoreboard parsed", "league", league, "url", pageURL, "games", len(games))
	return games, nil
}

// BuildURL fills {league}, {date} (YYYYMMDD) and {iso_date} (YYYY-MM-DD).
func BuildURL(tmpl, league string, date time.Time) string {
	return strings.NewReplacer(
		"{league}", strings.ToLower(strings.TrimSpace(league)),
		"{date}", date.Format("20060102"),
		"{iso_date}", date.Format("2006-01-02"),
	).Replace(tmpl)
}
