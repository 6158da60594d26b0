package portal

import (
	"context"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

type ClientConfig struct {
	HistoryURL string
	Markers    Markers
	Logger     *logging.Logger
}

// Client reads the account's weekly figures through a logged-in session.
type Client struct {
	sessions   SessionProvider
	historyURL string
	markers    Markers
	logger     *logging.Logger
}

func NewClient(sessions SessionProvider, cfg ClientConfig) *Client {
	markers := cfg.Markers
	if len(markers.Days) == 0 {
		markers = DefaultMarkers()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		sessions:   sessions,
		historyURL: strings.TrimSpace(cfg.HistoryURL),
		markers:    markers,
		logger:     logger,
	}
}

func (c *Client) FetchWeeklyHistory(ctx context.Context) (usecase.ExternalWeeklyHistory, error) {
	if c.historyURL == "" {
		return usecase.ExternalWeeklyHistory{}, crerr.Mark(crerr.New("portal history url is not configured"), usecase.ErrDependencyUnavailable)
	}

	session, err := c.sessions.Open(ctx)
	if err != nil {
		return usecase.ExternalWeeklyHistory{}, crerr.Mark(err, usecase.ErrDependencyUnavailable)
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.logger.WarnContext(ctx, "close portal session failed", "error", err)
		}
	}()

	html, err := session.Fetch(ctx, c.historyURL)
	if err != nil {
		return usecase.ExternalWeeklyHistory{}, crerr.Mark(err, usecase.ErrDependencyUnavailable)
	}

	history, err := ParseWeeklyHistory(html, c.markers)
	if err != nil {
		return usecase.ExternalWeeklyHistory{}, err
	}
	c.logger.InfoContext(ctx, "weekly history parsed", "days", len(history.Days), "week_total", history.WeekTotal)
	return history, nil
}
