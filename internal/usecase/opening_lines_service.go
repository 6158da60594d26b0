package usecase

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

const dataSourceScoreboard = "scoreboard"

type OpeningLinesConfig struct {
	Location   *time.Location
	DataSource string
}

// OpeningLinesService creates or refreshes a day's games from the scoreboard.
type OpeningLinesService struct {
	records    dailyrecord.Repository
	scoreboard ScoreboardProvider
	cfg        OpeningLinesConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewOpeningLinesService(
	records dailyrecord.Repository,
	scoreboard ScoreboardProvider,
	cfg OpeningLinesConfig,
	logger *logging.Logger,
) *OpeningLinesService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if strings.TrimSpace(cfg.DataSource) == "" {
		cfg.DataSource = dataSourceScoreboard
	}

	return &OpeningLinesService{
		records:    records,
		scoreboard: scoreboard,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *OpeningLinesService) Run(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OpeningLinesService.Run")
	defer span.End()

	league := strings.TrimSpace(input.League)
	if league == "" {
		return JobResult{}, crerr.Wrap(ErrInvalidInput, "league is required")
	}
	date := dailyrecord.FormatDate(input.Date)
	result := JobResult{Job: JobOpeningLines, League: league, Date: date}

	scraped, err := s.scoreboard.FetchScoreboard(ctx, league, input.Date)
	if err != nil {
		s.logger.ErrorContext(ctx, "scoreboard unavailable, record left untouched", "league", league, "date", date, "error", err)
		return result, crerr.Mark(crerr.Wrapf(err, "fetch scoreboard league=%s date=%s", league, date), ErrSourceUnavailable)
	}
	if len(scraped) == 0 {
		s.logger.WarnContext(ctx, "scoreboard returned no games, record left untouched", "league", league, "date", date)
		return result, crerr.Wrapf(ErrSourceUnavailable, "scoreboard returned no games league=%s date=%s", league, date)
	}

	existing, found, err := s.records.Get(ctx, league, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", league, date), ErrStoreUnavailable)
	}

	games := append([]game.Game(nil), existing.Games...)
	for _, item := range scraped {
		patch := scoreboardPatch(item)
		if idx, ok := game.IndexOf(games, item.AwayTeam, item.HomeTeam); ok {
			games[idx] = games[idx].Apply(patch)
			continue
		}
		games = append(games, game.Game{AwayTeam: item.AwayTeam, HomeTeam: item.HomeTeam}.Apply(patch))
		result.GamesAdded++
	}
	for i := range games {
		games[i].GameNum = i + 1
	}

	plays := existing.Plays
	if plays == nil {
		plays = []game.Play{}
	}

	update := dailyrecord.Update{
		League:      league,
		Date:        date,
		Games:       games,
		Plays:       plays,
		LastUpdated: dailyrecord.FormatLastUpdated(s.now().In(s.cfg.Location)),
		DataSource:  s.cfg.DataSource,
		PPGLocked:   existing.PPGLocked,
	}
	if err := s.records.Upsert(ctx, update); err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "upsert daily record league=%s date=%s", league, date), ErrStoreUnavailable)
	}

	result.Games = len(games)
	result.Plays = len(plays)
	s.logger.InfoContext(ctx, "opening lines stored",
		"league", league,
		"date", date,
		"scraped", len(scraped),
		"games", len(games),
		"added", result.GamesAdded,
		"created", !found,
	)

	return result, nil
}

func scoreboardPatch(item ExternalScoreboardGame) game.Patch {
	patch := game.Patch{
		Total:        item.Total,
		OpeningTotal: item.Total,
		FinalScore:   item.FinalScore,
	}
	if item.Time != "" {
		patch.Time = &item.Time
	}
	if item.AwayRef != "" {
		patch.AwayRef = &item.AwayRef
	}
	if item.HomeRef != "" {
		patch.HomeRef = &item.HomeRef
	}
	return patch
}
