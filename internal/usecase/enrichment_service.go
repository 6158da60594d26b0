package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

const dataSourceEnrichment = "aggregator"

type EnrichmentConfig struct {
	BatchSize   int
	BatchPause  time.Duration
	TeamTimeout time.Duration
	Location    *time.Location
	DataSource  string
}

type EnrichInput struct {
	JobInput
	RebuildPlays bool
}

// EnrichmentService scrapes per-team scoring averages and merges them into
// an existing daily record.
type EnrichmentService struct {
	records  dailyrecord.Repository
	provider TeamStatProvider
	cache    TeamStatCache
	cfg      EnrichmentConfig
	logger   *logging.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEnrichmentService(
	records dailyrecord.Repository,
	provider TeamStatProvider,
	cache TeamStatCache,
	cfg EnrichmentConfig,
	logger *logging.Logger,
) *EnrichmentService {
	if cache == nil {
		cache = NewNoopTeamStatCache()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if limiter, ok := provider.(ConcurrencyLimiter); ok {
		if limit := limiter.MaxConcurrency(); limit > 0 && limit < cfg.BatchSize {
			cfg.BatchSize = limit
		}
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	if cfg.TeamTimeout <= 0 {
		cfg.TeamTimeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if strings.TrimSpace(cfg.DataSource) == "" {
		cfg.DataSource = dataSourceEnrichment
	}

	return &EnrichmentService{
		records:  records,
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func (s *EnrichmentService) Run(ctx context.Context, input EnrichInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EnrichmentService.Run")
	defer span.End()

	league := strings.TrimSpace(input.League)
	if league == "" {
		return JobResult{}, crerr.Wrap(ErrInvalidInput, "league is required")
	}
	date := dailyrecord.FormatDate(input.Date)
	result := JobResult{Job: JobEnrich, League: league, Date: date}

	existing, found, err := s.records.Get(ctx, league, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", league, date), ErrStoreUnavailable)
	}
	if !found {
		s.logger.ErrorContext(ctx, "no daily record to enrich, run opening lines first", "league", league, "date", date, "job", JobOpeningLines)
		return result, crerr.Wrapf(ErrNoRecord, "league=%s date=%s: run %s first", league, date, JobOpeningLines)
	}
	if existing.PPGLocked {
		result.Skipped = true
		result.Reason = "ppg locked"
		result.Games = len(existing.Games)
		result.Plays = len(existing.Plays)
		s.logger.InfoContext(ctx, "daily record locked, enrichment skipped", "league", league, "date", date)
		return result, nil
	}

	teams := collectTeams(existing.Games)
	result.TeamsRequested = len(teams)
	if len(teams) == 0 {
		result.Skipped = true
		result.Reason = "no games"
		return result, nil
	}

	names := make([]string, 0, len(teams))
	for _, team := range teams {
		names = append(names, team.Name)
	}
	cached, err := s.cache.GetMany(ctx, league, date, names)
	if err != nil {
		s.logger.WarnContext(ctx, "team stat cache read failed", "league", league, "date", date, "error", err)
		cached = nil
	}

	pending := make([]TeamRef, 0, len(teams))
	for _, team := range teams {
		if _, ok := cached[team.Name]; !ok {
			pending = append(pending, team)
		}
	}
	result.TeamsCached = len(teams) - len(pending)

	fetched, failed, err := s.scrapeTeams(ctx, league, pending)
	if err != nil {
		return result, err
	}
	result.TeamsScraped = len(fetched)
	result.TeamsFailed = failed
	if len(pending) > 0 && len(fetched) == 0 && result.TeamsCached == 0 {
		s.logger.ErrorContext(ctx, "team stats unavailable for every team, record left untouched", "league", league, "date", date, "teams", len(teams))
		return result, crerr.Wrapf(ErrSourceUnavailable, "no team stats scraped league=%s date=%s", league, date)
	}

	if len(fetched) > 0 {
		fresh := make([]game.TeamStat, 0, len(fetched))
		for _, team := range pending {
			if stat, ok := fetched[team.Name]; ok {
				fresh = append(fresh, stat)
			}
		}
		if err := s.cache.SetMany(ctx, league, date, fresh); err != nil {
			s.logger.WarnContext(ctx, "team stat cache write failed", "league", league, "date", date, "error", err)
		}
	}

	stats := make([]game.TeamStat, 0, len(teams))
	for _, team := range teams {
		if stat, ok := fetched[team.Name]; ok {
			stats = append(stats, stat)
			continue
		}
		if stat, ok := cached[team.Name]; ok {
			stat.TeamName = team.Name
			stats = append(stats, stat)
		}
	}

	games := game.Merge(existing.Games, stats)
	plays := existing.Plays
	if input.RebuildPlays {
		plays = game.SelectPlays(games)
	}
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
	s.logger.InfoContext(ctx, "daily record enriched",
		"league", league,
		"date", date,
		"teams", len(teams),
		"cached", result.TeamsCached,
		"scraped", result.TeamsScraped,
		"failed", result.TeamsFailed,
		"plays", len(plays),
		"plays_rebuilt", input.RebuildPlays,
	)

	return result, nil
}

// scrapeTeams runs fixed-size batches with a pause between them. A team that
// fails is logged and left out; it never aborts the batch.
func (s *EnrichmentService) scrapeTeams(ctx context.Context, league string, teams []TeamRef) (map[string]game.TeamStat, int, error) {
	out := make(map[string]game.TeamStat, len(teams))
	if len(teams) == 0 {
		return out, 0, nil
	}

	pool, err := ants.NewPool(s.cfg.BatchSize)
	if err != nil {
		return nil, 0, crerr.Wrap(err, "create scrape worker pool")
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		failed int
	)
	for start := 0; start < len(teams); start += s.cfg.BatchSize {
		if start > 0 && s.cfg.BatchPause > 0 {
			if err := s.sleep(ctx, s.cfg.BatchPause); err != nil {
				failed += len(teams) - start
				s.logger.WarnContext(ctx, "team scrape interrupted", "league", league, "remaining", len(teams)-start, "error", err)
				break
			}
		}

		end := start + s.cfg.BatchSize
		if end > len(teams) {
			end = len(teams)
		}

		var workers sync.WaitGroup
		for _, team := range teams[start:end] {
			team := team
			workers.Add(1)
			if err := pool.Submit(func() {
				defer workers.Done()

				stat, err := s.fetchTeam(ctx, league, team)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					s.logger.WarnContext(ctx, "team scrape failed, keeping prior values", "league", league, "team", team.Name, "error", err)
					return
				}
				out[team.Name] = stat
				s.logger.DebugContext(ctx, "team scraped", "league", league, "team", team.Name, "last3", stat.Last3, "avg", stat.Last3Avg)
			}); err != nil {
				workers.Done()
				mu.Lock()
				failed++
				mu.Unlock()
				s.logger.WarnContext(ctx, "submit team scrape failed", "league", league, "team", team.Name, "error", err)
			}
		}
		workers.Wait()
	}

	return out, failed, nil
}

func (s *EnrichmentService) fetchTeam(ctx context.Context, league string, team TeamRef) (game.TeamStat, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TeamTimeout)
	defer cancel()

	stat, err := s.provider.FetchTeamStat(ctx, league, team)
	if err != nil {
		return game.TeamStat{}, err
	}
	if len(stat.Last3) == 0 {
		return game.TeamStat{}, crerr.Newf("no completed games found for %s", team.Name)
	}
	stat.TeamName = team.Name
	return stat, nil
}

// collectTeams lists each team once, in order of first appearance.
func collectTeams(games []game.Game) []TeamRef {
	seen := make(map[string]int, len(games)*2)
	out := make([]TeamRef, 0, len(games)*2)
	add := func(name, ref string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if idx, ok := seen[name]; ok {
			if out[idx].Ref == "" {
				out[idx].Ref = ref
			}
			return
		}
		seen[name] = len(out)
		out = append(out, TeamRef{Name: name, Ref: ref})
	}
	for _, item := range games {
		add(item.AwayTeam, item.AwayRef)
		add(item.HomeTeam, item.HomeRef)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
