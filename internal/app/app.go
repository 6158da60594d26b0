package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/sports-trading/external/aggregator"
	"github.com/riskibarqy/sports-trading/external/browser"
	"github.com/riskibarqy/sports-trading/external/discord"
	"github.com/riskibarqy/sports-trading/external/portal"
	"github.com/riskibarqy/sports-trading/external/scoreboard"
	"github.com/riskibarqy/sports-trading/external/webclient"
	"github.com/riskibarqy/sports-trading/internal/config"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
	"github.com/riskibarqy/sports-trading/internal/domain/jobscheduler"
	"github.com/riskibarqy/sports-trading/internal/infrastructure/repository/cache"
	ddbrepo "github.com/riskibarqy/sports-trading/internal/infrastructure/repository/dynamodb"
	"github.com/riskibarqy/sports-trading/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sports-trading/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/sports-trading/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/sports-trading/internal/interfaces/httpapi"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/platform/resilience"
	"github.com/riskibarqy/sports-trading/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// App is the application context shared by the job CLI, the scheduler and
// the HTTP API. It is built once per process and closed at shutdown.
type App struct {
	Config  config.Config
	Logger  *logging.Logger
	Jobs    *usecase.JobService
	Records *usecase.RecordService

	records dailyrecord.Repository
	closers []func() error
}

type stores struct {
	records  dailyrecord.Repository
	deferred deferred.Repository
	runs     jobscheduler.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	st, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	// Jobs and the API share one record repository so job writes drop the
	// copy the API has cached.
	a.records = st.records
	if cfg.RecordCacheTTL > 0 {
		a.records = cache.NewDailyRecordRepository(st.records, cfg.RecordCacheTTL)
	}

	statCache, err := a.openTeamStatCache(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	notifier, err := a.openNotifier()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	chrome := browser.New(browser.Config{
		Headless: cfg.ChromeHeadless,
		Timeout:  cfg.ScrapeTimeout,
		Logger:   logger.With("component", "browser"),
	})
	a.closers = append(a.closers, chrome.Close)

	breaker := resilience.CircuitBreakerConfig{
		Enabled:          cfg.SourceCircuitEnabled,
		FailureThreshold: cfg.SourceCircuitFailureCount,
		OpenTimeout:      cfg.SourceCircuitOpenTimeout,
		HalfOpenProbes:   cfg.SourceCircuitHalfOpenMaxReq,
	}

	var scoreboardPages scoreboard.PageFetcher = browser.Page{Browser: chrome, WaitSelector: scoreboard.DefaultSelectors().Card}
	if !cfg.ScoreboardRendered {
		scoreboardPages = webclient.New(webclient.Config{
			Name:           "scoreboard",
			Timeout:        cfg.ScrapeTimeout,
			MaxRetries:     cfg.ScrapeMaxRetries,
			Logger:         logger.With("component", "scoreboard"),
			CircuitBreaker: breaker,
		})
	}
	scoreboardClient := scoreboard.NewClient(scoreboardPages, scoreboard.ClientConfig{
		URLTemplate: cfg.ScoreboardURLTemplate,
		Logger:      logger.With("component", "scoreboard"),
	})

	aggregatorPages := webclient.New(webclient.Config{
		Name:           "aggregator",
		Timeout:        cfg.ScrapeTimeout,
		MaxRetries:     cfg.ScrapeMaxRetries,
		RateInterval:   cfg.AggregatorRateInterval,
		Logger:         logger.With("component", "aggregator"),
		CircuitBreaker: breaker,
	})
	aggregatorClient := aggregator.NewClient(aggregatorPages, aggregator.ClientConfig{
		BaseURL: cfg.AggregatorBaseURL,
		Scores:  aggregator.ScoreRange{Min: cfg.ScoreMin, Max: cfg.ScoreMax},
		Logger:  logger.With("component", "aggregator"),
	})

	var history usecase.HistoryProvider
	if cfg.PortalEnabled() {
		sessions := portal.NewBrowserSessions(chrome, portal.LoginConfig{
			LoginURL:    cfg.PortalLoginURL,
			Credentials: portal.Credentials{Username: cfg.PortalUsername, Password: cfg.PortalPassword},
			SettleDelay: cfg.PortalSettleDelay,
			Logger:      logger.With("component", "portal"),
		})
		history = portal.NewClient(sessions, portal.ClientConfig{
			HistoryURL: cfg.PortalHistoryURL,
			Logger:     logger.With("component", "portal"),
		})
	}

	openingLines := usecase.NewOpeningLinesService(a.records, scoreboardClient, usecase.OpeningLinesConfig{
		Location: cfg.Location,
	}, logger)
	enrichment := usecase.NewEnrichmentService(a.records, aggregatorClient, statCache, usecase.EnrichmentConfig{
		BatchSize:   cfg.ScrapeBatchSize,
		BatchPause:  cfg.ScrapeBatchPause,
		TeamTimeout: cfg.ScrapeTimeout,
		Location:    cfg.Location,
	}, logger)
	deferredSvc := usecase.NewDeferredService(st.deferred, notifier, logger)
	summaries := usecase.NewSummaryService(a.records, history, notifier, deferredSvc, usecase.SummaryConfig{
		DeleteAfter: cfg.NotifyDeleteAfter,
	}, logger)
	cleanup := usecase.NewCleanupService(a.records, st.runs, deferredSvc, usecase.CleanupConfig{
		RunRetention: cfg.JobRunRetention,
	}, logger)
	orchestrator := usecase.NewJobOrchestratorService(openingLines, enrichment, summaries, cleanup, deferredSvc, logger)

	a.Jobs = usecase.NewJobService(st.runs, usecase.JobServiceConfig{
		Leagues:  cfg.Leagues,
		Location: cfg.Location,
	}, logger)
	for _, def := range orchestrator.Definitions(usecase.JobSpecs{
		OpeningLines:          cfg.OpeningLinesSpec,
		MorningRefresh:        cfg.MorningRefreshSpec,
		PreSleepRefresh:       cfg.PreSleepRefreshSpec,
		ActivitySummary:       cfg.ActivitySummarySpec,
		BettingSummary:        cfg.BettingSummarySpec,
		Cleanup:               cfg.CleanupSpec,
		DeferredSweepInterval: cfg.DeferredSweepInterval,
	}) {
		if err := a.Jobs.Register(def); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register job %s: %w", def.Name, err)
		}
	}

	a.Records = usecase.NewRecordService(a.records)

	logger.Info("application context ready",
		"store", cfg.StoreBackend,
		"leagues", cfg.Leagues,
		"timezone", cfg.Location.String(),
		"portal", cfg.PortalEnabled(),
		"discord", cfg.DiscordEnabled(),
	)
	return a, nil
}

// NewHTTPServer builds the API server. It fails when no address is set.
func (a *App) NewHTTPServer() (*http.Server, error) {
	if a.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(a.Records, a.Jobs, a.Logger, httpapi.WithJobTimeout(a.Config.JobTimeout))
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		ServiceName:        a.Config.ServiceName,
		DocsEnabled:        a.Config.SwaggerEnabled,
		CORSAllowedOrigins: a.Config.CORSAllowedOrigins,
		InternalJobToken:   a.Config.InternalJobToken,
	}, a.Logger)

	return httpapi.NewServer(router, httpapi.ServerConfig{
		Addr:         a.Config.HTTPAddr,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return crerr.Wrap(crerr.Join(errs...), "close application")
	}
	return nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := a.openDB(ctx)
		if err != nil {
			return stores{}, err
		}
		return stores{
			records:  postgres.NewDailyRecordRepository(db),
			deferred: postgres.NewDeferredDeletionRepository(db),
			runs:     postgres.NewJobRunRepository(db),
		}, nil

	case config.StoreBackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return stores{}, crerr.Mark(crerr.Wrap(err, "load aws config"), usecase.ErrStoreUnavailable)
		}
		st := stores{records: ddbrepo.NewDailyRecordRepository(awsdynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)}
		// The deletion queue and run ledger are relational; without a
		// database they only live as long as the process.
		if cfg.DBURL == "" {
			a.Logger.Warn("DB_URL not set, deferred deletions and job runs are kept in memory")
			st.deferred = memory.NewDeferredDeletionRepository()
			st.runs = memory.NewJobRunRepository()
			return st, nil
		}
		db, err := a.openDB(ctx)
		if err != nil {
			return stores{}, err
		}
		st.deferred = postgres.NewDeferredDeletionRepository(db)
		st.runs = postgres.NewJobRunRepository(db)
		return st, nil

	case config.StoreBackendMemory:
		return stores{
			records:  memory.NewDailyRecordRepository(),
			deferred: memory.NewDeferredDeletionRepository(),
			runs:     memory.NewJobRunRepository(),
		}, nil
	}
	return stores{}, crerr.Wrapf(usecase.ErrInvalidInput, "unknown store backend %q", cfg.StoreBackend)
}

func (a *App) openDB(ctx context.Context) (*sqlx.DB, error) {
	cfg := a.Config
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(cfg.DBName),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "open database"), usecase.ErrStoreUnavailable)
	}
	a.closers = append(a.closers, db.Close)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "ping database"), usecase.ErrStoreUnavailable)
	}
	return db, nil
}

func (a *App) openTeamStatCache(ctx context.Context) (usecase.TeamStatCache, error) {
	cfg := a.Config
	if cfg.RedisURL == "" {
		return cache.NewTeamStatCache(cfg.TeamStatCacheTTL), nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "parse REDIS_URL"), usecase.ErrInvalidInput)
	}
	client := goredis.NewClient(opts)
	a.closers = append(a.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// The cache only saves repeat scrapes; a dead Redis is not fatal.
		a.Logger.Warn("redis unavailable, using in-process team stat cache", "error", err)
		return cache.NewTeamStatCache(cfg.TeamStatCacheTTL), nil
	}
	return redisrepo.NewTeamStatCache(client, cfg.TeamStatCacheTTL), nil
}

func (a *App) openNotifier() (usecase.Notifier, error) {
	if !a.Config.DiscordEnabled() {
		a.Logger.Warn("discord not configured, summaries are only logged")
		return discord.NewLogNotifier(a.Logger.With("component", "notifier")), nil
	}
	notifier, err := discord.New(a.Config.DiscordBotToken, a.Config.DiscordChannelID, a.Logger.With("component", "notifier"))
	if err != nil {
		return nil, crerr.Wrap(err, "create discord notifier")
	}
	return notifier, nil
}
