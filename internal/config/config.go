package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendMemory   = "memory"
)

// Config stores runtime configuration for the jobs, the scheduler and the API.
type Config struct {
	AppEnv         string `validate:"required,oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string
	LogLevel       logging.Level

	HTTPAddr           string
	ReadTimeout        time.Duration `validate:"gt=0"`
	WriteTimeout       time.Duration `validate:"gt=0"`
	CORSAllowedOrigins []string      `validate:"min=1"`
	SwaggerEnabled     bool
	InternalJobToken   string

	Leagues    []string `validate:"min=1,dive,alphanum,max=16"`
	TargetDate string   `validate:"omitempty,datetime=2006-01-02"`

	SchedulerTimezone     string         `validate:"required"`
	Location              *time.Location `validate:"-"`
	OpeningLinesSpec      string
	MorningRefreshSpec    string
	PreSleepRefreshSpec   string
	ActivitySummarySpec   string
	BettingSummarySpec    string
	CleanupSpec           string
	DeferredSweepInterval time.Duration `validate:"gte=0"`
	JobTimeout            time.Duration `validate:"gt=0"`

	StoreBackend            string `validate:"required,oneof=postgres dynamodb memory"`
	DBURL                   string `validate:"required_if=StoreBackend postgres"`
	DBName                  string
	DBDisablePreparedBinary bool
	DynamoDBTable           string `validate:"required_if=StoreBackend dynamodb"`
	AWSRegion               string

	RedisURL         string
	TeamStatCacheTTL time.Duration `validate:"gt=0"`
	RecordCacheTTL   time.Duration `validate:"gte=0"`

	ScoreboardURLTemplate  string
	ScoreboardRendered     bool
	AggregatorBaseURL      string        `validate:"omitempty,url"`
	AggregatorRateInterval time.Duration `validate:"gte=0"`
	ScrapeBatchSize        int           `validate:"min=1,max=16"`
	ScrapeBatchPause       time.Duration `validate:"gte=0"`
	ScrapeTimeout          time.Duration `validate:"gt=0"`
	ScrapeMaxRetries       int           `validate:"min=0,max=5"`
	ScoreMin               int           `validate:"gte=0"`
	ScoreMax               int           `validate:"gtfield=ScoreMin"`

	PortalLoginURL    string `validate:"omitempty,url"`
	PortalHistoryURL  string `validate:"required_with=PortalLoginURL,omitempty,url"`
	PortalUsername    string `validate:"required_with=PortalLoginURL"`
	PortalPassword    string `validate:"required_with=PortalUsername"`
	PortalSettleDelay time.Duration
	ChromeHeadless    bool

	DiscordBotToken   string `validate:"required_with=DiscordChannelID"`
	DiscordChannelID  string
	NotifyDeleteAfter time.Duration `validate:"gte=0"`

	JobRunRetention time.Duration `validate:"gt=0"`

	SourceCircuitEnabled        bool
	SourceCircuitFailureCount   int           `validate:"min=1"`
	SourceCircuitOpenTimeout    time.Duration `validate:"gt=0"`
	SourceCircuitHalfOpenMaxReq int           `validate:"min=1"`

	UptraceEnabled             bool
	UptraceDSN                 string `validate:"required_if=UptraceEnabled true"`
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string `validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName           string `validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// PortalEnabled reports whether the login-gated history source is configured.
func (c Config) PortalEnabled() bool {
	return c.PortalLoginURL != "" && c.PortalUsername != ""
}

func (c Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	r := &envReader{}
	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    strings.TrimSpace(getEnv("APP_SERVICE_NAME", "sports-trading")),
		ServiceVersion: strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		HTTPAddr:           strings.TrimSpace(getEnv("APP_HTTP_ADDR", "")),
		ReadTimeout:        r.duration("APP_READ_TIMEOUT", "10s"),
		WriteTimeout:       r.duration("APP_WRITE_TIMEOUT", "15s"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:     r.boolean("SWAGGER_ENABLED", swaggerDefault),
		InternalJobToken:   strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),

		Leagues:    lowerAll(splitCSV(getEnv("LEAGUES", "nba"))),
		TargetDate: strings.TrimSpace(getEnv("TARGET_DATE", "")),

		SchedulerTimezone:     strings.TrimSpace(getEnv("SCHEDULER_TIMEZONE", "America/New_York")),
		OpeningLinesSpec:      strings.TrimSpace(getEnv("JOB_OPENING_LINES_SPEC", "0 20 * * *")),
		MorningRefreshSpec:    strings.TrimSpace(getEnv("JOB_MORNING_REFRESH_SPEC", "0 6 * * *")),
		PreSleepRefreshSpec:   strings.TrimSpace(getEnv("JOB_PRESLEEP_REFRESH_SPEC", "30 22 * * *")),
		ActivitySummarySpec:   strings.TrimSpace(getEnv("JOB_ACTIVITY_SUMMARY_SPEC", "45 23 * * *")),
		BettingSummarySpec:    strings.TrimSpace(getEnv("JOB_BETTING_SUMMARY_SPEC", "50 23 * * *")),
		CleanupSpec:           strings.TrimSpace(getEnv("JOB_CLEANUP_SPEC", "0 10 * * *")),
		DeferredSweepInterval: r.duration("DEFERRED_SWEEP_INTERVAL", "1m"),
		JobTimeout:            r.duration("JOB_TIMEOUT", "30m"),

		StoreBackend:            strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreBackendPostgres))),
		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: r.boolean("DB_DISABLE_PREPARED_BINARY_RESULT", "true"),
		DynamoDBTable:           strings.TrimSpace(getEnv("DYNAMODB_TABLE", "daily_records")),
		AWSRegion:               strings.TrimSpace(getEnv("AWS_REGION", "")),

		RedisURL:         strings.TrimSpace(getEnv("REDIS_URL", "")),
		TeamStatCacheTTL: r.duration("TEAM_STAT_CACHE_TTL", "6h"),
		RecordCacheTTL:   r.duration("RECORD_CACHE_TTL", "30s"),

		ScoreboardURLTemplate:  strings.TrimSpace(getEnv("SCOREBOARD_URL_TEMPLATE", "")),
		ScoreboardRendered:     r.boolean("SCOREBOARD_RENDERED", "true"),
		AggregatorBaseURL:      strings.TrimSpace(getEnv("AGGREGATOR_BASE_URL", "")),
		AggregatorRateInterval: r.duration("AGGREGATOR_RATE_INTERVAL", "1s"),
		ScrapeBatchSize:        r.integer("SCRAPE_BATCH_SIZE", 4),
		ScrapeBatchPause:       r.duration("SCRAPE_BATCH_PAUSE", "2s"),
		ScrapeTimeout:          r.duration("SCRAPE_TIMEOUT", "30s"),
		ScrapeMaxRetries:       r.integer("SCRAPE_MAX_RETRIES", 1),
		ScoreMin:               r.integer("SCORE_MIN", 40),
		ScoreMax:               r.integer("SCORE_MAX", 160),

		PortalLoginURL:    strings.TrimSpace(getEnv("PORTAL_LOGIN_URL", "")),
		PortalHistoryURL:  strings.TrimSpace(getEnv("PORTAL_HISTORY_URL", "")),
		PortalUsername:    strings.TrimSpace(getEnv("PORTAL_USERNAME", "")),
		PortalPassword:    getEnv("PORTAL_PASSWORD", ""),
		PortalSettleDelay: r.duration("PORTAL_SETTLE_DELAY", "5s"),
		ChromeHeadless:    r.boolean("CHROME_HEADLESS", "true"),

		DiscordBotToken:   strings.TrimSpace(getEnv("DISCORD_BOT_TOKEN", "")),
		DiscordChannelID:  strings.TrimSpace(getEnv("DISCORD_CHANNEL_ID", "")),
		NotifyDeleteAfter: r.duration("NOTIFY_DELETE_AFTER", "30m"),

		JobRunRetention: r.duration("JOB_RUN_RETENTION", "720h"),

		SourceCircuitEnabled:        r.boolean("SOURCE_CIRCUIT_ENABLED", "true"),
		SourceCircuitFailureCount:   r.integer("SOURCE_CIRCUIT_FAILURE_COUNT", 4),
		SourceCircuitOpenTimeout:    r.duration("SOURCE_CIRCUIT_OPEN_TIMEOUT", "30s"),
		SourceCircuitHalfOpenMaxReq: r.integer("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ", 1),

		UptraceEnabled:             r.boolean("UPTRACE_ENABLED", "false"),
		PyroscopeEnabled:           r.boolean("PYROSCOPE_ENABLED", "false"),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""),
		PyroscopeUploadRate:        r.duration("PYROSCOPE_UPLOAD_RATE", "15s"),
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.DBName = strings.TrimSpace(getEnv("DB_NAME", dbNameFromURL(cfg.DBURL)))

	cfg.Location, err = time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("load SCHEDULER_TIMEZONE %q: %w", cfg.SchedulerTimezone, err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// envReader parses typed values and keeps every parse error so one Load
// reports all bad keys at once.
type envReader struct {
	errs []error
}

func (r *envReader) duration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	out, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("parse %s: %w", key, err))
	}
	return out
}

func (r *envReader) boolean(key, fallback string) bool {
	out, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("parse %s: %w", key, err))
	}
	return out
}

func (r *envReader) integer(key string, fallback int) int {
	out, err := getEnvAsInt(key, fallback)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("parse %s: %w", key, err))
	}
	return out
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func lowerAll(items []string) []string {
	for i := range items {
		items[i] = strings.ToLower(items[i])
	}
	return items
}

// dbNameFromURL returns the database name of a postgres URL or key=value DSN.
func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}

	for _, token := range strings.Fields(trimmed) {
		if name, ok := strings.CutPrefix(token, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}
	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
