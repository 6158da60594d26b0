package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/jobscheduler"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

type CleanupConfig struct {
	RunRetention time.Duration
}

type CleanupResult struct {
	Sweep      SweepResult `json:"sweep"`
	RunsPurged int64       `json:"runs_purged"`
	Locked     bool        `json:"locked"`
}

// CleanupService runs the mid-morning housekeeping: pending deletions, old
// run history and finalising the previous day's averages.
type CleanupService struct {
	records  dailyrecord.Repository
	runs     jobscheduler.Repository
	deferred *DeferredService
	cfg      CleanupConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewCleanupService(
	records dailyrecord.Repository,
	runs jobscheduler.Repository,
	deferredSvc *DeferredService,
	cfg CleanupConfig,
	logger *logging.Logger,
) *CleanupService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RunRetention <= 0 {
		cfg.RunRetention = 30 * 24 * time.Hour
	}
	return &CleanupService{
		records:  records,
		runs:     runs,
		deferred: deferredSvc,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run locks the record for input.Date, which callers set to the previous day.
func (s *CleanupService) Run(ctx context.Context, input JobInput) (CleanupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CleanupService.Run")
	defer span.End()

	var result CleanupResult
	if s.deferred != nil {
		sweep, err := s.deferred.Sweep(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "cleanup sweep failed", "error", err)
		}
		result.Sweep = sweep
	}

	if s.runs != nil {
		purged, err := s.runs.PurgeBefore(ctx, s.now().UTC().Add(-s.cfg.RunRetention))
		if err != nil {
			s.logger.WarnContext(ctx, "purge job runs failed", "error", err)
		}
		result.RunsPurged = purged
	}

	date := dailyrecord.FormatDate(input.Date)
	record, found, err := s.records.Get(ctx, input.League, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", input.League, date), ErrStoreUnavailable)
	}
	if found && !record.PPGLocked {
		update := record.ToUpdate()
		update.PPGLocked = true
		if err := s.records.Upsert(ctx, update); err != nil {
			return result, crerr.Mark(crerr.Wrapf(err, "lock daily record league=%s date=%s", input.League, date), ErrStoreUnavailable)
		}
		result.Locked = true
	}

	s.logger.InfoContext(ctx, "cleanup finished",
		"league", input.League,
		"locked_date", date,
		"locked", result.Locked,
		"runs_purged", result.RunsPurged,
		"deletions_removed", result.Sweep.Removed,
	)
	return result, nil
}
