package usecase

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

// JobSpecs holds the cron expressions of the scheduled jobs.
type JobSpecs struct {
	OpeningLines          string
	MorningRefresh        string
	PreSleepRefresh       string
	ActivitySummary       string
	BettingSummary        string
	Cleanup               string
	DeferredSweepInterval time.Duration
}

// JobOrchestratorService composes the services into the daily pipelines.
type JobOrchestratorService struct {
	openingLines *OpeningLinesService
	enrichment   *EnrichmentService
	summaries    *SummaryService
	cleanup      *CleanupService
	deferred     *DeferredService
	logger       *logging.Logger
}

func NewJobOrchestratorService(
	openingLines *OpeningLinesService,
	enrichment *EnrichmentService,
	summaries *SummaryService,
	cleanup *CleanupService,
	deferredSvc *DeferredService,
	logger *logging.Logger,
) *JobOrchestratorService {
	if logger == nil {
		logger = logging.Default()
	}
	return &JobOrchestratorService{
		openingLines: openingLines,
		enrichment:   enrichment,
		summaries:    summaries,
		cleanup:      cleanup,
		deferred:     deferredSvc,
		logger:       logger,
	}
}

// Definitions returns the standard job set. Jobs whose spec is empty are
// registered for on-demand runs only.
func (s *JobOrchestratorService) Definitions(specs JobSpecs) []JobDefinition {
	sweepSpec := ""
	if specs.DeferredSweepInterval > 0 {
		sweepSpec = "@every " + specs.DeferredSweepInterval.String()
	}

	return []JobDefinition{
		{Name: JobOpeningLines, Spec: strings.TrimSpace(specs.OpeningLines), DayOffset: 1, CatchUp: true, Run: s.OpeningLines},
		{Name: JobEnrich, Run: s.Enrich},
		{Name: JobMorningRefresh, Spec: strings.TrimSpace(specs.MorningRefresh), CatchUp: true, Run: s.MorningRefresh},
		{Name: JobPreSleepRefresh, Spec: strings.TrimSpace(specs.PreSleepRefresh), DayOffset: 1, CatchUp: true, Run: s.PreSleepRefresh},
		{Name: JobActivitySummary, Spec: strings.TrimSpace(specs.ActivitySummary), Run: s.ActivitySummary},
		{Name: JobBettingSummary, Spec: strings.TrimSpace(specs.BettingSummary), Run: s.BettingSummary},
		{Name: JobCleanup, Spec: strings.TrimSpace(specs.Cleanup), DayOffset: -1, CatchUp: true, Run: s.Cleanup},
		{Name: JobDeferredSweep, Spec: sweepSpec, Global: true, Run: s.DeferredSweep},
	}
}

func (s *JobOrchestratorService) OpeningLines(ctx context.Context, input JobInput) (JobResult, error) {
	return s.openingLines.Run(ctx, input)
}

func (s *JobOrchestratorService) Enrich(ctx context.Context, input JobInput) (JobResult, error) {
	return s.enrichment.Run(ctx, EnrichInput{JobInput: input})
}

// MorningRefresh records yesterday's final scores, refreshes today's lines and
// re-enriches today's record. Only the enrichment outcome decides the result.
func (s *JobOrchestratorService) MorningRefresh(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.MorningRefresh")
	defer span.End()

	yesterday := input
	yesterday.Date = input.Date.AddDate(0, 0, -1)
	if _, err := s.openingLines.Run(ctx, yesterday); err != nil {
		if crerr.Is(err, ErrStoreUnavailable) {
			return JobResult{}, err
		}
		s.logger.WarnContext(ctx, "final scores refresh failed", "league", input.League, "error", err)
	}

	if _, err := s.openingLines.Run(ctx, input); err != nil {
		if crerr.Is(err, ErrStoreUnavailable) {
			return JobResult{}, err
		}
		s.logger.WarnContext(ctx, "lines refresh failed, enriching stored games", "league", input.League, "error", err)
	}

	return s.enrichment.Run(ctx, EnrichInput{JobInput: input})
}

// PreSleepRefresh re-enriches the target day, rebuilds its plays and
// announces them.
func (s *JobOrchestratorService) PreSleepRefresh(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.PreSleepRefresh")
	defer span.End()

	result, err := s.enrichment.Run(ctx, EnrichInput{JobInput: input, RebuildPlays: true})
	if err != nil {
		return result, err
	}
	if s.summaries == nil {
		return result, nil
	}

	sent, err := s.summaries.SendOpportunities(ctx, input)
	if err != nil {
		s.logger.WarnContext(ctx, "send opportunities failed", "league", input.League, "error", err)
		return result, nil
	}
	result.Notified = sent.Notified
	return result, nil
}

func (s *JobOrchestratorService) ActivitySummary(ctx context.Context, input JobInput) (JobResult, error) {
	return s.summaries.SendActivitySummary(ctx, input)
}

func (s *JobOrchestratorService) BettingSummary(ctx context.Context, input JobInput) (JobResult, error) {
	return s.summaries.SendBettingSummary(ctx, input)
}

func (s *JobOrchestratorService) Cleanup(ctx context.Context, input JobInput) (JobResult, error) {
	out, err := s.cleanup.Run(ctx, input)
	return JobResult{Detail: out}, err
}

func (s *JobOrchestratorService) DeferredSweep(ctx context.Context, _ JobInput) (JobResult, error) {
	out, err := s.deferred.Sweep(ctx)
	return JobResult{Detail: out, Skipped: out.Due == 0, Reason: noneDueReason(out)}, err
}

func noneDueReason(out SweepResult) string {
	if out.Due == 0 {
		return "nothing due"
	}
	return ""
}
