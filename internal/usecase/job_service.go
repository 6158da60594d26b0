package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/jobscheduler"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/trace"
)

const (
	JobOpeningLines    = "opening-lines"
	JobEnrich          = "enrich"
	JobMorningRefresh  = "morning-refresh"
	JobPreSleepRefresh = "presleep-refresh"
	JobActivitySummary = "activity-summary"
	JobBettingSummary  = "betting-summary"
	JobCleanup         = "cleanup"
	JobDeferredSweep   = "deferred-sweep"
)

const (
	TriggerSchedule = "schedule"
	TriggerCatchUp  = "catch-up"
	TriggerManual   = "manual"
	TriggerAPI      = "api"
)

type JobFunc func(ctx context.Context, input JobInput) (JobResult, error)

// JobDefinition binds a job name to its work. Jobs without a Spec are only
// run on demand. DayOffset picks the target date relative to the local day
// the job fires on; Global jobs run once instead of once per league.
type JobDefinition struct {
	Name      string
	Spec      string
	DayOffset int
	Global    bool
	CatchUp   bool
	Run       JobFunc
}

type JobServiceConfig struct {
	Leagues  []string
	Location *time.Location
}

type RunRequest struct {
	League  string
	Date    time.Time
	Trigger string
}

type RunOutcome struct {
	RunID  string    `json:"run_id"`
	Result JobResult `json:"result"`
	Error  string    `json:"error,omitempty"`
	Err    error     `json:"-"`
}

// JobService owns the registered jobs and runs them with panic capture and a
// run ledger. A failing run is reported, never propagated as a panic.
type JobService struct {
	mu     sync.RWMutex
	defs   map[string]JobDefinition
	order  []string
	runs   jobscheduler.Repository
	cfg    JobServiceConfig
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

func NewJobService(runs jobscheduler.Repository, cfg JobServiceConfig, logger *logging.Logger) *JobService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	leagues := make([]string, 0, len(cfg.Leagues))
	for _, item := range cfg.Leagues {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			leagues = append(leagues, item)
		}
	}
	cfg.Leagues = leagues

	return &JobService{
		defs:   make(map[string]JobDefinition),
		runs:   runs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Register adds def, replacing any job already registered under the same name.
func (s *JobService) Register(def JobDefinition) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return crerr.Wrap(ErrInvalidInput, "job name is required")
	}
	if def.Run == nil {
		return crerr.Wrapf(ErrInvalidInput, "job %s has no run function", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.defs[def.Name]; !exists {
		s.order = append(s.order, def.Name)
	} else {
		s.logger.Info("job definition replaced", "job", def.Name)
	}
	s.defs[def.Name] = def
	return nil
}

func (s *JobService) Definition(name string) (JobDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[strings.TrimSpace(name)]
	return def, ok
}

// Definitions returns the registered jobs in registration order.
func (s *JobService) Definitions() []JobDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobDefinition, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.defs[name])
	}
	return out
}

func (s *JobService) Location() *time.Location {
	return s.cfg.Location
}

// TargetDate is the local calendar day at offset from the day of at.
func (s *JobService) TargetDate(def JobDefinition, at time.Time) time.Time {
	local := at.In(s.cfg.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d+def.DayOffset, 0, 0, 0, 0, s.cfg.Location)
}

// Run executes the named job for req.League, or for every configured league
// when it is empty. Errors of individual runs are combined.
func (s *JobService) Run(ctx context.Context, name string, req RunRequest) ([]RunOutcome, error) {
	def, ok := s.Definition(name)
	if !ok {
		return nil, crerr.Wrapf(ErrNotFound, "job %s is not registered", name)
	}

	leagues, err := s.leaguesFor(def, req.League)
	if err != nil {
		return nil, err
	}
	trigger := strings.TrimSpace(req.Trigger)
	if trigger == "" {
		trigger = TriggerManual
	}
	date := req.Date
	if date.IsZero() {
		date = s.TargetDate(def, s.now())
	}

	outcomes := make([]RunOutcome, 0, len(leagues))
	var combined error
	for _, league := range leagues {
		outcome := s.runOne(ctx, def, JobInput{League: league, Date: date, Trigger: trigger})
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			combined = crerr.CombineErrors(combined, outcome.Err)
		}
	}
	return outcomes, combined
}

// CatchUp runs catch-up enabled jobs whose latest scheduled fire, given in
// prevFires, falls on the current local day and has no completed run since.
func (s *JobService) CatchUp(ctx context.Context, prevFires map[string]time.Time) ([]RunOutcome, error) {
	if s.runs == nil {
		s.logger.WarnContext(ctx, "job run ledger not configured, catch-up skipped")
		return nil, nil
	}

	today := s.TargetDate(JobDefinition{}, s.now())
	var (
		outcomes []RunOutcome
		combined error
	)
	for _, def := range s.Definitions() {
		if !def.CatchUp {
			continue
		}
		fired, ok := prevFires[def.Name]
		if !ok || fired.IsZero() {
			continue
		}
		if !s.TargetDate(JobDefinition{}, fired).Equal(today) {
			continue
		}

		leagues, err := s.leaguesFor(def, "")
		if err != nil {
			return outcomes, err
		}
		for _, league := range leagues {
			last, found, err := s.runs.LastCompleted(ctx, def.Name, league)
			if err != nil {
				s.logger.WarnContext(ctx, "read last completed run failed", "job", def.Name, "league", league, "error", err)
				continue
			}
			if found && !last.Before(fired) {
				continue
			}

			s.logger.InfoContext(ctx, "missed job detected, running catch-up",
				"job", def.Name,
				"league", league,
				"scheduled_at", fired,
				"last_completed", last,
			)
			outcome := s.runOne(ctx, def, JobInput{
				League:  league,
				Date:    s.TargetDate(def, fired),
				Trigger: TriggerCatchUp,
			})
			outcomes = append(outcomes, outcome)
			if outcome.Err != nil {
				combined = crerr.CombineErrors(combined, outcome.Err)
			}
		}
	}
	return outcomes, combined
}

func (s *JobService) leaguesFor(def JobDefinition, league string) ([]string, error) {
	if def.Global {
		return []string{""}, nil
	}
	league = strings.ToLower(strings.TrimSpace(league))
	if league != "" {
		return []string{league}, nil
	}
	if len(s.cfg.Leagues) == 0 {
		return nil, crerr.Wrapf(ErrInvalidInput, "job %s needs a league and none is configured", def.Name)
	}
	return append([]string(nil), s.cfg.Leagues...), nil
}

func (s *JobService) runOne(ctx context.Context, def JobDefinition, input JobInput) RunOutcome {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobService.Run."+def.Name)
	defer span.End()

	runID := s.newID()
	startedAt := s.now()
	date := dailyrecord.FormatDate(input.Date)
	logger := s.logger.With("job", def.Name, "run_id", runID, "league", input.League, "date", date, "trigger", input.Trigger)

	logger.InfoContext(ctx, "job started")
	s.recordEvent(ctx, jobscheduler.RunEvent{
		RunID:      runID,
		JobName:    def.Name,
		League:     input.League,
		TargetDate: date,
		Trigger:    input.Trigger,
		Status:     jobscheduler.StatusStarted,
		OccurredAt: startedAt.UTC(),
	})

	var (
		result  JobResult
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		result, err = def.Run(ctx, input)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = crerr.Wrapf(recovered.AsError(), "job %s panicked", def.Name)
	}

	result.Job = def.Name
	if result.League == "" {
		result.League = input.League
	}
	if result.Date == "" {
		result.Date = date
	}

	event := jobscheduler.RunEvent{
		RunID:      runID,
		JobName:    def.Name,
		League:     input.League,
		TargetDate: date,
		Trigger:    input.Trigger,
		Status:     jobscheduler.StatusCompleted,
		Payload:    resultPayload(result),
		OccurredAt: s.now().UTC(),
	}
	outcome := RunOutcome{RunID: runID, Result: result}
	elapsed := s.now().Sub(startedAt)
	if err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		outcome.Err = err
		outcome.Error = err.Error()
		logger.ErrorContext(ctx, "job failed", "duration", elapsed, "error", err)
	} else {
		logger.InfoContext(ctx, "job completed",
			"duration", elapsed,
			"games", result.Games,
			"plays", result.Plays,
			"skipped", result.Skipped,
			"reason", result.Reason,
		)
	}
	s.recordEvent(ctx, event)
	return outcome
}

func (s *JobService) recordEvent(ctx context.Context, event jobscheduler.RunEvent) {
	if s.runs == nil {
		return
	}
	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if err := s.runs.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job run event failed",
			"run_id", event.RunID,
			"status", event.Status,
			"error", err,
		)
	}
}

func resultPayload(result JobResult) map[string]any {
	payload := map[string]any{
		"games": result.Games,
		"plays": result.Plays,
	}
	if result.GamesAdded > 0 {
		payload["games_added"] = result.GamesAdded
	}
	if result.TeamsRequested > 0 {
		payload["teams_requested"] = result.TeamsRequested
		payload["teams_cached"] = result.TeamsCached
		payload["teams_scraped"] = result.TeamsScraped
		payload["teams_failed"] = result.TeamsFailed
	}
	if result.Notified {
		payload["notified"] = true
	}
	if result.Skipped {
		payload["skipped"] = true
		payload["reason"] = result.Reason
	}
	if result.Detail != nil {
		payload["detail"] = result.Detail
	}
	return payload
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
