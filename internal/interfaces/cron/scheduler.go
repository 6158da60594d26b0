package cron

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
	robfig "github.com/robfig/cron/v3"
)

const catchUpLookback = 48 * time.Hour

// JobRunner is the part of usecase.JobService the scheduler drives.
type JobRunner interface {
	Definitions() []usecase.JobDefinition
	Run(ctx context.Context, name string, req usecase.RunRequest) ([]usecase.RunOutcome, error)
	CatchUp(ctx context.Context, prevFires map[string]time.Time) ([]usecase.RunOutcome, error)
}

type Config struct {
	Location   *time.Location
	JobTimeout time.Duration
}

type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler fires named jobs on cron specs in one timezone. Registering a
// name again replaces its previous entry.
type Scheduler struct {
	runner JobRunner
	cfg    Config
	logger *logging.Logger
	parser robfig.Parser
	cron   *robfig.Cron

	mu      sync.Mutex
	entries map[string]registered
	now     func() time.Time
}

type registered struct {
	id       robfig.EntryID
	spec     string
	schedule robfig.Schedule
}

func New(runner JobRunner, cfg Config, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}

	parser := robfig.NewParser(robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor)
	cronLog := cronLogger{logger: logger.With("component", "cron")}
	c := robfig.New(
		robfig.WithLocation(cfg.Location),
		robfig.WithParser(parser),
		robfig.WithLogger(cronLog),
		robfig.WithChain(robfig.Recover(cronLog), robfig.SkipIfStillRunning(cronLog)),
	)

	return &Scheduler{
		runner:  runner,
		cfg:     cfg,
		logger:  logger,
		parser:  parser,
		cron:    c,
		entries: make(map[string]registered),
		now:     time.Now,
	}
}

// RegisterJobs adds every runner job that has a spec.
func (s *Scheduler) RegisterJobs() error {
	for _, def := range s.runner.Definitions() {
		if strings.TrimSpace(def.Spec) == "" {
			continue
		}
		if err := s.Register(def.Name, def.Spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Register(name, spec string) error {
	name = strings.TrimSpace(name)
	spec = strings.TrimSpace(spec)
	if name == "" {
		return crerr.Wrap(usecase.ErrInvalidInput, "job name is required")
	}

	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return crerr.Mark(crerr.Wrapf(err, "parse spec %q for job %s", spec, name), usecase.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[name]; ok {
		s.cron.Remove(prev.id)
	}
	id := s.cron.Schedule(schedule, robfig.FuncJob(func() { s.fire(name) }))
	s.entries[name] = registered{id: id, spec: spec, schedule: schedule}

	s.logger.Info("job scheduled", "job", name, "spec", spec, "timezone", s.cfg.Location.String())
	return nil
}

// Every schedules a job at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration) error {
	if interval <= 0 {
		return crerr.Wrapf(usecase.ErrInvalidInput, "interval for job %s must be positive", name)
	}
	return s.Register(name, "@every "+interval.String())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Entries()))
}

// Stop prevents new fires and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return crerr.Wrap(ctx.Err(), "wait for running jobs")
	}
}

func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, reg := range s.entries {
		out = append(out, Entry{Name: name, Spec: reg.spec, Next: s.cron.Entry(reg.id).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PrevFires returns, per job, the latest scheduled time at or before now
// within the lookback window. Interval jobs have no fixed fire time and are
// left out.
func (s *Scheduler) PrevFires(now time.Time) map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	for name, reg := range s.entries {
		if strings.HasPrefix(reg.spec, "@every") {
			continue
		}
		if prev := prevFire(reg.schedule, now.In(s.cfg.Location), catchUpLookback); !prev.IsZero() {
			out[name] = prev
		}
	}
	return out
}

// CatchUp runs jobs whose fire time passed while the process was down, then
// runs every interval job once so periodic work starts with the process.
func (s *Scheduler) CatchUp(ctx context.Context) ([]usecase.RunOutcome, error) {
	outcomes, err := s.runner.CatchUp(ctx, s.PrevFires(s.now()))
	for _, name := range s.intervalJobs() {
		runs, runErr := s.runner.Run(ctx, name, usecase.RunRequest{Trigger: usecase.TriggerCatchUp})
		outcomes = append(outcomes, runs...)
		if runErr != nil {
			err = crerr.CombineErrors(err, crerr.Wrapf(runErr, "startup run %s", name))
		}
	}
	return outcomes, err
}

func (s *Scheduler) intervalJobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for name, reg := range s.entries {
		if strings.HasPrefix(reg.spec, "@every") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) fire(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	started := s.now()
	outcomes, err := s.runner.Run(ctx, name, usecase.RunRequest{Trigger: usecase.TriggerSchedule})
	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "runs", len(outcomes), "duration", time.Since(started).String(), "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", name, "runs", len(outcomes), "duration", time.Since(started).String())
}

func prevFire(schedule robfig.Schedule, now time.Time, lookback time.Duration) time.Time {
	var prev time.Time
	t := now.Add(-lookback)
	for {
		next := schedule.Next(t)
		if next.IsZero() || next.After(now) {
			return prev
		}
		prev = next
		t = next
	}
}

// cronLogger adapts the platform logger to cron's logger interface.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
