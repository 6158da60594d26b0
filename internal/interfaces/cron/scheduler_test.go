package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu        sync.Mutex
	defs      []usecase.JobDefinition
	runs      []string
	requests  []usecase.RunRequest
	prevFires map[string]time.Time
	runErr    error
}

func (s *stubRunner) Definitions() []usecase.JobDefinition { return s.defs }

func (s *stubRunner) Run(_ context.Context, name string, req usecase.RunRequest) ([]usecase.RunOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, name)
	s.requests = append(s.requests, req)
	return []usecase.RunOutcome{{}}, s.runErr
}

func (s *stubRunner) CatchUp(_ context.Context, prevFires map[string]time.Time) ([]usecase.RunOutcome, error) {
	s.prevFires = prevFires
	return nil, nil
}

func newTestScheduler(t *testing.T, runner JobRunner) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return New(runner, Config{Location: loc, JobTimeout: time.Minute}, logging.NewNop())
}

func TestScheduler_RegisterReplacesByName(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &stubRunner{})
	require.NoError(t, s.Register("morning", "0 6 * * *"))
	require.NoError(t, s.Register("morning", "30 7 * * *"))
	require.NoError(t, s.Register("pre-sleep", "0 22 * * *"))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "morning", entries[0].Name)
	assert.Equal(t, "30 7 * * *", entries[0].Spec)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_RegisterRejectsBadInput(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &stubRunner{})
	err := s.Register("morning", "not a spec")
	if !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	err = s.Register(" ", "0 6 * * *")
	if !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty name, got %v", err)
	}
	err = s.Every("sweep", 0)
	if !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero interval, got %v", err)
	}
}

func TestScheduler_RegisterJobsSkipsUnscheduled(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{defs: []usecase.JobDefinition{
		{Name: "morning", Spec: "0 6 * * *"},
		{Name: "manual-only"},
		{Name: "sweep", Spec: "@every 1m0s"},
	}}
	s := newTestScheduler(t, runner)
	require.NoError(t, s.RegisterJobs())

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "morning", entries[0].Name)
	assert.Equal(t, "sweep", entries[1].Name)
}

func TestScheduler_PrevFires(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &stubRunner{})
	require.NoError(t, s.Register("morning", "0 6 * * *"))
	require.NoError(t, s.Register("pre-sleep", "0 22 * * *"))
	require.NoError(t, s.Every("sweep", time.Minute))

	now := time.Date(2026, 1, 15, 9, 30, 0, 0, s.cfg.Location)
	fires := s.PrevFires(now)

	require.Len(t, fires, 2)
	assert.True(t, fires["morning"].Equal(time.Date(2026, 1, 15, 6, 0, 0, 0, s.cfg.Location)))
	assert.True(t, fires["pre-sleep"].Equal(time.Date(2026, 1, 14, 22, 0, 0, 0, s.cfg.Location)))
	_, ok := fires["sweep"]
	assert.False(t, ok)
}

func TestScheduler_CatchUpPassesPrevFires(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	s := newTestScheduler(t, runner)
	s.now = func() time.Time { return time.Date(2026, 1, 15, 8, 0, 0, 0, s.cfg.Location) }
	require.NoError(t, s.Register("morning", "0 6 * * *"))

	_, err := s.CatchUp(context.Background())
	require.NoError(t, err)
	require.Contains(t, runner.prevFires, "morning")
	assert.Equal(t, 6, runner.prevFires["morning"].Hour())
}

func TestScheduler_CatchUpRunsIntervalJobsOnce(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	s := newTestScheduler(t, runner)
	s.now = func() time.Time { return time.Date(2026, 1, 15, 8, 0, 0, 0, s.cfg.Location) }
	require.NoError(t, s.Register("morning", "0 6 * * *"))
	require.NoError(t, s.Every("deferred-sweep", time.Minute))

	outcomes, err := s.CatchUp(context.Background())
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
	require.Equal(t, []string{"deferred-sweep"}, runner.runs)
	assert.Equal(t, usecase.TriggerCatchUp, runner.requests[0].Trigger)
	assert.NotContains(t, runner.prevFires, "deferred-sweep")
}

func TestScheduler_CatchUpReportsIntervalJobError(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{runErr: errors.New("store down")}
	s := newTestScheduler(t, runner)
	require.NoError(t, s.Every("deferred-sweep", time.Minute))

	_, err := s.CatchUp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deferred-sweep")
}

func TestScheduler_FireUsesScheduleTrigger(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{runErr: errors.New("boom")}
	s := newTestScheduler(t, runner)

	s.fire("morning")

	require.Equal(t, []string{"morning"}, runner.runs)
	assert.Equal(t, usecase.TriggerSchedule, runner.requests[0].Trigger)
	assert.Empty(t, runner.requests[0].League)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &stubRunner{})
	require.NoError(t, s.Register("morning", "0 6 * * *"))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestPrevFire_NoneInWindow(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &stubRunner{})
	schedule, err := s.parser.Parse("0 6 1 1 *")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, prevFire(schedule, now, 48*time.Hour).IsZero())
}
