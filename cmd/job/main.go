package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/riskibarqy/sports-trading/internal/app"
	"github.com/riskibarqy/sports-trading/internal/config"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/observability"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

// Exit codes: 0 when the job ran (partial gaps included), 1 when a store or
// source outage stopped it, 2 on bad usage or configuration.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "process", "job")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	name, req, err := parseArgs(args, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 2
	}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Warn("uptrace init failed", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownTracing != nil {
			_ = shutdownTracing(ctx)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application context", "error", err)
		if usecase.IsFatal(err) {
			return 1
		}
		return 2
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close application context", "error", err)
		}
	}()

	if _, ok := a.Jobs.Definition(name); !ok {
		fmt.Fprintf(os.Stderr, "unknown job %q\n", name)
		printUsage()
		return 2
	}

	outcomes, err := a.Jobs.Run(ctx, name, req)
	return exitCode(outcomes, err, logger)
}

func parseArgs(args []string, cfg config.Config) (string, usecase.RunRequest, error) {
	fs := flag.NewFlagSet("job", flag.ContinueOnError)
	league := fs.String("league", "", "run for one league instead of every configured league")
	date := fs.String("date", cfg.TargetDate, "target date YYYY-MM-DD (defaults to the job's own day)")

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", usecase.RunRequest{}, fmt.Errorf("job name is required")
	}
	name := strings.TrimSpace(args[0])
	if err := fs.Parse(args[1:]); err != nil {
		return "", usecase.RunRequest{}, err
	}

	req := usecase.RunRequest{
		League:  strings.ToLower(strings.TrimSpace(*league)),
		Trigger: usecase.TriggerManual,
	}
	if raw := strings.TrimSpace(*date); raw != "" {
		parsed, err := time.ParseInLocation(dailyrecord.DateLayout, raw, cfg.Location)
		if err != nil {
			return "", usecase.RunRequest{}, fmt.Errorf("invalid -date %q: want YYYY-MM-DD", raw)
		}
		req.Date = parsed
	}
	return name, req, nil
}

func exitCode(outcomes []usecase.RunOutcome, err error, logger *logging.Logger) int {
	code := 0
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			logger.Info("job run finished", "run_id", outcome.RunID, "result", outcome.Result)
			continue
		}
		logger.Error("job run failed", "run_id", outcome.RunID, "league", outcome.Result.League, "error", outcome.Err)
		if usecase.IsFatal(outcome.Err) {
			code = 1
		}
	}
	if err != nil && len(outcomes) == 0 {
		logger.Error("job did not start", "error", err)
		if usecase.IsFatal(err) {
			return 1
		}
		return 2
	}
	return code
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: job <name> [-league L] [-date YYYY-MM-DD]")
	fmt.Fprintln(os.Stderr, "jobs: opening-lines, enrich, morning-refresh, presleep-refresh, activity-summary, betting-summary, cleanup, deferred-sweep")
}
