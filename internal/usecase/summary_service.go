package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

type SummaryConfig struct {
	DeleteAfter time.Duration
}

// DeletionScheduler is the part of DeferredService summaries depend on.
type DeletionScheduler interface {
	Schedule(ctx context.Context, chatID, messageID string, dueIn time.Duration) (deferred.Deletion, error)
}

// PlayTally counts graded plays for a day.
type PlayTally struct {
	Wins    int
	Losses  int
	Pushes  int
	Pending int
}

// SummaryService renders daily summaries and hands them to the notifier.
// Delivery failures are logged and never fail the job.
type SummaryService struct {
	records  dailyrecord.Repository
	history  HistoryProvider
	notifier Notifier
	deletion DeletionScheduler
	cfg      SummaryConfig
	logger   *logging.Logger
}

func NewSummaryService(
	records dailyrecord.Repository,
	history HistoryProvider,
	notifier Notifier,
	deletion DeletionScheduler,
	cfg SummaryConfig,
	logger *logging.Logger,
) *SummaryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SummaryService{
		records:  records,
		history:  history,
		notifier: notifier,
		deletion: deletion,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *SummaryService) SendActivitySummary(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.SendActivitySummary")
	defer span.End()

	date := dailyrecord.FormatDate(input.Date)
	result := JobResult{Job: JobActivitySummary, League: input.League, Date: date}

	record, found, err := s.records.Get(ctx, input.League, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", input.League, date), ErrStoreUnavailable)
	}
	if !found {
		s.logger.WarnContext(ctx, "no daily record for activity summary", "league", input.League, "date", date)
		result.Skipped = true
		result.Reason = "no record"
		return result, nil
	}

	result.Games = len(record.Games)
	result.Plays = len(record.Plays)
	result.Notified = s.notify(ctx, FormatActivitySummary(record))
	return result, nil
}

func (s *SummaryService) SendBettingSummary(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.SendBettingSummary")
	defer span.End()

	date := dailyrecord.FormatDate(input.Date)
	result := JobResult{Job: JobBettingSummary, League: input.League, Date: date}

	record, found, err := s.records.Get(ctx, input.League, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", input.League, date), ErrStoreUnavailable)
	}
	if !found {
		record = dailyrecord.Record{League: input.League, Date: date}
	}

	var history *ExternalWeeklyHistory
	if s.history != nil {
		weekly, err := s.history.FetchWeeklyHistory(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "weekly history unavailable, summary without profits", "error", err)
		} else {
			history = &weekly
		}
	}

	result.Games = len(record.Games)
	result.Plays = len(record.Plays)
	result.Notified = s.notify(ctx, FormatBettingSummary(record, TallyPlays(record), history))
	return result, nil
}

// SendOpportunities announces the plays of a freshly refreshed record.
func (s *SummaryService) SendOpportunities(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.SendOpportunities")
	defer span.End()

	date := dailyrecord.FormatDate(input.Date)
	result := JobResult{Job: JobPreSleepRefresh, League: input.League, Date: date}

	record, found, err := s.records.Get(ctx, input.League, date)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", input.League, date), ErrStoreUnavailable)
	}
	if !found || len(record.Plays) == 0 {
		result.Skipped = true
		result.Reason = "no plays"
		return result, nil
	}

	result.Plays = len(record.Plays)
	result.Notified = s.notify(ctx, FormatOpportunities(record))
	return result, nil
}

func (s *SummaryService) notify(ctx context.Context, text string) bool {
	if s.notifier == nil {
		return false
	}

	messageID, err := s.notifier.Send(ctx, text)
	if err != nil {
		s.logger.ErrorContext(ctx, "send notification failed", "channel", s.notifier.Channel(), "error", err)
		return false
	}
	if messageID == "" || s.deletion == nil || s.cfg.DeleteAfter <= 0 {
		return true
	}

	if _, err := s.deletion.Schedule(ctx, s.notifier.Channel(), messageID, s.cfg.DeleteAfter); err != nil {
		s.logger.WarnContext(ctx, "schedule notification deletion failed", "message_id", messageID, "error", err)
	}
	return true
}

// TallyPlays grades every play against its game's final score.
func TallyPlays(record dailyrecord.Record) PlayTally {
	finals := make(map[int]*game.Score, len(record.Games))
	for _, item := range record.Games {
		finals[item.GameNum] = item.FinalScore
	}

	var tally PlayTally
	for _, play := range record.Plays {
		switch game.ResultOf(play, finals[play.GameNum]) {
		case game.ResultWin:
			tally.Wins++
		case game.ResultLoss:
			tally.Losses++
		case game.ResultPush:
			tally.Pushes++
		default:
			tally.Pending++
		}
	}
	return tally
}

func FormatActivitySummary(record dailyrecord.Record) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	overs, unders := 0, 0
	for _, play := range record.Plays {
		switch play.Recommendation {
		case game.RecommendationOver:
			overs++
		case game.RecommendationUnder:
			unders++
		}
	}
	finished := 0
	for _, item := range record.Games {
		if item.FinalScore != nil {
			finished++
		}
	}

	fmt.Fprintf(buf, "📋 %s activity %s\n", strings.ToUpper(record.League), record.Date)
	fmt.Fprintf(buf, "Games: %d (%d final)\n", len(record.Games), finished)
	fmt.Fprintf(buf, "Plays: %d (%d over, %d under)\n", len(record.Plays), overs, unders)
	if record.LastUpdated != "" {
		fmt.Fprintf(buf, "Last updated: %s via %s\n", record.LastUpdated, record.DataSource)
	}
	if record.PPGLocked {
		buf.WriteString("PPG locked\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func FormatBettingSummary(record dailyrecord.Record, tally PlayTally, history *ExternalWeeklyHistory) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	fmt.Fprintf(buf, "💰 %s results %s\n", strings.ToUpper(record.League), record.Date)
	fmt.Fprintf(buf, "Record: %d-%d", tally.Wins, tally.Losses)
	if tally.Pushes > 0 {
		fmt.Fprintf(buf, "-%d", tally.Pushes)
	}
	if tally.Pending > 0 {
		fmt.Fprintf(buf, " (%d pending)", tally.Pending)
	}
	buf.WriteString("\n")

	if history != nil {
		for _, day := range history.Days {
			fmt.Fprintf(buf, "%s: %s\n", day.Day, formatProfit(day.Profit))
		}
		fmt.Fprintf(buf, "Week: %s\n", formatProfit(history.WeekTotal))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func FormatOpportunities(record dailyrecord.Record) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	fmt.Fprintf(buf, "🏀 %s plays %s\n", strings.ToUpper(record.League), record.Date)
	for _, play := range record.Plays {
		marker := game.DotNeutral
		switch play.Color {
		case game.ColorGreen:
			marker = game.DotGreen
		case game.ColorRed:
			marker = game.DotRed
		}
		fmt.Fprintf(buf, "%s %s @ %s %s %s", marker, play.AwayTeam, play.HomeTeam, play.Recommendation, formatOptional(play.Total))
		if play.Edge != nil {
			fmt.Fprintf(buf, " (edge %+.1f)", *play.Edge)
		}
		if play.Time != "" {
			fmt.Fprintf(buf, " %s", play.Time)
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatProfit(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
