package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	dailyrecordmock "github.com/riskibarqy/sports-trading/internal/mocks/domain/dailyrecord"
	usecasemock "github.com/riskibarqy/sports-trading/internal/mocks/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type recordingScheduler struct {
	scheduled []string
}

func (r *recordingScheduler) Schedule(_ context.Context, chatID, messageID string, dueIn time.Duration) (deferred.Deletion, error) {
	r.scheduled = append(r.scheduled, chatID+"/"+messageID+"/"+dueIn.String())
	return deferred.Deletion{ChatID: chatID, MessageID: messageID}, nil
}

type stubHistory struct {
	weekly ExternalWeeklyHistory
	err    error
}

func (s stubHistory) FetchWeeklyHistory(context.Context) (ExternalWeeklyHistory, error) {
	return s.weekly, s.err
}

func gradedRecord() dailyrecord.Record {
	return dailyrecord.Record{
		League: "nba",
		Date:   "2026-01-15",
		Games: []game.Game{
			{GameNum: 1, AwayTeam: "A", HomeTeam: "B", FinalScore: &game.Score{Away: 110, Home: 105}},
			{GameNum: 2, AwayTeam: "C", HomeTeam: "D", FinalScore: &game.Score{Away: 90, Home: 95}},
			{GameNum: 3, AwayTeam: "E", HomeTeam: "F"},
		},
		Plays: []game.Play{
			{GameNum: 1, AwayTeam: "A", HomeTeam: "B", Total: floatRef(205.5), Recommendation: game.RecommendationOver, Color: game.ColorGreen},
			{GameNum: 2, AwayTeam: "C", HomeTeam: "D", Total: floatRef(190.5), Recommendation: game.RecommendationOver, Color: game.ColorGreen},
			{GameNum: 3, AwayTeam: "E", HomeTeam: "F", Total: floatRef(220), Recommendation: game.RecommendationUnder, Color: game.ColorRed},
		},
		LastUpdated: "10:30 PM",
		DataSource:  "aggregator",
	}
}

func TestTallyPlays(t *testing.T) {
	t.Parallel()

	tally := TallyPlays(gradedRecord())
	assert.Equal(t, PlayTally{Wins: 1, Losses: 1, Pending: 1}, tally)
}

func TestFormatBettingSummary(t *testing.T) {
	t.Parallel()

	history := &ExternalWeeklyHistory{
		Days:      []ExternalDayProfit{{Day: "Mon", Profit: 42.5}, {Day: "Tue", Profit: -10}},
		WeekTotal: 32.5,
	}
	text := FormatBettingSummary(gradedRecord(), TallyPlays(gradedRecord()), history)

	assert.Contains(t, text, "NBA results 2026-01-15")
	assert.Contains(t, text, "Record: 1-1 (1 pending)")
	assert.Contains(t, text, "Mon: +$42.50")
	assert.Contains(t, text, "Tue: -$10.00")
	assert.True(t, strings.HasSuffix(text, "Week: +$32.50"), text)
}

func TestFormatOpportunities(t *testing.T) {
	t.Parallel()

	record := gradedRecord()
	record.Plays[0].Edge = floatRef(9.5)
	text := FormatOpportunities(record)

	lines := strings.Split(text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 plays, got %q", text)
	}
	if lines[1] != game.DotGreen+" A @ B OVER 205.5 (edge +9.5)" {
		t.Fatalf("unexpected play line: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], game.DotRed+" E @ F UNDER") {
		t.Fatalf("unexpected under line: %q", lines[3])
	}
}

func TestSummaryService_SendBettingSummary_SchedulesDeletion(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	notifier := usecasemock.NewNotifier(t)
	deletion := &recordingScheduler{}

	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(gradedRecord(), true, nil).Once()
	notifier.On("Send", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Record: 1-1")
	})).Return("msg-77", nil).Once()
	notifier.On("Channel").Return("chan-1")

	svc := NewSummaryService(records, stubHistory{err: errors.New("login failed")}, notifier, deletion, SummaryConfig{DeleteAfter: 30 * time.Minute}, nil)
	result, err := svc.SendBettingSummary(context.Background(), JobInput{League: "nba", Date: fixedClock()})
	if err != nil {
		t.Fatalf("send betting summary: %v", err)
	}
	if !result.Notified {
		t.Fatalf("expected notified result")
	}
	if len(deletion.scheduled) != 1 || deletion.scheduled[0] != "chan-1/msg-77/30m0s" {
		t.Fatalf("unexpected scheduled deletions: %v", deletion.scheduled)
	}
}

func TestSummaryService_SendActivitySummary_DeliveryFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	notifier := usecasemock.NewNotifier(t)

	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(gradedRecord(), true, nil).Once()
	notifier.On("Send", mock.Anything, mock.AnythingOfType("string")).Return("", errors.New("discord 503")).Once()
	notifier.On("Channel").Return("chan-1")

	svc := NewSummaryService(records, nil, notifier, nil, SummaryConfig{}, nil)
	result, err := svc.SendActivitySummary(context.Background(), JobInput{League: "nba", Date: fixedClock()})
	if err != nil {
		t.Fatalf("delivery failure must not fail the job: %v", err)
	}
	if result.Notified {
		t.Fatalf("expected not notified")
	}
	if result.Games != 3 || result.Plays != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSummaryService_SendOpportunities_SkipsWithoutPlays(t *testing.T) {
	t.Parallel()

	records := dailyrecordmock.NewRepository(t)
	records.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{League: "nba", Date: "2026-01-15"}, true, nil).Once()

	svc := NewSummaryService(records, nil, usecasemock.NewNotifier(t), nil, SummaryConfig{}, nil)
	result, err := svc.SendOpportunities(context.Background(), JobInput{League: "nba", Date: fixedClock()})
	if err != nil {
		t.Fatalf("send opportunities: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected skip, got %+v", result)
	}
}
