package usecase

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
)

type RecordService struct {
	records dailyrecord.Repository
}

func NewRecordService(records dailyrecord.Repository) *RecordService {
	return &RecordService{records: records}
}

func (s *RecordService) Get(ctx context.Context, league, date string) (dailyrecord.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecordService.Get")
	defer span.End()

	league = strings.ToLower(strings.TrimSpace(league))
	date = strings.TrimSpace(date)
	if league == "" {
		return dailyrecord.Record{}, crerr.Wrap(ErrInvalidInput, "league is required")
	}
	if _, err := time.Parse(dailyrecord.DateLayout, date); err != nil {
		return dailyrecord.Record{}, crerr.Wrapf(ErrInvalidInput, "date %q must be YYYY-MM-DD", date)
	}

	record, found, err := s.records.Get(ctx, league, date)
	if err != nil {
		return dailyrecord.Record{}, crerr.Mark(crerr.Wrapf(err, "get daily record league=%s date=%s", league, date), ErrStoreUnavailable)
	}
	if !found {
		return dailyrecord.Record{}, crerr.Wrapf(ErrNotFound, "daily record league=%s date=%s", league, date)
	}
	return record, nil
}
