package usecase

import (
	"context"
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	dailyrecordmock "github.com/riskibarqy/sports-trading/internal/mocks/domain/dailyrecord"
	"github.com/stretchr/testify/mock"
)

func TestRecordService_Get(t *testing.T) {
	t.Parallel()

	repo := dailyrecordmock.NewRepository(t)
	repo.On("Get", mock.Anything, "nba", "2026-01-15").Return(dailyrecord.Record{League: "nba", Date: "2026-01-15"}, true, nil).Once()
	repo.On("Get", mock.Anything, "nba", "2026-01-16").Return(dailyrecord.Record{}, false, nil).Once()
	repo.On("Get", mock.Anything, "nba", "2026-01-17").Return(dailyrecord.Record{}, false, errors.New("down")).Once()

	svc := NewRecordService(repo)
	ctx := context.Background()

	record, err := svc.Get(ctx, " NBA ", "2026-01-15")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Date != "2026-01-15" {
		t.Fatalf("unexpected record: %+v", record)
	}

	if _, err := svc.Get(ctx, "nba", "2026-01-16"); !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, "nba", "2026-01-17"); !crerr.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := svc.Get(ctx, "nba", "01/15/2026"); !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Get(ctx, "", "2026-01-15"); !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
