package usecase

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/deferred"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

const defaultSweepLimit = 200

type SweepResult struct {
	Due     int `json:"due"`
	Deleted int `json:"deleted"`
	Gone    int `json:"gone"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

// DeferredService records notification deletions and executes them once due.
// Every due row is attempted exactly once and then removed, whatever the outcome.
type DeferredService struct {
	repo     deferred.Repository
	notifier Notifier
	limit    int
	logger   *logging.Logger
	now      func() time.Time
}

func NewDeferredService(repo deferred.Repository, notifier Notifier, logger *logging.Logger) *DeferredService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DeferredService{
		repo:     repo,
		notifier: notifier,
		limit:    defaultSweepLimit,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *DeferredService) Schedule(ctx context.Context, chatID, messageID string, dueIn time.Duration) (deferred.Deletion, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeferredService.Schedule")
	defer span.End()

	chatID = strings.TrimSpace(chatID)
	messageID = strings.TrimSpace(messageID)
	if chatID == "" || messageID == "" {
		return deferred.Deletion{}, crerr.Wrap(ErrInvalidInput, "chat id and message id are required")
	}
	if dueIn < 0 {
		dueIn = 0
	}

	now := s.now().UTC()
	item, err := s.repo.Insert(ctx, deferred.Deletion{
		ChatID:    chatID,
		MessageID: messageID,
		DeleteAt:  now.Add(dueIn),
		CreatedAt: now,
	})
	if err != nil {
		return deferred.Deletion{}, crerr.Mark(crerr.Wrapf(err, "schedule deletion message_id=%s", messageID), ErrStoreUnavailable)
	}

	s.logger.InfoContext(ctx, "deletion scheduled", "chat_id", chatID, "message_id", messageID, "delete_at", item.DeleteAt)
	return item, nil
}

func (s *DeferredService) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeferredService.Sweep")
	defer span.End()

	due, err := s.repo.ListDue(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return SweepResult{}, crerr.Mark(crerr.Wrap(err, "list due deletions"), ErrStoreUnavailable)
	}

	result := SweepResult{Due: len(due)}
	for _, item := range due {
		err := s.notifier.Delete(ctx, item.ChatID, item.MessageID)
		switch {
		case err == nil:
			result.Deleted++
		case crerr.Is(err, ErrMessageNotFound):
			result.Gone++
			s.logger.InfoContext(ctx, "message already gone", "chat_id", item.ChatID, "message_id", item.MessageID)
		default:
			result.Failed++
			s.logger.WarnContext(ctx, "delete message failed, dropping deletion", "chat_id", item.ChatID, "message_id", item.MessageID, "error", err)
		}

		if err := s.repo.Delete(ctx, item.ID); err != nil {
			s.logger.ErrorContext(ctx, "remove deletion row failed", "id", item.ID, "error", err)
			continue
		}
		result.Removed++
	}

	if result.Due > 0 {
		s.logger.InfoContext(ctx, "deferred sweep finished",
			"due", result.Due,
			"deleted", result.Deleted,
			"gone", result.Gone,
			"failed", result.Failed,
		)
	}
	return result, nil
}
