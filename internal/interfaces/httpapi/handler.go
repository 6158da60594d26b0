package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

type RecordReader interface {
	Get(ctx context.Context, league, date string) (dailyrecord.Record, error)
}

// JobRunner runs a registered job on demand.
type JobRunner interface {
	Definition(name string) (usecase.JobDefinition, bool)
	Run(ctx context.Context, name string, req usecase.RunRequest) ([]usecase.RunOutcome, error)
}

const defaultJobTimeout = 30 * time.Minute

type Handler struct {
	records    RecordReader
	jobs       JobRunner
	logger     *logging.Logger
	validator  *validator.Validate
	jobTimeout time.Duration
}

type HandlerOption func(*Handler)

// WithJobTimeout bounds jobs started over the API. They are detached from
// the request, so this is the only limit on how long they run.
func WithJobTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.jobTimeout = d
		}
	}
}

func NewHandler(records RecordReader, jobs JobRunner, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	h := &Handler{
		records:    records,
		jobs:       jobs,
		logger:     logger,
		validator:  validator.New(),
		jobTimeout: defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type getRecordRequest struct {
	League string `validate:"required,alphanum,max=16"`
	Date   string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) GetDailyRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDailyRecord")
	defer span.End()

	req := getRecordRequest{
		League: strings.ToLower(strings.TrimSpace(r.PathValue("league"))),
		Date:   strings.TrimSpace(r.PathValue("date")),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.records.Get(ctx, req.League, req.Date)
	if err != nil {
		if !crerr.Is(err, usecase.ErrNotFound) {
			h.logger.ErrorContext(ctx, "get daily record failed", "league", req.League, "date", req.Date, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recordToDTO(record))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return crerr.Mark(crerr.Wrap(err, "validate request"), usecase.ErrInvalidInput)
	}
	return nil
}
