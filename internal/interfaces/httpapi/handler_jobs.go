package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

type runJobRequest struct {
	Job    string `json:"-" validate:"required"`
	League string `json:"league" validate:"omitempty,alphanum,max=16"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type runJobResponse struct {
	Job  string               `json:"job"`
	Runs []usecase.RunOutcome `json:"runs"`
}

// RunJob triggers a registered job by name. The body is optional; league and
// date default to every configured league and the job's own target date.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunJob")
	defer span.End()

	if h.jobs == nil {
		writeError(ctx, w, crerr.Wrap(usecase.ErrDependencyUnavailable, "job runner is not configured"))
		return
	}

	req, err := decodeRunJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req.Job = strings.TrimSpace(r.PathValue("job"))
	req.League = strings.ToLower(strings.TrimSpace(req.League))
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if _, ok := h.jobs.Definition(req.Job); !ok {
		writeError(ctx, w, crerr.Wrapf(usecase.ErrNotFound, "job %q", req.Job))
		return
	}

	runReq := usecase.RunRequest{League: req.League, Trigger: usecase.TriggerAPI}
	if req.Date != "" {
		date, err := time.Parse(dailyrecord.DateLayout, req.Date)
		if err != nil {
			writeError(ctx, w, crerr.Wrapf(usecase.ErrInvalidInput, "date %q", req.Date))
			return
		}
		runReq.Date = date
	}

	// A client disconnect or write timeout must not abort a scrape halfway.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.jobTimeout)
	defer cancel()

	// Per-league failures are reported inline; only a run that never started
	// is an error response.
	outcomes, err := h.jobs.Run(runCtx, req.Job, runReq)
	if err != nil {
		h.logger.WarnContext(ctx, "run job failed", "job", req.Job, "league", req.League, "date", req.Date, "runs", len(outcomes), "error", err)
		if len(outcomes) == 0 {
			writeError(ctx, w, err)
			return
		}
	}

	writeSuccess(ctx, w, http.StatusOK, runJobResponse{Job: req.Job, Runs: outcomes})
}

func decodeRunJobRequest(r *http.Request) (runJobRequest, error) {
	var req runJobRequest
	if r.Body == nil {
		return req, nil
	}

	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return runJobRequest{}, nil
		}
		return runJobRequest{}, crerr.Wrapf(usecase.ErrInvalidInput, "invalid JSON payload: %v", err)
	}
	return req, nil
}
