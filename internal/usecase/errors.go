package usecase

import (
	"errors"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrNoRecord means there is no daily record to reconcile into.
	ErrNoRecord = errors.New("daily record does not exist")
	// ErrSourceUnavailable means a job could not obtain any data from its source.
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrStoreUnavailable  = errors.New("record store unavailable")
	ErrMessageNotFound   = errors.New("notification message not found")
)

// IsFatal reports whether a job error should fail a run-to-completion process.
// Per-team gaps and a missing record are not fatal.
func IsFatal(err error) bool {
	return crerr.Is(err, ErrStoreUnavailable) || crerr.Is(err, ErrSourceUnavailable)
}
