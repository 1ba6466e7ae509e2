package api

import (
	"errors"
	"net/http"

	"villastay/internal/database"
	"villastay/internal/pricing"
	"villastay/internal/service"
)

var (
	badRequestErrors = []error{
		service.ErrInvalidRequest,
		pricing.ErrInvalidDateRange,
		pricing.ErrInvalidAmount,
		pricing.ErrMissingPriceConfiguration,
		pricing.ErrInvalidPercent,
		pricing.ErrInvalidGuestCount,
	}
	notFoundErrors = []error{
		database.ErrNotFound,
		service.ErrRoomNotFound,
		service.ErrQuoteNotFound,
	}
	conflictErrors = []error{
		database.ErrNotAvailable,
		database.ErrConcurrentModification,
		database.ErrAlreadyCancelled,
		database.ErrInvalidTransition,
		service.ErrQuoteStale,
		pricing.ErrTotalsMismatch,
	}
)

// statusForError maps domain errors to a status code and a message that is
// safe to show to the caller.
func statusForError(err error) (int, string) {
	switch {
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest, err.Error()
	case isAny(err, notFoundErrors):
		return http.StatusNotFound, err.Error()
	case isAny(err, conflictErrors):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusForError(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, msg)
}
