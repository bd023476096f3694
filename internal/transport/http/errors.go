package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/pagination"
	"github.com/Rambha123/voxspace/pkg/logger"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRoom),
		errors.Is(err, domain.ErrSelfRoom),
		errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, pagination.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError hides internal causes from the client and logs them instead.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error(op, slog.Any("err", err))
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
