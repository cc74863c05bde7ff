package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/helpers"
)

// writeError maps an apperr.Error (or any other error, treated as Internal)
// to an HTTP response per spec.md §7. Messages are never leaked beyond
// what apperr already decided was safe; full detail for Database/Redis/
// Internal kinds is logged here, server-side only.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			appErr = ae
		} else {
			appErr = apperr.InternalErr(err)
		}
	}

	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		slog.Error("request_failed", "error", err)
	}

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	if appErr.Kind == apperr.ValidationError {
		helpers.RespondJSON(w, status, map[string]any{
			"error":  appErr.Message,
			"fields": appErr.Fields,
		})
		return
	}

	helpers.RespondError(w, status, appErr.Message)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.BadRequest, apperr.ValidationError:
		return http.StatusBadRequest
	case apperr.Unauthorized, apperr.InvalidToken, apperr.ExpiredToken:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.TooManyRequests:
		return http.StatusTooManyRequests
	default: // Internal, Database, Redis
		return http.StatusInternalServerError
	}
}
