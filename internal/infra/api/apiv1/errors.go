package apiv1

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	"codecraft-ai/internal/infra/web"
)

// writeError maps domain errors to a status and a {"detail": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	var fe *model.FieldError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		web.WriteDetail(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, domain.ErrForbidden):
		web.WriteDetail(w, http.StatusForbidden, "User ID mismatch")
	case errors.Is(err, domain.ErrNotFound):
		web.WriteDetail(w, http.StatusNotFound, "Log not found")
	case errors.Is(err, domain.ErrRateLimited):
		metrics.IncRateLimited("rate")
		web.WriteDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, domain.ErrGenerationInFlight):
		metrics.IncRateLimited("in_flight")
		web.WriteDetail(w, http.StatusConflict, "Generation already in progress")
	case errors.Is(err, domain.ErrEmptyPrompt):
		web.WriteDetail(w, http.StatusUnprocessableEntity, "Prompt must not be empty")
	case errors.As(err, &fe):
		web.WriteDetail(w, http.StatusUnprocessableEntity, fe.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		web.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.With(r.Context(), logger).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		web.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func unprocessable(w http.ResponseWriter, detail string) {
	web.WriteDetail(w, http.StatusUnprocessableEntity, detail)
}
