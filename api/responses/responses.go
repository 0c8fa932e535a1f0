package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/types"
)

// WriteSuccess writes a 200 envelope.
func WriteSuccess(w http.ResponseWriter, message string, data any) {
	WriteSuccessStatus(w, http.StatusOK, message, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Message: message, Data: data})
}

// WriteError answers with the status and public message registered for the
// error's code. Anything that is not a *pkgerrors.Error is treated as
// internal. The full chain only reaches the log.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("handler failed without an error")
	}
	status, body := errorEnvelope(err)

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.LogFields(err))
		switch {
		case status >= http.StatusInternalServerError:
			logg.Error(ctx, "request.error", err)
		default:
			logg.Warn(ctx, "request.rejected")
		}
	}
	writeJSON(w, status, body)
}

func errorEnvelope(err error) (int, types.ErrorEnvelope) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	public := meta.PublicMessage
	if meta.ShowMessage && typed.Message() != "" {
		public = typed.Message()
	}
	apiErr := types.APIError{Code: string(typed.Code()), Message: public, Retryable: meta.Retryable}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}
	return meta.HTTPStatus, types.ErrorEnvelope{Message: public, Error: apiErr}
}

// Handle adapts a handler that reports failure by returning an error. The
// error is written with WriteError; on success fn has written the response.
func Handle(logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			WriteError(r.Context(), logg, w, err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Error().Err(err).Int("status", status).Msg("encode response")
	}
}
