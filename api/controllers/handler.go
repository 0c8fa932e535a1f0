package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// withBody decodes and validates a T before calling fn.
func withBody[T any](logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, body T) error) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		return fn(w, r, body)
	})
}

// signedIn passes the caller's user id from the verified token.
func signedIn(logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		return fn(w, r, userID)
	})
}

// signedInWithBody resolves the caller before decoding, so an anonymous
// request gets 401 rather than a validation error.
func signedInWithBody[T any](logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body T) error) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		return fn(w, r, userID, body)
	})
}
