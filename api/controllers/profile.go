package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// ProfileGet returns the signed-in user's account.
func ProfileGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		profile, err := svc.Profile(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", profile)
		return nil
	})
}

func ProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body users.UpdateProfileInput) error {
		profile, err := svc.UpdateProfile(r.Context(), userID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Profile updated", profile)
		return nil
	})
}

// ProfileChangePassword requires the current password; the service checks it.
func ProfileChangePassword(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body users.ChangePasswordInput) error {
		if err := svc.ChangePassword(r.Context(), userID, body); err != nil {
			return err
		}
		responses.WriteSuccess(w, "Password changed", nil)
		return nil
	})
}
