package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	"github.com/campusprint/campusprint-backend/internal/auth"
	"github.com/campusprint/campusprint-backend/internal/catalog"
	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const maxLocationFilterLen = 64

type shopStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// ListColleges is public so students can pick their college at sign-up.
func ListColleges(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		colleges, err := svc.ListColleges(r.Context(),
			validators.QueryText(r, "country", maxLocationFilterLen),
			validators.QueryText(r, "state", maxLocationFilterLen))
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", colleges)
		return nil
	})
}

// ListCollegeStationaries returns the open shops of one college. Students only
// see their own college.
func ListCollegeStationaries(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		collegeID, err := validators.ParseUUID(chi.URLParam(r, "collegeId"), "collegeId")
		if err != nil {
			return err
		}
		shops, err := svc.ListStationaries(r.Context(), middleware.CollegeUUID(r.Context()), collegeID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", shops)
		return nil
	})
}

func OwnerPrintingRates(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) error {
		rates, err := svc.GetRates(r.Context(), ownerID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", rates)
		return nil
	})
}

func OwnerUpdatePrintingRates(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, body catalog.UpdateRatesInput) error {
		rates, err := svc.UpdateRates(r.Context(), ownerID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Printing rates updated", rates)
		return nil
	})
}

// OwnerShopStatus opens or closes the owner's shop for new orders.
func OwnerShopStatus(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID, body shopStatusRequest) error {
		shop, err := svc.SetShopStatus(r.Context(), ownerID, *body.IsActive)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Shop status updated", shop)
		return nil
	})
}

// OwnerProfile returns the owner's account together with their shop.
func OwnerProfile(accounts users.Service, shops catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) error {
		profile, err := accounts.Profile(r.Context(), ownerID)
		if err != nil {
			return err
		}
		shop, err := shops.StationaryForOwner(r.Context(), ownerID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "", map[string]any{"user": profile, "stationary": shop})
		return nil
	})
}

func AdminRegisterCollege(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body catalog.RegisterCollegeInput) error {
		college, err := svc.RegisterCollege(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "College registered", college)
		return nil
	})
}

func AdminRegisterStationary(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body catalog.RegisterStationaryInput) error {
		shop, err := svc.RegisterStationary(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Stationary registered", shop)
		return nil
	})
}

// AdminRegisterOwner creates an owner account bound to an existing shop.
func AdminRegisterOwner(svc auth.OwnerRegisterService, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.RegisterOwnerRequest) error {
		owner, err := svc.RegisterOwner(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Stationary owner registered", owner)
		return nil
	})
}
