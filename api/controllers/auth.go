package controllers

import (
	"net/http"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/internal/auth"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// AuthLogin is shared by students, owners and admins. The access token is
// returned in the token header as well as the body.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.LoginRequest) error {
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			return err
		}
		w.Header().Set(middleware.TokenHeader, result.AccessToken)
		responses.WriteSuccess(w, "Login successful", result)
		return nil
	})
}

// AuthRegister creates an unverified student and mails the first code.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.RegisterRequest) error {
		user, err := reg.Register(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated,
			"Registration successful, check your email for the verification code",
			map[string]any{"user": user})
		return nil
	})
}

func AuthVerifyEmail(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.VerifyEmailRequest) error {
		if err := reg.VerifyEmail(r.Context(), body); err != nil {
			return err
		}
		responses.WriteSuccess(w, "Email verified", nil)
		return nil
	})
}

func AuthResendOTP(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.ResendOTPRequest) error {
		if err := reg.ResendOTP(r.Context(), body); err != nil {
			return err
		}
		responses.WriteSuccess(w, "Verification code sent", nil)
		return nil
	})
}
