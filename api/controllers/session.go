package controllers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	pkgAuth "github.com/campusprint/campusprint-backend/pkg/auth"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

type sessionStore interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// presentedSession reads the bearer token on a logout or refresh call. An
// expired access token is accepted here since it only names the session.
func presentedSession(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return nil, errors.New(errors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New(errors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// AuthLogout drops the refresh token bound to the presented session, so the
// access token stops working at the next session check.
func AuthLogout(sessions sessionStore, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := presentedSession(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sessions.Revoke(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "session store unavailable"))
			return
		}
		responses.WriteSuccess(w, "Logged out", nil)
	}
}

// AuthRefresh trades a refresh token for a new pair. The old refresh token is
// single use; the new access token keeps the identity of the old one.
func AuthRefresh(sessions sessionStore, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		claims, err := presentedSession(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID, refreshToken, err := sessions.Rotate(r.Context(), claims.ID, body.RefreshToken)
		switch {
		case stderrors.Is(err, session.ErrInvalidRefreshToken):
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeUnauthorized, "invalid refresh token"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeDependency, err, "session store unavailable"))
			return
		}

		accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID:       claims.UserID,
			Email:        claims.Email,
			Role:         claims.Role,
			CollegeID:    claims.CollegeID,
			StationaryID: claims.StationaryID,
			JTI:          accessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeInternal, err, "mint access token"))
			return
		}

		w.Header().Set(middleware.TokenHeader, accessToken)
		responses.WriteSuccess(w, "Token refreshed", refreshResponse{AccessToken: accessToken, RefreshToken: refreshToken})
	}
}
