package middleware

import (
	"net/http"
	"strings"

	"github.com/campusprint/campusprint-backend/api/responses"
	pkgAuth "github.com/campusprint/campusprint-backend/pkg/auth"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/config"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// streamTokenParam carries the access token for EventSource clients, which
// cannot set an Authorization header.
const streamTokenParam = "access_token"

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" && acceptsEventStream(r) {
				token = strings.TrimSpace(r.URL.Query().Get(streamTokenParam))
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if pkgAuth.IsExpired(err) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if claims.StationaryID != nil {
				ctx = WithStationaryID(ctx, claims.StationaryID.String())
			}
			if claims.CollegeID != nil {
				ctx = WithCollegeID(ctx, claims.CollegeID.String())
			}

			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, claims.UserID.String()), string(claims.Role))
				if claims.StationaryID != nil {
					ctx = logg.WithStationaryID(ctx, claims.StationaryID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header, with or
// without the Bearer scheme.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}

func acceptsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
