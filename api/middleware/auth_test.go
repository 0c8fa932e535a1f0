package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/auth"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "campusprint", ExpirationMinutes: 60}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

type seenIdentity struct {
	user, role, stationary, college string
}

func tokenFor(t *testing.T, issuedAt time.Time, payload auth.AccessTokenPayload) string {
	t.Helper()
	if payload.UserID == uuid.Nil {
		payload.UserID = uuid.New()
	}
	payload.JTI = session.NewAccessID()
	token, err := auth.MintAccessToken(testJWT, issuedAt, payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

// authenticated runs req through Auth and reports what the handler saw.
func authenticated(verifier session.AccessSessionChecker, logg *logger.Logger, req *http.Request) (*httptest.ResponseRecorder, *seenIdentity) {
	var seen *seenIdentity
	handler := Auth(testJWT, verifier, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		seen = &seenIdentity{
			user:       UserIDFromContext(ctx),
			role:       RoleFromContext(ctx),
			stationary: StationaryIDFromContext(ctx),
			college:    CollegeIDFromContext(ctx),
		}
		if logg != nil {
			logg.Info(ctx, "handled")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthRejects(t *testing.T) {
	student := tokenFor(t, time.Now(), auth.AccessTokenPayload{Role: enums.UserRoleStudent})
	expired := tokenFor(t, time.Now().Add(-2*time.Hour), auth.AccessTokenPayload{Role: enums.UserRoleStudent})

	cases := []struct {
		name     string
		req      *http.Request
		verifier stubSessionVerifier
		status   int
		message  string
	}{
		{name: "no credentials", req: httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), verifier: stubSessionVerifier{ok: true}, status: http.StatusUnauthorized, message: "missing credentials"},
		{name: "garbage token", req: bearer("not-a-jwt"), verifier: stubSessionVerifier{ok: true}, status: http.StatusUnauthorized, message: "invalid token"},
		{name: "expired token", req: bearer(expired), verifier: stubSessionVerifier{ok: true}, status: http.StatusUnauthorized, message: "token expired"},
		{name: "logged out session", req: bearer(student), verifier: stubSessionVerifier{ok: false}, status: http.StatusUnauthorized, message: "session unavailable"},
		{name: "session store down", req: bearer(student), verifier: stubSessionVerifier{err: errors.New("redis: connection refused")}, status: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, seen := authenticated(tc.verifier, nil, tc.req)
			if seen != nil {
				t.Fatalf("handler should not run")
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.message == "" {
				return
			}
			var body struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, body.Message)
			}
		})
	}
}

func TestAuthSeedsOwnerIdentity(t *testing.T) {
	owner, shop, college := uuid.New(), uuid.New(), uuid.New()
	token := tokenFor(t, time.Now(), auth.AccessTokenPayload{
		UserID:       owner,
		Role:         enums.UserRoleOwner,
		StationaryID: &shop,
		CollegeID:    &college,
	})

	var buf bytes.Buffer
	rec, seen := authenticated(stubSessionVerifier{ok: true}, captureLogger(&buf), bearer(token))
	if rec.Code != http.StatusNoContent || seen == nil {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
	want := seenIdentity{user: owner.String(), role: string(enums.UserRoleOwner), stationary: shop.String(), college: college.String()}
	if *seen != want {
		t.Fatalf("expected %+v, got %+v", want, *seen)
	}

	entry := lastLogLine(t, &buf)
	if entry[logger.FieldUserID] != owner.String() || entry[logger.FieldStationaryID] != shop.String() || entry[logger.FieldActorRole] != "owner" {
		t.Fatalf("log line missing identity: %v", entry)
	}
}

func TestAuthStudentHasNoStationary(t *testing.T) {
	token := tokenFor(t, time.Now(), auth.AccessTokenPayload{Role: enums.UserRoleStudent})
	_, seen := authenticated(stubSessionVerifier{ok: true}, nil, bearer(token))
	if seen == nil || seen.stationary != "" || seen.role != string(enums.UserRoleStudent) {
		t.Fatalf("unexpected identity %+v", seen)
	}
}

func TestAuthAcceptsQueryTokenOnlyForEventStream(t *testing.T) {
	shop := uuid.New()
	token := tokenFor(t, time.Now(), auth.AccessTokenPayload{Role: enums.UserRoleOwner, StationaryID: &shop})

	stream := httptest.NewRequest(http.MethodGet, "/api/v1/owner/realtime?access_token="+token, nil)
	stream.Header.Set("Accept", "text/event-stream")
	if rec, _ := authenticated(stubSessionVerifier{ok: true}, nil, stream); rec.Code != http.StatusNoContent {
		t.Fatalf("expected stream to authenticate, got %d", rec.Code)
	}

	plain := httptest.NewRequest(http.MethodGet, "/api/v1/owner/orders?access_token="+token, nil)
	if rec, _ := authenticated(stubSessionVerifier{ok: true}, nil, plain); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token outside a stream, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.UserRoleOwner, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for role, want := range map[enums.UserRole]int{
		enums.UserRoleStudent: http.StatusForbidden,
		enums.UserRoleAdmin:   http.StatusForbidden,
		enums.UserRoleOwner:   http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), string(role)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("role %s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestStationaryContextRequiresShop(t *testing.T) {
	handler := StationaryContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
