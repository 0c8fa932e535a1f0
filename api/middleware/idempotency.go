package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campusprint/campusprint-backend/api/responses"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	pkgredis "github.com/campusprint/campusprint-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128

	standardReplayTTL = 24 * time.Hour
	checkoutReplayTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request blocks its key.
	inFlightTTL = 2 * time.Minute
)

type idempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// guardedRoute is a write endpoint whose responses are replayed for a
// repeated Idempotency-Key.
type guardedRoute struct {
	method string
	path   string
	prefix bool
	replay time.Duration
}

var guardedRoutes = []guardedRoute{
	{method: http.MethodPost, path: "/api/v1/checkout", replay: checkoutReplayTTL},
	{method: http.MethodPost, path: "/api/v1/auth/register", replay: standardReplayTTL},
	{method: http.MethodPatch, path: "/api/v1/owner/orders/status", replay: standardReplayTTL},
	{method: http.MethodPost, path: "/api/v1/admin/", prefix: true, replay: standardReplayTTL},
}

func (g guardedRoute) matches(method, path string) bool {
	if g.method != method {
		return false
	}
	if g.prefix {
		return strings.HasPrefix(path, g.path)
	}
	return path == g.path
}

// replayFor reports how long responses for method and path are kept.
func replayFor(method, path string) (time.Duration, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, g := range guardedRoutes {
		if g.matches(method, path) {
			return g.replay, true
		}
	}
	return 0, false
}

// storedResponse is the redis value under an idempotency key. Done is false
// while the first request is still being served.
type storedResponse struct {
	Done        bool   `json:"done"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency makes guarded writes safe to retry. The first request claims
// the key before running, so a concurrent duplicate is rejected instead of
// opening a second gateway order. 5xx responses release the key.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			replayTTL, guarded := replayFor(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKey:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := base64.StdEncoding.EncodeToString(sum[:])
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			claimed, err := claim(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayOrReject(ctx, store, key, hash, w, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			settle(context.WithoutCancel(ctx), store, key, hash, capture, replayTTL, logg)
		})
	}
}

func claim(ctx context.Context, store idempotencyStore, key, hash string) (bool, error) {
	pending, err := json.Marshal(storedResponse{RequestHash: hash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(pending), inFlightTTL)
}

func replayOrReject(ctx context.Context, store idempotencyStore, key, hash string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.ErrNotFound) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "previous attempt was released, retry the request"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case prior.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case !prior.Done:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		if body, err := base64.StdEncoding.DecodeString(prior.Body); err == nil {
			_, _ = w.Write(body)
		}
	}
}

// settle stores the finished response, or frees the key after a server error
// so the client can retry with the same key.
func settle(ctx context.Context, store idempotencyStore, key, hash string, capture *responseCapture, ttl time.Duration, logg *logger.Logger) {
	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		if err := store.Del(ctx, key); err != nil && logg != nil {
			logg.Error(ctx, "release idempotency key", err)
		}
		return
	}
	done, err := json.Marshal(storedResponse{
		Done:        true,
		RequestHash: hash,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
	})
	if err == nil {
		err = store.Set(ctx, key, string(done), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "store idempotent response", err)
	}
}

// idempotencyScope keeps keys from colliding across users and shops.
func idempotencyScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), StationaryIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
