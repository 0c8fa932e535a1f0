package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campusprint/campusprint-backend/api/responses"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// Dimension is what a throttle counter is keyed on.
type Dimension string

const (
	ByIP    Dimension = "ip"
	ByEmail Dimension = "email"
	ByUser  Dimension = "user"
)

// maxThrottleBody caps how much of a request body is buffered to find the email.
const maxThrottleBody = 64 << 10

type throttleStore interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
	RateLimitKey(policy, dimension, value string) string
}

// Limit allows Max requests per window for one dimension. Max <= 0 disables it.
type Limit struct {
	By  Dimension
	Max int
}

// ThrottlePolicy is a named fixed window shared by its limits.
type ThrottlePolicy struct {
	Name   string
	Window time.Duration
	Limits []Limit
}

func (p ThrottlePolicy) active() []Limit {
	if p.Window <= 0 {
		return nil
	}
	out := make([]Limit, 0, len(p.Limits))
	for _, l := range p.Limits {
		if l.Max > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Throttle rejects requests with 429 once any limit of policy is spent. Login
// and registration are limited by IP and email, checkout by the signed-in
// user. A counter store failure rejects the request.
func Throttle(policy ThrottlePolicy, store throttleStore, logg *logger.Logger) func(http.Handler) http.Handler {
	limits := policy.active()
	return func(next http.Handler) http.Handler {
		if len(limits) == 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, l := range limits {
				value, err := dimensionValue(r, l.By)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if value == "" {
					continue
				}
				key := store.RateLimitKey(policy.Name, string(l.By), value)
				count, err := store.IncrWithTTL(ctx, key, policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(l.Max) {
					rejectThrottled(ctx, logg, w, policy, l, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// dimensionValue never returns raw emails; they are hashed before they reach
// redis or the logs.
func dimensionValue(r *http.Request, by Dimension) (string, error) {
	switch by {
	case ByIP:
		return clientIP(r), nil
	case ByUser:
		return UserIDFromContext(r.Context()), nil
	case ByEmail:
		email, err := peekEmail(r)
		if err != nil || email == "" {
			return "", err
		}
		sum := sha256.Sum256([]byte(email))
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", nil
	}
}

// peekEmail reads the JSON email field and puts the body back for the handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody+1))
	if err != nil {
		return "", err
	}
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), rest), rest}
	if len(body) > maxThrottleBody {
		return "", nil
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

func rejectThrottled(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy ThrottlePolicy, l Limit, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": string(l.By),
			"attempts":  count,
			"limit":     l.Max,
		}), "request throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
}

// clientIP trusts the first X-Forwarded-For hop, which the load balancer sets.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
