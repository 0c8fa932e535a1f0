// Package session keeps refresh sessions in redis, one per access token jti.
// Only the SHA-256 of a refresh token is stored, and spending a token deletes
// its session atomically, so a token can be redeemed once.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/config"
	redisclient "github.com/campusprint/campusprint-backend/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errNoAccessID = errors.New("session: access id is required")

type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject access
// tokens whose session was revoked.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store keyValue
	ttl   time.Duration
}

// NewManager requires a refresh TTL longer than the access token lifetime,
// otherwise a client could never refresh.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	refresh, access := cfg.RefreshTokenTTL(), time.Duration(cfg.ExpirationMinutes)*time.Minute
	if refresh <= access {
		return nil, fmt.Errorf("session: refresh ttl %s must be longer than access ttl %s", refresh, access)
	}
	return &Manager{store: client, ttl: refresh}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	key, err := m.key(accessID)
	if err != nil {
		return "", err
	}
	return m.open(ctx, key)
}

// Rotate spends the refresh token of oldAccessID and opens a session under a
// new jti. Of two concurrent calls with the same token only one succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (string, string, error) {
	key, err := m.key(oldAccessID)
	if err != nil || strings.TrimSpace(refreshToken) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	spent, err := m.store.DelIfEquals(ctx, key, digest(refreshToken))
	if err != nil {
		return "", "", fmt.Errorf("spend refresh token: %w", err)
	}
	if !spent {
		return "", "", ErrInvalidRefreshToken
	}

	jti := NewAccessID()
	token, err := m.open(ctx, m.store.AccessSessionKey(jti))
	if err != nil {
		return "", "", err
	}
	return jti, token, nil
}

// Revoke ends the session of accessID. Revoking twice is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Get(ctx, key); err != nil {
		if errors.Is(err, redisclient.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) key(accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}

func (m *Manager) open(ctx context.Context, key string) (string, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(secret[:])
	if err := m.store.Set(ctx, key, digest(token), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
