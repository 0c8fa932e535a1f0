package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campusprint/campusprint-backend/pkg/config"
	redisclient "github.com/campusprint/campusprint-backend/pkg/redis"
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: make(map[string]string)}
}

func (m *memorySessions) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memorySessions) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redisclient.ErrNotFound
	}
	return val, nil
}

func (m *memorySessions) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memorySessions) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memorySessions) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func TestGenerateStoresOnlyDigest(t *testing.T) {
	store := newMemorySessions()
	manager := &Manager{store: store, ttl: time.Hour}

	token, err := manager.Generate(context.Background(), "student-login")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data[store.AccessSessionKey("student-login")]
	if stored == "" || stored == token {
		t.Fatalf("expected a digest at rest, got %q", stored)
	}
	if stored != digest(token) {
		t.Fatalf("stored value is not the token digest")
	}
}

func TestRotateSpendsRefreshTokenOnce(t *testing.T) {
	store := newMemorySessions()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := manager.Rotate(ctx, "access-123", "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey("access-123")]; exists {
		t.Fatalf("old session left behind")
	}
	if store.data[store.AccessSessionKey(newAccessID)] != digest(newToken) {
		t.Fatalf("new session not stored")
	}

	if _, _, err := manager.Rotate(ctx, "access-123", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("a spent refresh token must be rejected, got %v", err)
	}
}

func TestConcurrentRotateHasOneWinner(t *testing.T) {
	store := newMemorySessions()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()
	token, err := manager.Generate(ctx, "owner-tab")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := manager.Rotate(ctx, "owner-tab", token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", wins)
	}
}

func TestHasSessionAndRevoke(t *testing.T) {
	store := newMemorySessions()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "owner-session"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := manager.HasSession(ctx, "owner-session")
	if err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, "owner-session"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, "owner-session")
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, _, err := manager.Rotate(ctx, "owner-session", "anything"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected rotate on revoked session to fail, got %v", err)
	}
}

func TestNewManagerValidatesTTL(t *testing.T) {
	client := &redisclient.Client{}
	if _, err := NewManager(nil, config.JWTConfig{}); err == nil {
		t.Fatalf("expected error without redis")
	}
	if _, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatalf("refresh ttl shorter than access ttl must be rejected")
	}
	m, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	if err != nil || m.ttl != time.Hour {
		t.Fatalf("expected a one hour refresh ttl, got %v err=%v", m, err)
	}
}

type unreachableStore struct{ *memorySessions }

func (unreachableStore) DelIfEquals(context.Context, string, string) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}

func TestRotateStoreFailureIsNotInvalidToken(t *testing.T) {
	manager := &Manager{store: unreachableStore{newMemorySessions()}, ttl: time.Hour}
	_, _, err := manager.Rotate(context.Background(), "access-1", "token")
	if err == nil || errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("an outage must surface as a store error, got %v", err)
	}
}

func TestBlankAccessIDIsRejected(t *testing.T) {
	manager := &Manager{store: newMemorySessions(), ttl: time.Hour}
	ctx := context.Background()
	if _, err := manager.Generate(ctx, "  "); err == nil {
		t.Fatalf("expected generate error")
	}
	if err := manager.Revoke(ctx, ""); err == nil {
		t.Fatalf("expected revoke error")
	}
	if _, _, err := manager.Rotate(ctx, "", "token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}

