// Package idempotency claims keys in redis so each event or webhook is
// handled once per TTL. A claim is a SETNX; releasing it lets the next
// delivery try again.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/redis"
)

var errBlankClaim = errors.New("idempotency: scope and id are required")

type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager keeps claims for ttl. Zero means claims never expire.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency: store is required")
	case ttl < 0:
		return nil, errors.New("idempotency: ttl must not be negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// ClaimKey reports whether this call took the claim on scope/id.
func (m *Manager) ClaimKey(ctx context.Context, scope, id string) (bool, error) {
	if scope == "" || id == "" {
		return false, errBlankClaim
	}
	return m.store.SetNX(ctx, m.store.IdempotencyKey(scope, id), "1", m.ttl)
}

func (m *Manager) ReleaseKey(ctx context.Context, scope, id string) error {
	if scope == "" || id == "" {
		return errBlankClaim
	}
	return m.store.Del(ctx, m.store.IdempotencyKey(scope, id))
}

// CheckAndMarkProcessed claims eventID for consumer and reports whether an
// earlier delivery already held the claim.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("idempotency: event id is required")
	}
	claimed, err := m.ClaimKey(ctx, eventScope(consumer), eventID.String())
	return !claimed && err == nil, err
}

// Delete drops the processed mark so a redelivery runs the handler again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return m.ReleaseKey(ctx, eventScope(consumer), eventID.String())
}

func eventScope(consumer string) string {
	if consumer == "" {
		return ""
	}
	return "evt:processed:" + consumer
}
