package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// memoryStore mimics SETNX and DEL, remembering the TTL each key was set with.
type memoryStore struct {
	keys map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if _, ok := m.keys[key]; !ok {
		return "", errors.New("missing")
	}
	return "1", nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, taken := m.keys[key]; taken {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return m.err
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "cp:idempotency:" + scope + ":" + id
}

func TestEventIsProcessedOncePerConsumer(t *testing.T) {
	store := newMemoryStore()
	m, err := NewManager(store, 36*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, id := context.Background(), uuid.New()

	for i, want := range []bool{false, true, true} {
		seen, err := m.CheckAndMarkProcessed(ctx, "notifications", id)
		if err != nil || seen != want {
			t.Fatalf("delivery %d: seen=%v err=%v, want seen=%v", i+1, seen, err, want)
		}
	}
	if seen, _ := m.CheckAndMarkProcessed(ctx, "analytics", id); seen {
		t.Fatalf("a second consumer must get its own mark")
	}

	key := "cp:idempotency:evt:processed:notifications:" + id.String()
	if ttl, ok := store.keys[key]; !ok || ttl != 36*time.Hour {
		t.Fatalf("mark %q ttl=%v present=%v", key, ttl, ok)
	}
}

func TestDeleteAllowsRedelivery(t *testing.T) {
	m, _ := NewManager(newMemoryStore(), time.Hour)
	ctx, id := context.Background(), uuid.New()

	if _, err := m.CheckAndMarkProcessed(ctx, "notifications", id); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := m.Delete(ctx, "notifications", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if seen, _ := m.CheckAndMarkProcessed(ctx, "notifications", id); seen {
		t.Fatalf("event should run again after its mark was deleted")
	}
}

func TestStoreFailureIsNotReportedAsSeen(t *testing.T) {
	m, _ := NewManager(&memoryStore{keys: map[string]time.Duration{}, err: errors.New("redis down")}, time.Hour)

	seen, err := m.CheckAndMarkProcessed(context.Background(), "notifications", uuid.New())
	if err == nil || seen {
		t.Fatalf("seen=%v err=%v, want an error and seen=false", seen, err)
	}
}

func TestClaimKeyRejectsBlankParts(t *testing.T) {
	m, _ := NewManager(newMemoryStore(), time.Hour)
	ctx := context.Background()

	cases := []struct{ scope, id string }{{"webhook:razorpay", ""}, {"", "evt_1"}}
	for _, tc := range cases {
		if _, err := m.ClaimKey(ctx, tc.scope, tc.id); err == nil {
			t.Fatalf("ClaimKey(%q, %q) should fail", tc.scope, tc.id)
		}
	}
	if _, err := m.CheckAndMarkProcessed(ctx, "", uuid.New()); err == nil {
		t.Fatalf("blank consumer should fail")
	}
	if _, err := m.CheckAndMarkProcessed(ctx, "notifications", uuid.Nil); err == nil {
		t.Fatalf("nil event id should fail")
	}
}

func TestWebhookClaimRoundTrip(t *testing.T) {
	store := newMemoryStore()
	m, _ := NewManager(store, 72*time.Hour)
	ctx := context.Background()

	first, _ := m.ClaimKey(ctx, "webhook:razorpay", "evt_123")
	again, _ := m.ClaimKey(ctx, "webhook:razorpay", "evt_123")
	if !first || again {
		t.Fatalf("first=%v again=%v, want true then false", first, again)
	}
	if err := m.ReleaseKey(ctx, "webhook:razorpay", "evt_123"); err != nil {
		t.Fatalf("ReleaseKey: %v", err)
	}
	if len(store.keys) != 0 {
		t.Fatalf("keys left after release: %v", store.keys)
	}
}

func TestNewManagerValidates(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatalf("nil store should fail")
	}
	if _, err := NewManager(newMemoryStore(), -time.Second); err == nil {
		t.Fatalf("negative ttl should fail")
	}
}
