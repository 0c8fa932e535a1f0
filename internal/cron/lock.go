package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	CronLockKey(env, job string) string
}

// RedisLocker keeps one lock key per job and environment. Each acquisition
// writes a fresh token, so a replica whose lock already expired cannot free
// the lock a newer holder took.
type RedisLocker struct {
	store lockStore
	env   string
}

func NewRedisLocker(store lockStore, env string) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for cron lock")
	}
	if env == "" {
		env = "local"
	}
	return &RedisLocker{store: store, env: env}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, job string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lock ttl must be positive")
	}
	key := l.store.CronLockKey(l.env, job)
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if _, err := l.store.DelIfEquals(ctx, key, token); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}
