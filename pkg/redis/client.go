package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = redis.Nil

var errNotConnected = errors.New("redis: client is not connected")

// Server side scripts. Each runs atomically, so a crash between steps cannot
// leave a counter without a TTL or release a lock someone else took.
const (
	// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
	compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`
	// countInWindow increments KEYS[1] and starts an ARGV[1] ms window on the first hit.
	countInWindow = `local n = redis.call("INCR", KEYS[1]) if n == 1 and tonumber(ARGV[1]) > 0 then redis.call("PEXPIRE", KEYS[1], ARGV[1]) end return n`
)

type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Client holds the shared connection used for sessions, OTP codes, request
// idempotency, throttling, cron locks and the owner realtime channel.
type Client struct {
	store commands
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what event deduplication needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Publisher broadcasts realtime messages to subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "redis_db": opts.DB}), "redis ready")
	}
	return &Client{store: raw, raw: raw}, nil
}

// optionsFromConfig prefers the URL. Config values only fill what the URL
// leaves at zero.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
	}
	if opts.Addr == "" {
		return nil, errors.New("redis url or address is required")
	}

	unlessSet(&opts.DB, cfg.DB)
	unlessSet(&opts.PoolSize, cfg.PoolSize)
	unlessSet(&opts.MinIdleConns, cfg.MinIdleConns)
	unlessSet(&opts.DialTimeout, cfg.DialTimeout)
	unlessSet(&opts.ReadTimeout, cfg.ReadTimeout)
	unlessSet(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func unlessSet[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func (c *Client) conn() (commands, error) {
	if c == nil || c.store == nil {
		return nil, errNotConnected
	}
	return c.store, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	s, err := c.conn()
	if err != nil {
		return "", err
	}
	return s.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s, err := c.conn()
	if err != nil {
		return err
	}
	return s.Set(ctx, key, value, ttl).Err()
}

// SetNX writes value only when key is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s, err := c.conn()
	if err != nil {
		return false, err
	}
	return s.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	s, err := c.conn()
	if err != nil {
		return err
	}
	return s.Del(ctx, keys...).Err()
}

// DelIfEquals deletes key only while it still holds value. Lock holders
// release with it and refresh tokens are spent with it.
func (c *Client) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	s, err := c.conn()
	if err != nil {
		return false, err
	}
	n, err := s.Eval(ctx, compareAndDelete, []string{key}, value).Int64()
	return n == 1, err
}

// IncrWithTTL counts hits in a fixed window that opens on the first hit.
func (c *Client) IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	s, err := c.conn()
	if err != nil {
		return 0, err
	}
	return s.Eval(ctx, countInWindow, []string{key}, window.Milliseconds()).Int64()
}

func (c *Client) Publish(ctx context.Context, channel string, message []byte) error {
	s, err := c.conn()
	if err != nil {
		return err
	}
	return s.Publish(ctx, channel, message).Err()
}

// Subscribe waits for the subscription to be confirmed. Callers must Close
// the result.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	if c == nil || c.raw == nil {
		return nil, errNotConnected
	}
	sub := c.raw.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", strings.Join(channels, ","), err)
	}
	return sub, nil
}

func (c *Client) Ping(ctx context.Context) error {
	s, err := c.conn()
	if err != nil {
		return err
	}
	return s.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// Key layout: cp:<area>:<parts...>. Blank parts are dropped.

func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(policy, dimension, value string) string {
	return key("rate_limit", policy, dimension, value)
}

// AccessSessionKey holds the refresh session bound to an access token jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}

func (c *Client) EmailOTPKey(email string) string {
	return key("otp", "email", strings.ToLower(email))
}

// EmailOTPAttemptsKey counts wrong codes entered for an email.
func (c *Client) EmailOTPAttemptsKey(email string) string {
	return key("otp", "email", strings.ToLower(email), "attempts")
}

func (c *Client) CronLockKey(env, job string) string {
	return key("cron", env, job, "lock")
}

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString("cp")
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
