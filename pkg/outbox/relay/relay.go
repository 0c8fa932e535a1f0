// Package relay moves committed outbox rows onto Pub/Sub. Each batch is
// claimed inside one transaction, so a row is marked published, deferred or
// dead-lettered in the same commit that releases its lock.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/outbox/registry"
)

// Sink delivers a message and returns the server assigned id.
type Sink interface {
	Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error, nextAttempt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type router interface {
	Resolve(models.OutboxEvent) (*registry.Route, error)
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
	SendTimeout  time.Duration
	// RetryBase doubles per failed attempt up to RetryCap.
	RetryBase time.Duration
	RetryCap  time.Duration
	// IdleCap bounds the wait after a batch that could not be claimed.
	IdleCap time.Duration
}

func ConfigFrom(cfg config.OutboxConfig) Config {
	return Config{
		BatchSize:    cfg.BatchSize,
		PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		MaxAttempts:  cfg.MaxAttempts,
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.RetryCap <= 0 {
		c.RetryCap = 5 * time.Minute
	}
	if c.IdleCap <= 0 {
		c.IdleCap = 10 * time.Second
	}
	return c
}

type Params struct {
	Config      Config
	Logger      *logger.Logger
	DB          txRunner
	Sink        Sink
	Store       rowStore
	DeadLetters deadLetters
	Router      router
}

type Relay struct {
	cfg   Config
	logg  *logger.Logger
	db    txRunner
	sink  Sink
	store rowStore
	dlq   deadLetters
	route router
	now   func() time.Time
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("relay: logger is required")
	case p.DB == nil:
		return nil, errors.New("relay: database is required")
	case p.Sink == nil:
		return nil, errors.New("relay: sink is required")
	case p.Store == nil:
		return nil, errors.New("relay: outbox store is required")
	case p.DeadLetters == nil:
		return nil, errors.New("relay: dead letter store is required")
	case p.Router == nil:
		return nil, errors.New("relay: router is required")
	}
	return &Relay{
		cfg:   p.Config.withDefaults(),
		logg:  p.Logger,
		db:    p.DB,
		sink:  p.Sink,
		store: p.Store,
		dlq:   p.DeadLetters,
		route: p.Router,
		now:   time.Now,
	}, nil
}

// Run drains until ctx is done. A full batch is followed straight away by the
// next claim; a short batch waits one poll interval. Claim failures back off
// exponentially up to IdleCap.
func (r *Relay) Run(ctx context.Context) error {
	failures := r.failureBackoff()
	for {
		n, err := r.Drain(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.drain_failed", err)
			wait, _ = failures.Next()
		case n >= r.cfg.BatchSize:
			failures = r.failureBackoff()
			continue
		default:
			failures = r.failureBackoff()
			wait = r.cfg.PollInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *Relay) failureBackoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.PollInterval)
	b = retry.WithCappedDuration(r.cfg.IdleCap, b)
	return retry.WithJitter(r.cfg.PollInterval/2, b)
}

// Drain claims one batch and settles every row in it. The error is non-nil
// only when the claim or a row update fails, which rolls the batch back.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   row.EventType,
		"aggregate_id": row.AggregateID.String(),
		"attempt":      row.AttemptCount + 1,
	})

	route, err := r.route.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}

	msgID, err := r.send(ctx, row, route)
	if err == nil {
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.logg.Info(r.logg.WithField(ctx, "message_id", msgID), "outbox.published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(err, &permanent) {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	attempt := row.AttemptCount + 1
	if attempt >= r.cfg.MaxAttempts {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, err))
	}

	next := r.now().Add(r.retryDelay(attempt))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":           err.Error(),
		"next_attempt_at": next.UTC().Format(time.RFC3339),
	}), "outbox.publish_deferred")
	if err := r.store.MarkFailedTx(tx, row.ID, err, next); err != nil {
		return fmt.Errorf("defer %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent, route *registry.Route) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
	defer cancel()
	return r.sink.Send(ctx, route.Topic, &pubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       route.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
}

// deadLetter copies the row into outbox_dlq and parks the original at the
// attempt ceiling so it is never claimed again.
func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":        cause.Error(),
		"error_reason": reason,
	}), "outbox.dead_lettered")

	msg := cause.Error()
	if err := r.dlq.InsertTx(tx, models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.cfg.MaxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	return nil
}

// retryDelay is RetryBase for the first failure, doubling per attempt, capped
// at RetryCap.
func (r *Relay) retryDelay(attempt int) time.Duration {
	b := retry.WithCappedDuration(r.cfg.RetryCap, retry.NewExponential(r.cfg.RetryBase))
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
	}
	return d
}
