// Package consumer runs the receive loop shared by every worker that reads
// outbox events from a Pub/Sub subscription.
//
// A message is acked when it was handled, when it can never be handled
// (undecodable body, unknown event, ErrSkip) and when this consumer has
// already seen its event id. It is nacked only when the dedup store is
// unreachable or the handler fails, and in the second case the processed
// mark is released so the redelivery is not mistaken for a duplicate.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/outbox/registry"
)

// ErrSkip tells the loop the event is not for this consumer. Wrap it to add
// context; the message is acked either way.
var ErrSkip = errors.New("event not handled by this consumer")

// Event is a decoded outbox message.
type Event struct {
	ID         uuid.UUID
	Type       enums.OutboxEventType
	OccurredAt time.Time
	Payload    any
	Data       json.RawMessage
	MessageID  string
	Attributes map[string]string
}

type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Dedup remembers which event ids a named consumer has processed.
type Dedup interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Subscription is satisfied by *pubsub.Subscriber.
type Subscription interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type Params struct {
	Name         string
	Subscription Subscription
	Handler      Handler
	Dedup        Dedup
	// Decoders defaults to every registered outbox event at version 1.
	Decoders *registry.DecoderRegistry
	Logger   *logger.Logger
}

type Consumer struct {
	name     string
	sub      Subscription
	handler  Handler
	dedup    Dedup
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

func New(p Params) (*Consumer, error) {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return nil, errors.New("consumer name is required")
	case p.Subscription == nil:
		return nil, errors.New(name + ": subscription is required")
	case p.Handler == nil:
		return nil, errors.New(name + ": handler is required")
	case p.Dedup == nil:
		return nil, errors.New(name + ": dedup store is required")
	case p.Logger == nil:
		return nil, errors.New(name + ": logger is required")
	}
	if s, ok := p.Subscription.(*pubsub.Subscriber); ok && s == nil {
		return nil, errors.New(name + ": subscription is not configured")
	}
	decoders := p.Decoders
	if decoders == nil {
		decoders = registry.NewDefaultDecoders()
	}
	return &Consumer{
		name:     name,
		sub:      p.Subscription,
		handler:  p.Handler,
		dedup:    p.Dedup,
		decoders: decoders,
		logg:     p.Logger,
	}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one message and reports whether it should be acked.
func (c *Consumer) Process(ctx context.Context, msg *pubsub.Message) bool {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"consumer":   c.name,
		"message_id": msg.ID,
	})

	envelope, payload, err := c.decoders.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), c.name+".undecodable_message")
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "event_id", envelope.EventID), c.name+".invalid_event_id")
		return true
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID.String(),
		"event_type": envelope.EventType,
	})

	seen, err := c.dedup.CheckAndMarkProcessed(ctx, c.name, eventID)
	if err != nil {
		c.logg.Error(ctx, c.name+".dedup_unavailable", err)
		return false
	}
	if seen {
		c.logg.Info(ctx, c.name+".already_processed")
		return true
	}

	err = c.handler.Handle(ctx, Event{
		ID:         eventID,
		Type:       enums.OutboxEventType(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		Payload:    payload,
		Data:       envelope.Data,
		MessageID:  msg.ID,
		Attributes: msg.Attributes,
	})
	switch {
	case err == nil:
		c.logg.Debug(ctx, c.name+".event_handled")
		return true
	case errors.Is(err, ErrSkip):
		c.logg.Debug(ctx, c.name+".event_skipped")
		return true
	}

	c.logg.Error(ctx, c.name+".handler_failed", err)
	if relErr := c.dedup.Delete(ctx, c.name, eventID); relErr != nil {
		c.logg.Error(ctx, c.name+".dedup_release_failed", relErr)
	}
	return false
}
