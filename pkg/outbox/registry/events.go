package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

type entry struct {
	aggregate  enums.OutboxAggregateType
	newPayload func() any
}

// catalog is every event the outbox carries. Rows of any other type are
// dead-lettered by the relay.
var catalog = map[enums.OutboxEventType]entry{
	enums.EventOrderCreated:          {enums.AggregateOrder, func() any { return new(payloads.OrderCreatedEvent) }},
	enums.EventOrderPaid:             {enums.AggregateOrder, func() any { return new(payloads.OrderPaidEvent) }},
	enums.EventOrderStatusChanged:    {enums.AggregateOrder, func() any { return new(payloads.OrderStatusChangedEvent) }},
	enums.EventOrderExpired:          {enums.AggregateOrder, func() any { return new(payloads.OrderExpiredEvent) }},
	enums.EventPaymentRefundRequired: {enums.AggregatePayment, func() any { return new(payloads.PaymentRefundRequiredEvent) }},
	enums.EventEmailOTPRequested:     {enums.AggregateUser, func() any { return new(payloads.EmailOTPRequestedEvent) }},
}

// NonRetryableError marks a failure that will not go away on a later attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// Route is an outbox row that passed validation, with the topic it goes to.
type Route struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Router checks outbox rows against the catalog. All CampusPrint events share
// the orders topic; the notification and analytics subscriptions fan out from it.
type Router struct {
	topic string
}

func NewRouter(cfg config.PubSubConfig) (*Router, error) {
	topic := strings.TrimSpace(cfg.OrdersTopic)
	if topic == "" {
		return nil, errors.New("orders topic is required")
	}
	return &Router{topic: topic}, nil
}

// Resolve returns a NonRetryableError for any row that can never be published.
func (r *Router) Resolve(row models.OutboxEvent) (*Route, error) {
	e, ok := catalog[row.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", row.EventType)
	case e.aggregate != row.AggregateType:
		return nil, nonRetryable("%s belongs to %s, row says %s", row.EventType, e.aggregate, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s row has no aggregate id", row.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if env.EventType != "" && env.EventType != string(row.EventType) {
		return nil, nonRetryable("envelope type %s does not match row type %s", env.EventType, row.EventType)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("%s envelope has no data", row.EventType)
	}
	payload := e.newPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, nonRetryable("decode %s data: %w", row.EventType, err)
	}
	return &Route{Topic: r.topic, Envelope: env, Payload: payload}, nil
}
