package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

func TestResolveRoutesStatusChangeToOrdersTopic(t *testing.T) {
	router := ordersRouter(t)
	orderID := uuid.New()
	row := models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeFor(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
			Order:          payloads.OrderSnapshot{OrderID: orderID, Status: enums.OrderStatusCompleted},
			PreviousStatus: enums.OrderStatusInProgress,
		}),
	}

	route, err := router.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if route.Topic != "orders" {
		t.Fatalf("expected orders topic, got %q", route.Topic)
	}
	changed, ok := route.Payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", route.Payload)
	}
	if changed.Order.OrderID != orderID || changed.PreviousStatus != enums.OrderStatusInProgress {
		t.Fatalf("payload mismatch %+v", changed)
	}
	if route.Envelope.EventID == "" {
		t.Fatalf("envelope lost its event id")
	}
}

func TestResolveRefundBelongsToPayment(t *testing.T) {
	row := models.OutboxEvent{
		EventType:     enums.EventPaymentRefundRequired,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, enums.EventPaymentRefundRequired, map[string]any{"reason": "order cancelled"}),
	}
	if _, err := ordersRouter(t).Resolve(row); err != nil {
		t.Fatalf("refund row should resolve: %v", err)
	}
}

func TestResolveRejectsUnpublishableRows(t *testing.T) {
	router := ordersRouter(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     "coupon_issued",
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, "", map[string]any{}),
		},
		"otp filed under order": {
			EventType:     enums.EventEmailOTPRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, "", map[string]any{}),
		},
		"no aggregate id": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeFor(t, "", map[string]any{}),
		},
		"null data": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, "", nil),
		},
		"envelope says another type": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, enums.EventOrderExpired, map[string]any{}),
		},
		"not json": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1,`),
		},
	}

	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := router.Resolve(row)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestNewRouterRequiresTopic(t *testing.T) {
	if _, err := NewRouter(config.PubSubConfig{OrdersTopic: "  "}); err == nil {
		t.Fatalf("expected missing topic error")
	}
}

func ordersRouter(t *testing.T) *Router {
	t.Helper()
	router, err := NewRouter(config.PubSubConfig{OrdersTopic: "orders"})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}
