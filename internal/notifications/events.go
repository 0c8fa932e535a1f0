package notifications

import (
	"context"
	"fmt"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/outbox/consumer"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

// ConsumerName keys the processed-event marks of the notification worker.
const ConsumerName = "notifications"

type dispatcher interface {
	Dispatch(ctx context.Context, ev OrderEvent) error
	DispatchVerification(ctx context.Context, ev payloads.EmailOTPRequestedEvent) error
}

// EventHandler turns outbox events into emails and realtime pushes.
type EventHandler struct {
	dispatcher dispatcher
}

func NewEventHandler(d dispatcher) (*EventHandler, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &EventHandler{dispatcher: d}, nil
}

// Handle never fails a delivery. The dispatcher logs a failed send and the
// event is still acked so a shop never gets a second NEW_ORDER push.
func (h *EventHandler) Handle(ctx context.Context, ev consumer.Event) error {
	switch p := ev.Payload.(type) {
	case *payloads.OrderPaidEvent:
		_ = h.dispatcher.Dispatch(ctx, OrderEvent{
			Type:       enums.EventOrderPaid,
			Order:      p.Order,
			OccurredAt: p.PaidAt,
			Extra: map[string]any{
				"amountPaid":       p.AmountPaid,
				"gatewayPaymentId": p.GatewayPaymentID,
			},
		})
	case *payloads.OrderStatusChangedEvent:
		_ = h.dispatcher.Dispatch(ctx, OrderEvent{
			Type:       enums.EventOrderStatusChanged,
			Order:      p.Order,
			OccurredAt: p.ChangedAt,
			Extra:      map[string]any{"previousStatus": string(p.PreviousStatus)},
		})
	case *payloads.OrderExpiredEvent:
		_ = h.dispatcher.Dispatch(ctx, OrderEvent{
			Type:       enums.EventOrderExpired,
			Order:      p.Order,
			OccurredAt: p.ExpiredAt,
		})
	case *payloads.PaymentRefundRequiredEvent:
		_ = h.dispatcher.Dispatch(ctx, OrderEvent{
			Type:       enums.EventPaymentRefundRequired,
			Order:      p.Order,
			OccurredAt: p.CapturedAt,
			Extra: map[string]any{
				"amount":           p.Amount,
				"gatewayPaymentId": p.GatewayPaymentID,
			},
		})
	case *payloads.EmailOTPRequestedEvent:
		_ = h.dispatcher.DispatchVerification(ctx, *p)
	default:
		return fmt.Errorf("%w: %s", consumer.ErrSkip, ev.Type)
	}
	return nil
}
