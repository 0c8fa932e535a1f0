package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

const (
	channelEmail    = "email"
	channelRealtime = "realtime"
)

// OrderEvent is one committed order change as the dispatcher sees it.
type OrderEvent struct {
	Type       enums.OutboxEventType
	Order      payloads.OrderSnapshot
	OccurredAt time.Time
	// Extra is merged into the email payload.
	Extra map[string]any
}

// Dispatcher fans a committed order event out to email and the shop's realtime
// channel. Every failure is counted and returned; nothing here can undo the
// order change that produced the event.
type Dispatcher struct {
	sender   Sender
	realtime *Realtime
	logg     *logger.Logger
	metrics  *metrics.NotificationMetrics
}

func NewDispatcher(sender Sender, realtime *Realtime, logg *logger.Logger, m *metrics.NotificationMetrics) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if realtime == nil {
		return nil, fmt.Errorf("realtime publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{sender: sender, realtime: realtime, logg: logg, metrics: m}, nil
}

// Dispatch emails the customer when the event warrants it and, for paid orders,
// pushes NEW_ORDER to the shop.
func (d *Dispatcher) Dispatch(ctx context.Context, ev OrderEvent) error {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"event_type":    string(ev.Type),
		"order_id":      ev.Order.OrderID.String(),
		"stationary_id": ev.Order.StationaryID.String(),
	})

	var errs error
	if template, ok := TemplateFor(ev.Type, ev.Order); ok {
		if ev.Order.CustomerEmail == "" {
			d.logg.Warn(ctx, "notifications.customer_email_missing")
		} else if err := d.sender.Send(ctx, ev.Order.CustomerEmail, template, emailPayload(ev)); err != nil {
			d.metrics.Failed(channelEmail)
			errs = multierr.Append(errs, fmt.Errorf("email %s: %w", template, err))
		} else {
			d.metrics.Delivered(channelEmail)
		}
	}

	if ev.Type == enums.EventOrderPaid {
		at := ev.OccurredAt
		if at.IsZero() {
			at = time.Now()
		}
		if err := d.realtime.PushNewOrder(ctx, ev.Order.StationaryID, ev.Order, at); err != nil {
			d.metrics.Failed(channelRealtime)
			errs = multierr.Append(errs, fmt.Errorf("realtime push: %w", err))
		} else {
			d.metrics.Delivered(channelRealtime)
		}
	}

	if errs != nil {
		d.logg.Error(ctx, "notifications.dispatch_failed", errs)
	}
	return errs
}

// DispatchVerification mails a registration code.
func (d *Dispatcher) DispatchVerification(ctx context.Context, ev payloads.EmailOTPRequestedEvent) error {
	err := d.sender.Send(ctx, ev.Email, enums.NotificationEmailVerification, map[string]any{
		"name":      ev.Name,
		"code":      ev.Code,
		"expiresAt": ev.ExpiresAt,
	})
	if err != nil {
		d.metrics.Failed(channelEmail)
		d.logg.Error(d.logg.WithUserID(ctx, ev.UserID.String()), "notifications.verification_failed", err)
		return err
	}
	d.metrics.Delivered(channelEmail)
	return nil
}

// TemplateFor picks the customer email for an event. Transitions the customer
// does not need to hear about return false.
func TemplateFor(eventType enums.OutboxEventType, order payloads.OrderSnapshot) (enums.NotificationTemplate, bool) {
	switch eventType {
	case enums.EventOrderPaid:
		return enums.NotificationOrderPlaced, true
	case enums.EventOrderExpired:
		return enums.NotificationOrderCancelled, true
	case enums.EventPaymentRefundRequired:
		return enums.NotificationRefundPending, true
	case enums.EventOrderStatusChanged:
		switch order.Status {
		case enums.OrderStatusCompleted:
			if order.OrderType == enums.OrderTypeTakeaway {
				return enums.NotificationOrderReadyForPickup, true
			}
		case enums.OrderStatusOutForDelivery:
			if order.OrderType == enums.OrderTypeDelivery {
				return enums.NotificationOrderOutForDelivery, true
			}
		case enums.OrderStatusDelivered:
			return enums.NotificationOrderDelivered, true
		case enums.OrderStatusCancelled:
			return enums.NotificationOrderCancelled, true
		}
	}
	return "", false
}

func emailPayload(ev OrderEvent) map[string]any {
	payload := map[string]any{
		"orderId":      ev.Order.OrderID.String(),
		"customerName": ev.Order.CustomerName,
		"status":       string(ev.Order.Status),
		"orderType":    string(ev.Order.OrderType),
		"totalPrice":   ev.Order.TotalPrice,
		"itemCount":    ev.Order.ItemCount,
	}
	for k, v := range ev.Extra {
		payload[k] = v
	}
	return payload
}
