package razorpay

import (
	"encoding/json"
	"fmt"
)

// EventPaymentCaptured is the only webhook event that settles an order.
const EventPaymentCaptured = "payment.captured"

// WebhookEvent is the envelope Razorpay posts to the webhook endpoint.
type WebhookEvent struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	CreatedAt int64    `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a raw webhook body.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("decode razorpay webhook: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("razorpay webhook missing event name")
	}
	return &event, nil
}

// PaymentEntity returns the nested payment, or nil when the event carries none.
func (e *WebhookEvent) PaymentEntity() *Payment {
	if e == nil || e.Payload.Payment.Entity.ID == "" {
		return nil
	}
	p := e.Payload.Payment.Entity
	return &p
}
