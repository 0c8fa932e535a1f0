package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// PaymentDTO is the API view of a payment row.
type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderID          uuid.UUID           `json:"orderId"`
	GatewayOrderID   string              `json:"gatewayOrderId"`
	GatewayPaymentID *string             `json:"gatewayPaymentId,omitempty"`
	Amount           int64               `json:"amount"`
	Currency         string              `json:"currency"`
	Status           enums.PaymentStatus `json:"status"`
	PaidAt           *time.Time          `json:"paidAt,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func FromModel(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID,
		OrderID:          p.OrderID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
	}
}

// VerifyInput is what the client posts after the checkout widget closes.
type VerifyInput struct {
	GatewayOrderID   string `json:"razorpayOrderId" validate:"required"`
	GatewayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	Signature        string `json:"razorpaySignature" validate:"required"`
}

// Result reports the order a payment settled. AlreadyProcessed is true when an
// earlier call (or the other path) applied it first. RefundRequired is true
// when the order was cancelled and the captured amount goes back to the student.
type Result struct {
	OrderID          uuid.UUID         `json:"orderId"`
	PaymentID        uuid.UUID         `json:"paymentId"`
	OrderStatus      enums.OrderStatus `json:"orderStatus"`
	AlreadyProcessed bool              `json:"alreadyProcessed"`
	RefundRequired   bool              `json:"refundRequired"`
}

// WebhookOutcome tells the HTTP layer what happened to a delivery. Ignored
// events are acknowledged so the gateway stops retrying them.
type WebhookOutcome struct {
	Event   string
	Handled bool
	// Duplicate is set when the event id was already seen.
	Duplicate bool
	Result    *Result
}
