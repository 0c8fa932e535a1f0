package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// OrderSnapshot is the order view carried by every order event. It holds
// what the notification and analytics consumers need without a database read.
type OrderSnapshot struct {
	OrderID       uuid.UUID         `json:"orderId"`
	UserID        uuid.UUID         `json:"userId"`
	StationaryID  uuid.UUID         `json:"stationaryId"`
	CollegeID     uuid.UUID         `json:"collegeId"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	Status        enums.OrderStatus `json:"status"`
	OrderType     enums.OrderType   `json:"orderType"`
	TotalPrice    int64             `json:"totalPrice"`
	ItemCount     int               `json:"itemCount"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// OrderCreatedEvent is queued at checkout, before payment.
type OrderCreatedEvent struct {
	Order          OrderSnapshot `json:"order"`
	GatewayOrderID string        `json:"gatewayOrderId"`
	AmountCharged  int64         `json:"amountCharged"`
}

// OrderPaidEvent is queued when the reconciler confirms payment. It is the
// new-order signal for the shop.
type OrderPaidEvent struct {
	Order            OrderSnapshot `json:"order"`
	GatewayPaymentID string        `json:"gatewayPaymentId"`
	AmountPaid       int64         `json:"amountPaid"`
	CommissionFee    int64         `json:"commissionFee"`
	NetEarnings      int64         `json:"netEarnings"`
	Source           string        `json:"source"`
	PaidAt           time.Time     `json:"paidAt"`
}

// OrderStatusChangedEvent is queued for every owner-driven transition.
type OrderStatusChangedEvent struct {
	Order          OrderSnapshot     `json:"order"`
	PreviousStatus enums.OrderStatus `json:"previousStatus"`
	ChangedBy      uuid.UUID         `json:"changedBy"`
	ChangedAt      time.Time         `json:"changedAt"`
}

// OrderExpiredEvent is queued when an unpaid order is cancelled by the expiry job.
type OrderExpiredEvent struct {
	Order     OrderSnapshot `json:"order"`
	ExpiredAt time.Time     `json:"expiredAt"`
}

// PaymentRefundRequiredEvent is queued when a capture lands on a cancelled
// order. The payment stays PAID until someone refunds it at the gateway.
type PaymentRefundRequiredEvent struct {
	Order            OrderSnapshot `json:"order"`
	PaymentID        uuid.UUID     `json:"paymentId"`
	GatewayPaymentID string        `json:"gatewayPaymentId"`
	Amount           int64         `json:"amount"`
	Reason           string        `json:"reason"`
	CapturedAt       time.Time     `json:"capturedAt"`
}

// EmailOTPRequestedEvent asks the notification worker to mail a verification code.
type EmailOTPRequestedEvent struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}
