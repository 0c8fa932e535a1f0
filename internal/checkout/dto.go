package checkout

import (
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/internal/payments"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Input is the checkout request body.
type Input struct {
	StationaryID    uuid.UUID       `json:"stationaryId" validate:"required"`
	OrderType       enums.OrderType `json:"orderType" validate:"required,oneof=DELIVERY TAKEAWAY"`
	DeliveryAddress string          `json:"deliveryAddress" validate:"omitempty,max=500"`
}

// GatewayOrder is what the client needs to open the Razorpay checkout widget.
type GatewayOrder struct {
	KeyID    string `json:"keyId"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Result struct {
	Order      orders.CustomerOrderDTO `json:"order"`
	Payment    payments.PaymentDTO     `json:"payment"`
	OrderItems []orders.OrderItemDTO   `json:"orderItems"`
	Gateway    GatewayOrder            `json:"gateway"`
}

func buildResult(order *models.Order, payment *models.Payment, platformFee int64, gateway GatewayOrder) *Result {
	dto := orders.CustomerFromModel(order, platformFee)
	return &Result{
		Order:      dto,
		Payment:    payments.FromModel(payment),
		OrderItems: dto.Items,
		Gateway:    gateway,
	}
}
