package orders

import (
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
)

// BuildSnapshot renders the event view of order. Customer fields are blank when
// the association was not loaded.
func BuildSnapshot(order *models.Order) payloads.OrderSnapshot {
	snap := payloads.OrderSnapshot{
		OrderID:      order.ID,
		UserID:       order.UserID,
		StationaryID: order.StationaryID,
		CollegeID:    order.CollegeID,
		Status:       order.Status,
		OrderType:    order.OrderType,
		TotalPrice:   order.TotalPrice,
		ItemCount:    len(order.Items),
		CreatedAt:    order.CreatedAt,
	}
	if order.Customer != nil {
		snap.CustomerName = order.Customer.Name
		snap.CustomerEmail = order.Customer.Email
	}
	return snap
}
