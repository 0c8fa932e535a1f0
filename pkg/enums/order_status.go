package enums

// OrderStatus tracks the lifecycle of a print order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusInProgress     OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	return member(s, validOrderStatuses)
}

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsPaid reports whether an order in this status has a confirmed payment.
func (s OrderStatus) IsPaid() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusInProgress, OrderStatusCompleted, OrderStatusOutForDelivery, OrderStatusDelivered:
		return true
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(value, "order status", validOrderStatuses)
}
