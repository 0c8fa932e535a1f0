package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateUser    OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateUser,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return member(a, validAggregateTypes)
}


// OutboxEventType names a domain event written through the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderExpired       OutboxEventType = "order_expired"
	EventEmailOTPRequested  OutboxEventType = "email_otp_requested"

	// EventPaymentRefundRequired is queued when money is captured for an order
	// that can no longer be fulfilled.
	EventPaymentRefundRequired OutboxEventType = "payment_refund_required"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderStatusChanged,
	EventOrderExpired,
	EventEmailOTPRequested,
	EventPaymentRefundRequired,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return member(e, validOutboxEventTypes)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(value, "outbox event type", validOutboxEventTypes)
}
