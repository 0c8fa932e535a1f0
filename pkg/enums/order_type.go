package enums

// OrderType selects how a finished order reaches the customer.
type OrderType string

const (
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypeTakeaway OrderType = "TAKEAWAY"
)

func (t OrderType) String() string {
	return string(t)
}

func (t OrderType) IsValid() bool {
	return t == OrderTypeDelivery || t == OrderTypeTakeaway
}
