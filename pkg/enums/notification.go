package enums

// NotificationTemplate names the message a sender renders for a recipient.
type NotificationTemplate string

const (
	NotificationOrderPlaced         NotificationTemplate = "order_placed"
	NotificationOrderReadyForPickup NotificationTemplate = "order_ready_for_pickup"
	NotificationOrderOutForDelivery NotificationTemplate = "order_out_for_delivery"
	NotificationOrderDelivered      NotificationTemplate = "order_delivered"
	NotificationOrderCancelled      NotificationTemplate = "order_cancelled"
	NotificationEmailVerification   NotificationTemplate = "email_verification"
	NotificationRefundPending       NotificationTemplate = "refund_pending"
)

var validNotificationTemplates = []NotificationTemplate{
	NotificationOrderPlaced,
	NotificationOrderReadyForPickup,
	NotificationOrderOutForDelivery,
	NotificationOrderDelivered,
	NotificationOrderCancelled,
	NotificationEmailVerification,
	NotificationRefundPending,
}

// IsValid checks whether the given template is known.
func (n NotificationTemplate) IsValid() bool {
	return member(n, validNotificationTemplates)
}
