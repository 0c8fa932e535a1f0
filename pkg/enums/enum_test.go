package enums

import "testing"

func TestParseIsExact(t *testing.T) {
	if got, err := ParseOrderStatus("OUT_FOR_DELIVERY"); err != nil || got != OrderStatusOutForDelivery {
		t.Fatalf("ParseOrderStatus = %q, %v", got, err)
	}
	for _, raw := range []string{"out_for_delivery", " PENDING", ""} {
		if _, err := ParseOrderStatus(raw); err == nil {
			t.Errorf("ParseOrderStatus(%q) should fail", raw)
		}
	}
	if _, err := ParseOutboxEventType("order.teleported"); err == nil {
		t.Errorf("unknown event type accepted")
	}
}

func TestValidity(t *testing.T) {
	valid := []interface{ IsValid() bool }{
		OrderStatusCancelled, UserRoleAdmin, PaymentStatusPaid, OrderTypeTakeaway,
		NotificationRefundPending, AggregatePayment, EventPaymentRefundRequired,
		OutboxDLQReasonNonRetryable, SettlementStatusVoid,
	}
	for _, v := range valid {
		if !v.IsValid() {
			t.Errorf("%v should be valid", v)
		}
	}
	invalid := []interface{ IsValid() bool }{
		OrderStatus("SHIPPED"), UserRole("Student"), PaymentStatus("FAILED"), OrderType(""),
		NotificationTemplate("sms"), OutboxAggregateType("cart"), OutboxEventType(""),
		OutboxDLQErrorReason("timeout"), SettlementStatus("pending"),
	}
	for _, v := range invalid {
		if v.IsValid() {
			t.Errorf("%v should be invalid", v)
		}
	}
}

func TestTerminalAndPaidStatuses(t *testing.T) {
	for _, s := range validOrderStatuses {
		wantTerminal := s == OrderStatusDelivered || s == OrderStatusCancelled
		wantPaid := s != OrderStatusPending && s != OrderStatusCancelled
		if s.IsTerminal() != wantTerminal || s.IsPaid() != wantPaid {
			t.Errorf("%s terminal=%v paid=%v", s, s.IsTerminal(), s.IsPaid())
		}
	}
}
