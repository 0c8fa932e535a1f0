package razorpay

import (
	"strings"
	"testing"
)

func TestVerifyPaymentSignature(t *testing.T) {
	sig := Sign("secret", []byte("order_ABC|pay_123"))

	if !VerifyPaymentSignature("secret", "order_ABC", "pay_123", sig) {
		t.Fatal("expected signature to verify")
	}
	if !VerifyPaymentSignature("secret", "order_ABC", "pay_123", strings.ToUpper(sig)) {
		t.Fatal("hex comparison should ignore case")
	}
	if VerifyPaymentSignature("secret", "order_ABC", "pay_999", sig) {
		t.Fatal("signature for another payment must fail")
	}
	if VerifyPaymentSignature("other", "order_ABC", "pay_123", sig) {
		t.Fatal("signature under another secret must fail")
	}
	if VerifyPaymentSignature("secret", "order_ABC", "pay_123", "") {
		t.Fatal("empty signature must fail")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign("whsec", body)

	if !VerifyWebhookSignature("whsec", body, sig) {
		t.Fatal("expected webhook signature to verify")
	}
	if VerifyWebhookSignature("whsec", []byte(`{"event":"payment.failed"}`), sig) {
		t.Fatal("tampered body must fail")
	}
	if VerifyWebhookSignature("", body, sig) {
		t.Fatal("missing secret must fail")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{"entity":"event","event":"payment.captured","contains":["payment"],"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured","fee":236,"tax":42}}}}`)
	event, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payment := event.PaymentEntity()
	if payment == nil || payment.ID != "pay_1" || payment.OrderID != "order_1" {
		t.Fatalf("unexpected payment %+v", payment)
	}

	other, err := ParseWebhookEvent([]byte(`{"event":"order.paid","payload":{}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if other.PaymentEntity() != nil {
		t.Fatal("expected no payment entity")
	}

	if _, err := ParseWebhookEvent([]byte(`{}`)); err == nil {
		t.Fatal("expected error for missing event")
	}
}
