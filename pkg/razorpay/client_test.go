package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/campusprint/campusprint-backend/pkg/config"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(
		config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "secret"},
		WithBaseURL("http://razorpay.test/v1"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateOrder(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.String() != "http://razorpay.test/v1/orders" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL)
		}
		user, pass, ok := req.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Fatalf("basic auth missing")
		}
		var payload CreateOrderRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload.Amount != 102500 || payload.Currency != "INR" || payload.Receipt != "rcpt_1" {
			t.Fatalf("unexpected payload %+v", payload)
		}
		return jsonResponse(http.StatusOK, `{"id":"order_ABC","entity":"order","amount":102500,"currency":"INR","receipt":"rcpt_1","status":"created"}`), nil
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 102500, Currency: "INR", Receipt: "rcpt_1"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "order_ABC" || order.Status != "created" {
		t.Fatalf("unexpected order %+v", order)
	}
	if client.KeyID() != "rzp_test_key" {
		t.Fatalf("unexpected key id %s", client.KeyID())
	}
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 0, Currency: "INR"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchPaymentCaptured(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/payments/pay_123" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"id":"pay_123","status":"captured","order_id":"order_ABC","amount":102500,"fee":236,"tax":42}`), nil
	})

	payment, err := client.FetchPayment(context.Background(), "pay_123")
	if err != nil {
		t.Fatalf("fetch payment: %v", err)
	}
	if !payment.IsCaptured("order_ABC") {
		t.Fatalf("expected captured payment for order_ABC")
	}
	if payment.IsCaptured("order_OTHER") {
		t.Fatalf("order mismatch must not count as captured")
	}
	if payment.Fee != 236 || payment.Tax != 42 {
		t.Fatalf("unexpected fee/tax %d/%d", payment.Fee, payment.Tax)
	}
}

func TestGatewayErrorsAreDependencyErrors(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`), nil
	})
	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 50, Currency: "INR"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "BAD_REQUEST_ERROR") {
		t.Fatalf("expected gateway code in error, got %v", err)
	}

	notFound := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})
	if _, err := notFound.FetchPayment(context.Background(), "pay_missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.RazorpayConfig{KeyID: "k"}); err == nil {
		t.Fatal("expected missing secret error")
	}
}
