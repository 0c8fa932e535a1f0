package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/internal/checkout"
	"github.com/campusprint/campusprint-backend/internal/payments"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

type paymentVerifier interface {
	VerifyClientPayment(ctx context.Context, in payments.VerifyInput) (*payments.Result, error)
}

// Checkout turns the student's cart into a pending order and returns the
// gateway order the client pays against.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, studentID uuid.UUID, body checkout.Input) error {
		result, err := svc.Execute(r.Context(), studentID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Order created, complete the payment to confirm it", result)
		return nil
	})
}

// PaymentVerify applies the payment the client reports after the widget
// closes. Calling it again for an applied payment returns the same order.
func PaymentVerify(verifier paymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return signedInWithBody(logg, func(w http.ResponseWriter, r *http.Request, _ uuid.UUID, body payments.VerifyInput) error {
		result, err := verifier.VerifyClientPayment(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, verifyMessage(result), result)
		return nil
	})
}

func verifyMessage(result *payments.Result) string {
	switch {
	case result.RefundRequired:
		return "Order was cancelled, the payment will be refunded"
	case result.AlreadyProcessed:
		return "Payment already verified"
	default:
		return "Payment verified successfully"
	}
}
