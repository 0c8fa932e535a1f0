package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/internal/payments"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
	// gateway payloads are small; anything larger is not a real delivery
	maxWebhookBytes = 1 << 20
)

type RazorpayWebhookService interface {
	Handle(ctx context.Context, eventID string, rawBody []byte, signature string) (payments.WebhookOutcome, error)
}

// RazorpayWebhook authenticates a gateway delivery over the raw body and hands
// it to the reconciler. Non-2xx answers make the gateway retry.
func RazorpayWebhook(svc RazorpayWebhookService, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
		}
		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "razorpay signature missing")
		}

		outcome, err := svc.Handle(ctx, r.Header.Get(eventIDHeader), payload, signature)
		if err != nil {
			return err
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event":     outcome.Event,
				"handled":   outcome.Handled,
				"duplicate": outcome.Duplicate,
			}), "razorpay_webhook.processed")
		}

		switch {
		case outcome.Duplicate:
			responses.WriteSuccess(w, "Event already received", map[string]any{"event": outcome.Event})
		case !outcome.Handled:
			responses.WriteSuccess(w, "Event ignored", nil)
		default:
			responses.WriteSuccess(w, "Webhook processed", outcome.Result)
		}
		return nil
	})
}
