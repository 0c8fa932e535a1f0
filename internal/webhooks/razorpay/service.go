package razorpaywebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/campusprint/campusprint-backend/internal/payments"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/razorpay"
)

const claimScope = "razorpay:webhook"

type reconciler interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (payments.WebhookOutcome, error)
}

type claimer interface {
	ClaimKey(ctx context.Context, scope, id string) (bool, error)
	ReleaseKey(ctx context.Context, scope, id string) error
}

type ServiceParams struct {
	Reconciler    reconciler
	Claims        claimer
	WebhookSecret string
	Logger        *logger.Logger
}

// Service drops redelivered gateway events before they reach the reconciler.
type Service struct {
	reconciler    reconciler
	claims        claimer
	webhookSecret string
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency manager required")
	}
	if strings.TrimSpace(params.WebhookSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		reconciler:    params.Reconciler,
		claims:        params.Claims,
		webhookSecret: params.WebhookSecret,
		logg:          params.Logger,
	}, nil
}

// Handle processes one delivery. eventID is the X-Razorpay-Event-Id header and
// may be empty, in which case the claim is skipped.
func (s *Service) Handle(ctx context.Context, eventID string, rawBody []byte, signature string) (payments.WebhookOutcome, error) {
	// only authentic deliveries may claim an event id
	if !razorpay.VerifyWebhookSignature(s.webhookSecret, rawBody, signature) {
		return payments.WebhookOutcome{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return s.reconciler.HandleWebhook(ctx, rawBody, signature)
	}

	ctx = s.logg.WithField(ctx, "webhook_event_id", eventID)
	claimed, err := s.claims.ClaimKey(ctx, claimScope, eventID)
	if err != nil {
		// Redis being down must not block settlement.
		s.logg.Warn(ctx, "razorpay_webhook.claim_failed")
		return s.reconciler.HandleWebhook(ctx, rawBody, signature)
	}
	if !claimed {
		s.logg.Info(ctx, "razorpay_webhook.duplicate_delivery")
		outcome := payments.WebhookOutcome{Duplicate: true}
		if event, err := razorpay.ParseWebhookEvent(rawBody); err == nil {
			outcome.Event = event.Event
		}
		return outcome, nil
	}

	outcome, err := s.reconciler.HandleWebhook(ctx, rawBody, signature)
	if err != nil {
		if releaseErr := s.claims.ReleaseKey(ctx, claimScope, eventID); releaseErr != nil {
			s.logg.Error(ctx, "razorpay_webhook.release_failed", errors.Join(err, releaseErr))
		}
		return outcome, err
	}
	return outcome, nil
}
