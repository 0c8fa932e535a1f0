package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/orders"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/metrics"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
	"github.com/campusprint/campusprint-backend/pkg/razorpay"
)

const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"

	outcomeApplied   = "applied"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
	outcomeRefund    = "refund_required"

	refundReasonCancelled = "order_cancelled_before_capture"
)

// errAlreadyApplied rolls back a transaction that lost the race to the other
// reconciliation path.
var errAlreadyApplied = errors.New("payment already applied")

// Gateway is the slice of the Razorpay client the reconciler needs.
type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Reconciler settles orders from either the client callback or the gateway
// webhook. Whichever arrives first applies the payment; the other is a no-op.
type Reconciler struct {
	tx            txRunner
	payments      *Repository
	orders        orders.Repository
	gateway       Gateway
	outbox        outbox.Emitter
	fees          config.FeesConfig
	keySecret     string
	webhookSecret string
	logg          *logger.Logger
	metrics       *metrics.ReconcileMetrics
	now           func() time.Time
}

type ReconcilerParams struct {
	TX            txRunner
	Payments      *Repository
	Orders        orders.Repository
	Gateway       Gateway
	Outbox        outbox.Emitter
	Fees          config.FeesConfig
	KeySecret     string
	WebhookSecret string
	Logger        *logger.Logger
	Metrics       *metrics.ReconcileMetrics
}

func NewReconciler(p ReconcilerParams) (*Reconciler, error) {
	if p.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if strings.TrimSpace(p.KeySecret) == "" {
		return nil, fmt.Errorf("gateway key secret required")
	}
	if strings.TrimSpace(p.WebhookSecret) == "" {
		return nil, fmt.Errorf("gateway webhook secret required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reconciler{
		tx:            p.TX,
		payments:      p.Payments,
		orders:        p.Orders,
		gateway:       p.Gateway,
		outbox:        p.Outbox,
		fees:          p.Fees,
		keySecret:     p.KeySecret,
		webhookSecret: p.WebhookSecret,
		logg:          p.Logger,
		metrics:       p.Metrics,
		now:           time.Now,
	}, nil
}

// VerifyClientPayment checks the checkout signature, confirms the capture with
// the gateway and applies the payment.
func (r *Reconciler) VerifyClientPayment(ctx context.Context, in VerifyInput) (*Result, error) {
	in.GatewayOrderID = strings.TrimSpace(in.GatewayOrderID)
	in.GatewayPaymentID = strings.TrimSpace(in.GatewayPaymentID)
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		r.metrics.Observe(SourceVerify, outcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay order id, payment id and signature are required")
	}
	if !razorpay.VerifyPaymentSignature(r.keySecret, in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		r.metrics.Observe(SourceVerify, outcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid payment signature")
	}

	ctx = r.logg.WithFields(ctx, map[string]any{
		"gateway_order_id":   in.GatewayOrderID,
		"gateway_payment_id": in.GatewayPaymentID,
		"source":             SourceVerify,
	})

	if res, err := r.alreadyApplied(ctx, in.GatewayPaymentID); err != nil || res != nil {
		r.observe(SourceVerify, res, err)
		return res, err
	}

	payment, err := r.loadPayment(ctx, in.GatewayOrderID)
	if err != nil {
		r.observe(SourceVerify, nil, err)
		return nil, err
	}

	gwPayment, err := r.gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if err != nil {
		r.metrics.Observe(SourceVerify, outcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch gateway payment")
	}
	if !gwPayment.IsCaptured(in.GatewayOrderID) {
		r.metrics.Observe(SourceVerify, outcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment not captured").
			WithDetails(map[string]any{"status": gwPayment.Status})
	}

	res, err := r.apply(ctx, payment.ID, gwPayment, SourceVerify)
	r.observe(SourceVerify, res, err)
	return res, err
}

// HandleWebhook authenticates and applies a gateway webhook delivery. Events
// other than payment.captured are acknowledged and ignored.
func (r *Reconciler) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (WebhookOutcome, error) {
	if signature == "" || !razorpay.VerifyWebhookSignature(r.webhookSecret, rawBody, signature) {
		r.metrics.Observe(SourceWebhook, outcomeRejected)
		return WebhookOutcome{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	event, err := razorpay.ParseWebhookEvent(rawBody)
	if err != nil {
		r.metrics.Observe(SourceWebhook, outcomeRejected)
		return WebhookOutcome{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	outcome := WebhookOutcome{Event: event.Event}
	if event.Event != razorpay.EventPaymentCaptured {
		r.metrics.Observe(SourceWebhook, outcomeIgnored)
		return outcome, nil
	}

	entity := event.PaymentEntity()
	if entity == nil || entity.OrderID == "" {
		r.metrics.Observe(SourceWebhook, outcomeRejected)
		return outcome, pkgerrors.New(pkgerrors.CodeValidation, "webhook payment entity missing")
	}
	if !entity.IsCaptured(entity.OrderID) {
		r.metrics.Observe(SourceWebhook, outcomeRejected)
		return outcome, pkgerrors.New(pkgerrors.CodeValidation, "payment not captured").
			WithDetails(map[string]any{"status": entity.Status})
	}

	ctx = r.logg.WithFields(ctx, map[string]any{
		"gateway_order_id":   entity.OrderID,
		"gateway_payment_id": entity.ID,
		"source":             SourceWebhook,
	})

	res, err := r.alreadyApplied(ctx, entity.ID)
	if err == nil && res == nil {
		var payment *models.Payment
		payment, err = r.loadPayment(ctx, entity.OrderID)
		if err == nil {
			res, err = r.apply(ctx, payment.ID, entity, SourceWebhook)
		}
	}
	r.observe(SourceWebhook, res, err)
	if err != nil {
		return outcome, err
	}
	outcome.Handled = true
	outcome.Result = res
	return outcome, nil
}

func (r *Reconciler) alreadyApplied(ctx context.Context, gatewayPaymentID string) (*Result, error) {
	paid, err := r.payments.FindPaidByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	return r.duplicateResult(ctx, paid)
}

func (r *Reconciler) duplicateResult(ctx context.Context, paid *models.Payment) (*Result, error) {
	order, err := r.orders.FindByID(ctx, paid.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &Result{
		OrderID:          order.ID,
		PaymentID:        paid.ID,
		OrderStatus:      order.Status,
		AlreadyProcessed: true,
		RefundRequired:   order.Status == enums.OrderStatusCancelled,
	}, nil
}

func (r *Reconciler) loadPayment(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	payment, err := r.payments.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for gateway order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	return payment, nil
}

// apply settles the payment inside one transaction. The row lock serialises the
// two paths on Postgres; the conditional updates and unique constraints catch
// whatever slips past it.
func (r *Reconciler) apply(ctx context.Context, paymentID uuid.UUID, gw *razorpay.Payment, source string) (*Result, error) {
	var result *Result
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentsRepo := r.payments.WithTx(tx)
		ordersRepo := r.orders.WithTx(tx)

		payment, err := paymentsRepo.LockByID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.Status == enums.PaymentStatusPaid {
			if payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == gw.ID {
				return errAlreadyApplied
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already paid by a different payment")
		}

		order, err := ordersRepo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			result, err = r.captureForCancelled(ctx, tx, payment, order, gw)
			return err
		}

		breakdown, err := CalculateCommission(CommissionInput{
			OrderTotal:      order.TotalPrice,
			PlatformFee:     r.fees.PlatformFee,
			CommissionRate:  r.fees.CommissionRate,
			GatewayFeeMinor: gw.Fee,
			GatewayTaxMinor: gw.Tax,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "calculate commission")
		}

		now := r.now().UTC()
		ok, err := paymentsRepo.MarkPaid(ctx, payment.ID, gw.ID, now)
		if err != nil {
			return r.constraintOrDependency(err, "mark payment paid")
		}
		if !ok {
			return errAlreadyApplied
		}

		ok, err = paymentsRepo.AcceptOrder(ctx, order.ID, gw.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be accepted").
				WithDetails(map[string]any{"status": order.Status})
		}

		commission := &models.Commission{
			OrderID:          order.ID,
			StationaryID:     order.StationaryID,
			PlatformFee:      breakdown.PlatformFee,
			CommissionRate:   breakdown.CommissionRate,
			CommissionFee:    breakdown.CommissionFee,
			GatewayFee:       breakdown.GatewayFee,
			GatewayTax:       breakdown.GatewayTax,
			NetEarnings:      breakdown.NetEarnings,
			SettlementStatus: enums.SettlementStatusPending,
		}
		if err := paymentsRepo.CreateCommission(ctx, commission); err != nil {
			return r.constraintOrDependency(err, "create commission")
		}

		order.Status = enums.OrderStatusAccepted
		order.GatewayPaymentID = &gw.ID
		order.UpdatedAt = now

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				Order:            orders.BuildSnapshot(order),
				GatewayPaymentID: gw.ID,
				AmountPaid:       payment.Amount,
				CommissionFee:    breakdown.CommissionFee,
				NetEarnings:      breakdown.NetEarnings,
				Source:           source,
				PaidAt:           now,
			},
		}
		if err := r.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue paid event")
		}

		result = &Result{
			OrderID:     order.ID,
			PaymentID:   payment.ID,
			OrderStatus: order.Status,
		}
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		payment, lookupErr := r.payments.FindPaidByGatewayPaymentID(ctx, gw.ID)
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already paid by a different payment")
		}
		if lookupErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "lookup payment")
		}
		return r.duplicateResult(ctx, payment)
	}
	if err != nil {
		return nil, err
	}
	if result.RefundRequired {
		r.logg.Warn(r.logg.WithOrderID(ctx, result.OrderID.String()), "payments.refund_required")
		return result, nil
	}
	r.logg.Info(r.logg.WithOrderID(ctx, result.OrderID.String()), "payments.order_paid")
	return result, nil
}

// captureForCancelled records money that arrived for a cancelled order. The
// payment is marked PAID so the capture is not applied twice, the order stays
// CANCELLED, no commission is taken and a refund is queued.
func (r *Reconciler) captureForCancelled(ctx context.Context, tx *gorm.DB, payment *models.Payment, order *models.Order, gw *razorpay.Payment) (*Result, error) {
	now := r.now().UTC()
	ok, err := r.payments.WithTx(tx).MarkPaid(ctx, payment.ID, gw.ID, now)
	if err != nil {
		return nil, r.constraintOrDependency(err, "mark payment paid")
	}
	if !ok {
		return nil, errAlreadyApplied
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentRefundRequired,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		OccurredAt:    now,
		Data: payloads.PaymentRefundRequiredEvent{
			Order:            orders.BuildSnapshot(order),
			PaymentID:        payment.ID,
			GatewayPaymentID: gw.ID,
			Amount:           payment.Amount,
			Reason:           refundReasonCancelled,
			CapturedAt:       now,
		},
	}
	if err := r.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue refund event")
	}
	return &Result{
		OrderID:        order.ID,
		PaymentID:      payment.ID,
		OrderStatus:    order.Status,
		RefundRequired: true,
	}, nil
}

// constraintOrDependency maps a unique violation from a concurrent writer onto
// errAlreadyApplied. SQLite does not name partial indexes in its error text, so
// any unique violation counts.
func (r *Reconciler) constraintOrDependency(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return errAlreadyApplied
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func (r *Reconciler) observe(source string, res *Result, err error) {
	switch {
	case err != nil:
		if pkgerrors.IsCode(err, pkgerrors.CodeDependency) || pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
			r.metrics.Observe(source, outcomeFailed)
			return
		}
		r.metrics.Observe(source, outcomeRejected)
	case res != nil && res.AlreadyProcessed:
		r.metrics.Observe(source, outcomeDuplicate)
	case res != nil && res.RefundRequired:
		r.metrics.Observe(source, outcomeRefund)
	default:
		r.metrics.Observe(source, outcomeApplied)
	}
}
