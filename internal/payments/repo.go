package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Repository persists payments and commission rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPaidByGatewayPaymentID is the fast idempotency probe: a hit means the
// gateway payment was already applied.
func (r *Repository) FindPaidByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ? AND status = ?", gatewayPaymentID, enums.PaymentStatusPaid).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockByID reads the payment row under SELECT ... FOR UPDATE.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkPaid flips a PENDING payment to PAID. False means it was not PENDING.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":             enums.PaymentStatusPaid,
			"gateway_payment_id": gatewayPaymentID,
			"paid_at":            paidAt,
			"updated_at":         paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AcceptOrder moves a PENDING order to ACCEPTED. A cancelled order is never
// accepted, whoever cancelled it.
func (r *Repository) AcceptOrder(ctx context.Context, orderID uuid.UUID, gatewayPaymentID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND gateway_payment_id IS NULL", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":             enums.OrderStatusAccepted,
			"gateway_payment_id": gatewayPaymentID,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateCommission(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *Repository) FindCommission(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}
