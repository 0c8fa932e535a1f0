package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Payment records one gateway payment attempt for an order.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayOrderID   string              `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id;index"`
	Amount           int64               `gorm:"column:amount;not null"`
	Currency         string              `gorm:"column:currency;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Commission is the platform's cut of a paid order. One row per order.
type Commission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	StationaryID     uuid.UUID              `gorm:"column:stationary_id;type:uuid;not null;index"`
	PlatformFee      int64                  `gorm:"column:platform_fee;not null"`
	CommissionRate   int64                  `gorm:"column:commission_rate;not null"`
	CommissionFee    int64                  `gorm:"column:commission_fee;not null"`
	GatewayFee       int64                  `gorm:"column:gateway_fee;not null"`
	GatewayTax       int64                  `gorm:"column:gateway_tax;not null"`
	NetEarnings      int64                  `gorm:"column:net_earnings;not null"`
	SettlementStatus enums.SettlementStatus `gorm:"column:settlement_status;type:text;not null;default:'PENDING'"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
