package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Order is the ledger entry created at checkout.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	StationaryID     uuid.UUID         `gorm:"column:stationary_id;type:uuid;not null;index"`
	CollegeID        uuid.UUID         `gorm:"column:college_id;type:uuid;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	OrderType        enums.OrderType   `gorm:"column:order_type;type:text;not null"`
	TotalPrice       int64             `gorm:"column:total_price;not null"`
	DeliveryAddress  *string           `gorm:"column:delivery_address"`
	DeliveryFee      *int64            `gorm:"column:delivery_fee"`
	OTP              string            `gorm:"column:otp;not null"`
	GatewayPaymentID *string           `gorm:"column:gateway_payment_id"`
	DeliveredAt      *time.Time        `gorm:"column:delivered_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Commission       *Commission       `gorm:"foreignKey:OrderID"`
	Customer         *User             `gorm:"foreignKey:UserID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is an immutable snapshot of a cart item taken at checkout.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	FileURL      string    `gorm:"column:file_url;not null"`
	FileKey      string    `gorm:"column:file_key;not null"`
	FileType     string    `gorm:"column:file_type;not null"`
	PrintOptions `gorm:"embedded"`
	Quantity     int       `gorm:"column:quantity;not null"`
	Price        int64     `gorm:"column:price;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
