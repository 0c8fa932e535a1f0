package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart holds a student's print jobs until checkout.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PrintOptions are the finishing choices shared by cart and order lines.
type PrintOptions struct {
	Coloured bool `gorm:"column:coloured;not null;default:false" json:"coloured"`
	Duplex   bool `gorm:"column:duplex;not null;default:false" json:"duplex"`
	Spiral   bool `gorm:"column:spiral;not null;default:false" json:"spiral"`
	Hardbind bool `gorm:"column:hardbind;not null;default:false" json:"hardbind"`
}

// CartItem is one uploaded file with its print options and price.
type CartItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID       uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	FileURL      string    `gorm:"column:file_url;not null"`
	FileKey      string    `gorm:"column:file_key;not null"`
	FileType     string    `gorm:"column:file_type;not null"`
	PrintOptions `gorm:"embedded"`
	Quantity     int       `gorm:"column:quantity;not null"`
	Price        int64     `gorm:"column:price;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
