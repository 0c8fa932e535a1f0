package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// College groups the shops and students of one campus.
type College struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Email      string    `gorm:"column:email;not null;uniqueIndex"`
	State      string    `gorm:"column:state;not null"`
	Country    string    `gorm:"column:country;not null"`
	IsVerified bool      `gorm:"column:is_verified;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *College) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
