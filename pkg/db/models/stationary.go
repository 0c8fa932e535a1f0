package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stationary is a print shop operating inside a college.
type Stationary struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	CollegeID   uuid.UUID     `gorm:"column:college_id;type:uuid;not null;index"`
	OwnerID     uuid.UUID     `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	Name        string        `gorm:"column:name;not null"`
	Email       string        `gorm:"column:email;not null"`
	CountryCode string        `gorm:"column:country_code;not null;default:'+91'"`
	Phone       string        `gorm:"column:phone;not null;uniqueIndex"`
	Address     string        `gorm:"column:address;not null"`
	IsActive    bool          `gorm:"column:is_active;not null"`
	CanDeliver  bool          `gorm:"column:can_deliver;not null;default:false"`
	Rates       *PrintingRate `gorm:"foreignKey:StationaryID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stationary) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PrintingRate holds per-page and per-binding prices in whole currency units.
type PrintingRate struct {
	StationaryID uuid.UUID `gorm:"column:stationary_id;type:uuid;primaryKey"`
	ColorRate    int64     `gorm:"column:color_rate;not null;default:0"`
	BWRate       int64     `gorm:"column:bw_rate;not null;default:0"`
	DuplexExtra  int64     `gorm:"column:duplex_extra;not null;default:0"`
	HardbindRate int64     `gorm:"column:hardbind_rate;not null;default:0"`
	SpiralRate   int64     `gorm:"column:spiral_rate;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
