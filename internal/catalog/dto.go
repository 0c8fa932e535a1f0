package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
)

type CollegeDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	State      string    `json:"state"`
	Country    string    `json:"country"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StationaryDTO is the shop shape returned to students, owners and admins.
type StationaryDTO struct {
	ID          uuid.UUID         `json:"id"`
	CollegeID   uuid.UUID         `json:"collegeId"`
	OwnerID     uuid.UUID         `json:"ownerId"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	CountryCode string            `json:"countryCode"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	IsActive    bool              `json:"isActive"`
	CanDeliver  bool              `json:"canDeliver"`
	Rates       *PrintingRatesDTO `json:"printingRates,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type PrintingRatesDTO struct {
	ColorRate    int64 `json:"colorRate"`
	BWRate       int64 `json:"bwRate"`
	DuplexExtra  int64 `json:"duplexExtra"`
	HardbindRate int64 `json:"hardbindRate"`
	SpiralRate   int64 `json:"spiralRate"`
}

// RegisterCollegeInput is the admin payload for onboarding a college.
type RegisterCollegeInput struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	State      string `json:"state" validate:"required"`
	Country    string `json:"country" validate:"required"`
	IsVerified bool   `json:"isVerified"`
}

// RegisterStationaryInput is the admin payload for onboarding a shop.
type RegisterStationaryInput struct {
	CollegeID   uuid.UUID         `json:"collegeId" validate:"required"`
	OwnerID     uuid.UUID         `json:"ownerId" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	Email       string            `json:"email" validate:"required,email"`
	CountryCode string            `json:"countryCode"`
	Phone       string            `json:"phone" validate:"required,numeric,len=10"`
	Address     string            `json:"address" validate:"required"`
	IsActive    *bool             `json:"isActive"`
	CanDeliver  bool              `json:"canDeliver"`
	Rates       *PrintingRatesDTO `json:"printingRates"`
}

// UpdateRatesInput carries a partial rate update; nil fields keep their value.
type UpdateRatesInput struct {
	ColorRate    *int64 `json:"colorRate" validate:"omitempty,min=0"`
	BWRate       *int64 `json:"bwRate" validate:"omitempty,min=0"`
	DuplexExtra  *int64 `json:"duplexExtra" validate:"omitempty,min=0"`
	HardbindRate *int64 `json:"hardbindRate" validate:"omitempty,min=0"`
	SpiralRate   *int64 `json:"spiralRate" validate:"omitempty,min=0"`
}

func (in UpdateRatesInput) updates() map[string]any {
	updates := map[string]any{}
	set := func(column string, v *int64) {
		if v != nil {
			updates[column] = *v
		}
	}
	set("color_rate", in.ColorRate)
	set("bw_rate", in.BWRate)
	set("duplex_extra", in.DuplexExtra)
	set("hardbind_rate", in.HardbindRate)
	set("spiral_rate", in.SpiralRate)
	return updates
}

func CollegeFromModel(m *models.College) *CollegeDTO {
	if m == nil {
		return nil
	}
	return &CollegeDTO{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		State:      m.State,
		Country:    m.Country,
		IsVerified: m.IsVerified,
		CreatedAt:  m.CreatedAt,
	}
}

func StationaryFromModel(m *models.Stationary) *StationaryDTO {
	if m == nil {
		return nil
	}
	return &StationaryDTO{
		ID:          m.ID,
		CollegeID:   m.CollegeID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Email:       m.Email,
		CountryCode: m.CountryCode,
		Phone:       m.Phone,
		Address:     m.Address,
		IsActive:    m.IsActive,
		CanDeliver:  m.CanDeliver,
		Rates:       RatesFromModel(m.Rates),
		CreatedAt:   m.CreatedAt,
	}
}

func RatesFromModel(m *models.PrintingRate) *PrintingRatesDTO {
	if m == nil {
		return nil
	}
	return &PrintingRatesDTO{
		ColorRate:    m.ColorRate,
		BWRate:       m.BWRate,
		DuplexExtra:  m.DuplexExtra,
		HardbindRate: m.HardbindRate,
		SpiralRate:   m.SpiralRate,
	}
}
