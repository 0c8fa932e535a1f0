package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

const defaultCountryCode = "+91"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes college, shop and rate-card operations.
type Service interface {
	RegisterCollege(ctx context.Context, input RegisterCollegeInput) (*CollegeDTO, error)
	ListColleges(ctx context.Context, country, state string) ([]CollegeDTO, error)
	ListStationaries(ctx context.Context, viewerCollegeID *uuid.UUID, collegeID uuid.UUID) ([]StationaryDTO, error)
	RegisterStationary(ctx context.Context, input RegisterStationaryInput) (*StationaryDTO, error)
	StationaryForOwner(ctx context.Context, ownerID uuid.UUID) (*StationaryDTO, error)
	GetRates(ctx context.Context, ownerID uuid.UUID) (*PrintingRatesDTO, error)
	UpdateRates(ctx context.Context, ownerID uuid.UUID, input UpdateRatesInput) (*PrintingRatesDTO, error)
	SetShopStatus(ctx context.Context, ownerID uuid.UUID, active bool) (*StationaryDTO, error)
}

type service struct {
	repo  *Repository
	users userLookup
	tx    txRunner
}

func NewService(repo *Repository, users userLookup, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, users: users, tx: tx}, nil
}

func (s *service) RegisterCollege(ctx context.Context, input RegisterCollegeInput) (*CollegeDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "college name and email are required")
	}
	if _, err := s.repo.FindCollegeByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "college already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check college email")
	}

	college := &models.College{
		Name:       strings.TrimSpace(input.Name),
		Email:      email,
		State:      strings.TrimSpace(input.State),
		Country:    strings.TrimSpace(input.Country),
		IsVerified: input.IsVerified,
	}
	if err := s.repo.CreateCollege(ctx, college); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "college already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create college")
	}
	return CollegeFromModel(college), nil
}

func (s *service) ListColleges(ctx context.Context, country, state string) ([]CollegeDTO, error) {
	rows, err := s.repo.ListColleges(ctx, strings.TrimSpace(country), strings.TrimSpace(state))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list colleges")
	}
	out := make([]CollegeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *CollegeFromModel(&rows[i]))
	}
	return out, nil
}

// ListStationaries returns the active shops of collegeID. Students only see their own college.
func (s *service) ListStationaries(ctx context.Context, viewerCollegeID *uuid.UUID, collegeID uuid.UUID) ([]StationaryDTO, error) {
	if collegeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "college id required")
	}
	if viewerCollegeID != nil && *viewerCollegeID != collegeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shops are only visible to students of the same college")
	}
	rows, err := s.repo.ListStationariesByCollege(ctx, collegeID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stationaries")
	}
	out := make([]StationaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *StationaryFromModel(&rows[i]))
	}
	return out, nil
}

// RegisterStationary creates the shop and its rate card together.
func (s *service) RegisterStationary(ctx context.Context, input RegisterStationaryInput) (*StationaryDTO, error) {
	if input.CollegeID == uuid.Nil || input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "college and owner are required")
	}

	owner, err := s.users.FindByID(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner")
	}
	if owner.Role != enums.UserRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a stationary owner")
	}
	if owner.CollegeID == nil || *owner.CollegeID != input.CollegeID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner belongs to a different college")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	countryCode := strings.TrimSpace(input.CountryCode)
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	shop := &models.Stationary{
		CollegeID:   input.CollegeID,
		OwnerID:     input.OwnerID,
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		CountryCode: countryCode,
		Phone:       strings.TrimSpace(input.Phone),
		Address:     strings.TrimSpace(input.Address),
		IsActive:    active,
		CanDeliver:  input.CanDeliver,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCollege(ctx, input.CollegeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "college does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load college")
		}
		exists, err := repo.StationaryExists(ctx, shop.Email, shop.Phone)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stationary")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "stationary already exists")
		}
		if err := repo.CreateStationary(ctx, shop); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "stationary already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stationary")
		}

		rates := &models.PrintingRate{StationaryID: shop.ID}
		if input.Rates != nil {
			rates.ColorRate = input.Rates.ColorRate
			rates.BWRate = input.Rates.BWRate
			rates.DuplexExtra = input.Rates.DuplexExtra
			rates.HardbindRate = input.Rates.HardbindRate
			rates.SpiralRate = input.Rates.SpiralRate
		}
		if err := repo.CreatePrintingRates(ctx, rates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create printing rates")
		}
		shop.Rates = rates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return StationaryFromModel(shop), nil
}

func (s *service) StationaryForOwner(ctx context.Context, ownerID uuid.UUID) (*StationaryDTO, error) {
	shop, err := s.ownerShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return StationaryFromModel(shop), nil
}

func (s *service) GetRates(ctx context.Context, ownerID uuid.UUID) (*PrintingRatesDTO, error) {
	shop, err := s.ownerShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if shop.Rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "printing rates not found for this stationary")
	}
	return RatesFromModel(shop.Rates), nil
}

func (s *service) UpdateRates(ctx context.Context, ownerID uuid.UUID, input UpdateRatesInput) (*PrintingRatesDTO, error) {
	shop, err := s.ownerShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if shop.Rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "printing rates not found for this stationary")
	}
	updates := input.updates()
	for column, value := range updates {
		if value.(int64) < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rates must not be negative").
				WithDetails(map[string]any{"field": column})
		}
	}
	if err := s.repo.UpdateRates(ctx, shop.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update printing rates")
	}
	rates, err := s.repo.FindRates(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload printing rates")
	}
	return RatesFromModel(rates), nil
}

func (s *service) SetShopStatus(ctx context.Context, ownerID uuid.UUID, active bool) (*StationaryDTO, error) {
	shop, err := s.ownerShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, shop.ID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop status")
	}
	shop.IsActive = active
	return StationaryFromModel(shop), nil
}

func (s *service) ownerShop(ctx context.Context, ownerID uuid.UUID) (*models.Stationary, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	shop, err := s.repo.FindStationaryByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stationary not found for this owner")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stationary")
	}
	return shop, nil
}
