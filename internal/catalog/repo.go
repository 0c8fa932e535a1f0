package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
)

// Repository reads and writes colleges, shops and their rate cards.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateCollege(ctx context.Context, college *models.College) error {
	return r.db.WithContext(ctx).Create(college).Error
}

func (r *Repository) FindCollege(ctx context.Context, id uuid.UUID) (*models.College, error) {
	var college models.College
	if err := r.db.WithContext(ctx).First(&college, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

func (r *Repository) FindCollegeByEmail(ctx context.Context, email string) (*models.College, error) {
	var college models.College
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&college).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

// ListColleges returns colleges newest first. Empty filters match everything.
func (r *Repository) ListColleges(ctx context.Context, country, state string) ([]models.College, error) {
	query := r.db.WithContext(ctx).Model(&models.College{})
	if country != "" {
		query = query.Where("LOWER(country) = LOWER(?)", country)
	}
	if state != "" {
		query = query.Where("LOWER(state) = LOWER(?)", state)
	}
	var colleges []models.College
	err := query.Order("created_at DESC").Find(&colleges).Error
	return colleges, err
}

func (r *Repository) CreateStationary(ctx context.Context, shop *models.Stationary) error {
	return r.db.WithContext(ctx).Omit("Rates").Create(shop).Error
}

func (r *Repository) CreatePrintingRates(ctx context.Context, rates *models.PrintingRate) error {
	return r.db.WithContext(ctx).Create(rates).Error
}

func (r *Repository) FindStationary(ctx context.Context, id uuid.UUID) (*models.Stationary, error) {
	var shop models.Stationary
	if err := r.db.WithContext(ctx).Preload("Rates").First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindStationaryByOwner resolves the shop operated by ownerID.
func (r *Repository) FindStationaryByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Stationary, error) {
	var shop models.Stationary
	if err := r.db.WithContext(ctx).Preload("Rates").Where("owner_id = ?", ownerID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *Repository) StationaryExists(ctx context.Context, email, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Stationary{}).
		Where("email = ? OR phone = ?", email, phone).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListStationariesByCollege(ctx context.Context, collegeID uuid.UUID, activeOnly bool) ([]models.Stationary, error) {
	query := r.db.WithContext(ctx).Preload("Rates").Where("college_id = ?", collegeID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var shops []models.Stationary
	err := query.Order("name ASC").Find(&shops).Error
	return shops, err
}

func (r *Repository) FindRates(ctx context.Context, stationaryID uuid.UUID) (*models.PrintingRate, error) {
	var rates models.PrintingRate
	if err := r.db.WithContext(ctx).First(&rates, "stationary_id = ?", stationaryID).Error; err != nil {
		return nil, err
	}
	return &rates, nil
}

func (r *Repository) UpdateRates(ctx context.Context, stationaryID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PrintingRate{}).
		Where("stationary_id = ?", stationaryID).
		Updates(updates).Error
}

func (r *Repository) SetActive(ctx context.Context, stationaryID uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Stationary{}).
		Where("id = ?", stationaryID).
		Update("is_active", active).Error
}
