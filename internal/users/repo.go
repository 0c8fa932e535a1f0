package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
)

// Repository reads and writes the users table. Lookups return
// gorm.ErrRecordNotFound for unknown rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy bound to tx. A nil tx keeps the current handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects email already lower-cased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// UpdateLastLogin leaves updated_at alone; a login is not a profile change.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.set(ctx, id, map[string]any{"is_verified": true})
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.set(ctx, id, map[string]any{"password_hash": hash})
}

// UpdateProfile writes the non-nil fields only.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone *string) error {
	changes := make(map[string]any, 2)
	if name != nil {
		changes["name"] = *name
	}
	if phone != nil {
		changes["phone"] = *phone
	}
	return r.set(ctx, id, changes)
}

// PhoneInUse reports whether a user other than exclude holds phone.
func (r *Repository) PhoneInUse(ctx context.Context, phone string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("phone = ? AND id <> ?", phone, exclude).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(query, arg).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// set also bumps updated_at. An empty change set is a no-op.
func (r *Repository) set(ctx context.Context, id uuid.UUID, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes).Error
}
