package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone *string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	PhoneInUse(ctx context.Context, phone string, exclude uuid.UUID) (bool, error)
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Phone *string `json:"phone" validate:"omitempty"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Service manages the signed-in user's own account.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
}

type service struct {
	repo        repository
	passwordCfg config.PasswordConfig
}

func NewService(repo repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		input.Name = &name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if !phonePattern.MatchString(phone) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number format, must be 10 digits")
		}
		taken, err := s.repo.PhoneInUse(ctx, phone, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check phone")
		}
		if taken {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone number already in use")
		}
		input.Phone = &phone
	}

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, userID, input.Name, input.Phone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Profile(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if len(input.NewPassword) < security.MinPasswordLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "new password must be at least %d characters long", security.MinPasswordLength)
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}
	if input.CurrentPassword == input.NewPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password cannot be the same as the current password")
	}

	hash, err := security.HashPassword(input.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
