package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// signup is the part of account creation shared by students and owners.
type signup struct {
	name      string
	email     string
	password  string
	collegeID uuid.UUID
}

// hash validates s and returns the password hash for the new account.
func (s *signup) hash(ctx context.Context, colleges collegeLookup, cfg config.PasswordConfig) (string, error) {
	s.name, s.email = strings.TrimSpace(s.name), normalizeEmail(s.email)
	switch {
	case s.name == "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case s.email == "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case len(s.password) < security.MinPasswordLength:
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters long", security.MinPasswordLength)
	}

	_, err := colleges.FindCollege(ctx, s.collegeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "college does not exist")
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load college")
	}

	hashed, err := security.HashPassword(s.password, cfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hashed, nil
}

// insertAccount creates the user unless the email is taken. taken turns the
// existing account into the conflict error returned to the caller; a unique
// violation from a concurrent signup is reported as taken(nil).
func insertAccount(ctx context.Context, repo *users.Repository, dto users.CreateUserDTO, taken func(*models.User) error) (*models.User, error) {
	existing, err := repo.FindByEmail(ctx, dto.Email)
	switch {
	case err == nil:
		return nil, taken(existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	user, err := repo.Create(ctx, dto)
	if db.IsUniqueViolation(err, "") {
		return nil, taken(nil)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}

// findAccount maps a missing row onto CodeNotFound.
func findAccount(ctx context.Context, repo *users.Repository, email string) (*models.User, error) {
	user, err := repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}
