package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

// OwnerRegisterService lets an administrator create shop owner accounts.
type OwnerRegisterService interface {
	RegisterOwner(ctx context.Context, req RegisterOwnerRequest) (*users.UserDTO, error)
}

type OwnerRegisterServiceParams struct {
	DB             *db.Client
	Colleges       collegeLookup
	PasswordConfig config.PasswordConfig
}

type ownerRegisterService struct {
	db       *db.Client
	users    *users.Repository
	colleges collegeLookup
	password config.PasswordConfig
}

func NewOwnerRegisterService(p OwnerRegisterServiceParams) (OwnerRegisterService, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("owner register: database client is required")
	case p.Colleges == nil:
		return nil, errors.New("owner register: college lookup is required")
	}
	return &ownerRegisterService{
		db:       p.DB,
		users:    users.NewRepository(p.DB.DB()),
		colleges: p.Colleges,
		password: p.PasswordConfig,
	}, nil
}

// RegisterOwner skips email verification unless the admin asks for it.
func (s *ownerRegisterService) RegisterOwner(ctx context.Context, req RegisterOwnerRequest) (*users.UserDTO, error) {
	in := signup{name: req.Name, email: req.Email, password: req.Password, collegeID: req.CollegeID}
	hashed, err := in.hash(ctx, s.colleges, s.password)
	if err != nil {
		return nil, err
	}
	verified := req.IsVerified == nil || *req.IsVerified

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		created, err = insertAccount(ctx, s.users.WithTx(tx), users.CreateUserDTO{
			Name:         in.name,
			Email:        in.email,
			Phone:        req.Phone,
			PasswordHash: hashed,
			Role:         enums.UserRoleOwner,
			CollegeID:    &in.collegeID,
			IsVerified:   verified,
		}, ownerTaken)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}

func ownerTaken(*models.User) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "owner already exists")
}
