package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/users"
	pkgAuth "github.com/campusprint/campusprint-backend/pkg/auth"
	"github.com/campusprint/campusprint-backend/pkg/auth/session"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

const badCredentialsMessage = "invalid email or password"

func badCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, badCredentialsMessage)
}

// Service logs in students, shop owners and admins.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type stationaryLookup interface {
	FindStationaryByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Stationary, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type ServiceParams struct {
	UserRepo       userRepository
	StationaryRepo stationaryLookup
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	// Password sets the cost of the hash checked when no account matches, so
	// unknown emails take as long as wrong passwords.
	Password config.PasswordConfig
}

type service struct {
	users   userRepository
	shops   stationaryLookup
	session sessionManager
	jwtCfg  config.JWTConfig
	decoy   string
	now     func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.UserRepo == nil:
		return nil, errors.New("auth: user repository is required")
	case p.StationaryRepo == nil:
		return nil, errors.New("auth: stationary repository is required")
	case p.SessionManager == nil:
		return nil, errors.New("auth: session manager is required")
	}
	decoy, err := security.HashPassword(uuid.NewString(), p.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: decoy hash: %w", err)
	}
	return &service{
		users:   p.UserRepo,
		shops:   p.StationaryRepo,
		session: p.SessionManager,
		jwtCfg:  p.JWTConfig,
		decoy:   decoy,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.checkCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := admissible(user); err != nil {
		return nil, err
	}
	shopID, err := s.ownedShop(ctx, user)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &at

	access, refresh, err := s.issueTokens(ctx, user, shopID, at)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		StationaryID: shopID,
		User:         users.FromModel(user),
	}, nil
}

// checkCredentials always runs one password verification, against the decoy
// hash when the email is unknown.
func (s *service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, badCredentials()
	}

	user, err := s.users.FindByEmail(ctx, email)
	hash := s.decoy
	switch {
	case err == nil:
		hash = user.PasswordHash
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user by email")
	}

	ok, err := security.VerifyPassword(password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if user == nil || !ok || !user.IsActive {
		return nil, badCredentials()
	}
	return user, nil
}

// admissible applies the role rules that hold after the password matched.
func admissible(user *models.User) error {
	switch {
	case !user.Role.IsValid():
		return badCredentials()
	case user.Role == enums.UserRoleStudent && !user.IsVerified:
		return pkgerrors.New(pkgerrors.CodeForbidden, "please verify your email before logging in")
	}
	return nil
}

// ownedShop is nil for everyone but owners. An owner without a shop cannot log in.
func (s *service) ownedShop(ctx context.Context, user *models.User) (*uuid.UUID, error) {
	if user.Role != enums.UserRoleOwner {
		return nil, nil
	}
	shop, err := s.shops.FindStationaryByOwner(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stationary is not linked to the user")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find owner stationary")
	}
	id := shop.ID
	return &id, nil
}

// issueTokens mints the access token and stores the refresh session keyed by
// its jti.
func (s *service) issueTokens(ctx context.Context, user *models.User, shopID *uuid.UUID, at time.Time) (string, string, error) {
	jti := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwtCfg, at, pkgAuth.AccessTokenPayload{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		CollegeID:    user.CollegeID,
		StationaryID: shopID,
		JTI:          jti,
	})
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.session.Generate(ctx, jti)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh session")
	}
	return access, refresh, nil
}
