package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/users"
	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
	"github.com/campusprint/campusprint-backend/pkg/outbox/payloads"
	redisclient "github.com/campusprint/campusprint-backend/pkg/redis"
	"github.com/campusprint/campusprint-backend/pkg/security"
)

const otpDigits = 6

// OTPStore keeps the pending code per email plus a counter of wrong guesses.
type OTPStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	EmailOTPKey(email string) string
	EmailOTPAttemptsKey(email string) string
}

type collegeLookup interface {
	FindCollege(ctx context.Context, id uuid.UUID) (*models.College, error)
}

// RegisterService signs students up. Accounts stay unverified until the
// emailed code is confirmed.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
	ResendOTP(ctx context.Context, req ResendOTPRequest) error
}

type RegisterServiceParams struct {
	DB             *db.Client
	Colleges       collegeLookup
	Outbox         outbox.Emitter
	OTPStore       OTPStore
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
}

type registerService struct {
	db       *db.Client
	users    *users.Repository
	colleges collegeLookup
	outbox   outbox.Emitter
	otp      OTPStore
	password config.PasswordConfig
	codes    config.OTPConfig
	now      func() time.Time
}

func NewRegisterService(p RegisterServiceParams) (RegisterService, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("register: database client is required")
	case p.Colleges == nil:
		return nil, errors.New("register: college lookup is required")
	case p.Outbox == nil:
		return nil, errors.New("register: outbox emitter is required")
	case p.OTPStore == nil:
		return nil, errors.New("register: otp store is required")
	}
	return &registerService{
		db:       p.DB,
		users:    users.NewRepository(p.DB.DB()),
		colleges: p.Colleges,
		outbox:   p.Outbox,
		otp:      p.OTPStore,
		password: p.PasswordConfig,
		codes:    p.OTPConfig,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	in := signup{name: req.Name, email: req.Email, password: req.Password, collegeID: req.CollegeID}
	hashed, err := in.hash(ctx, s.colleges, s.password)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		created, err = insertAccount(ctx, s.users.WithTx(tx), users.CreateUserDTO{
			Name:         in.name,
			Email:        in.email,
			PasswordHash: hashed,
			Role:         enums.UserRoleStudent,
			CollegeID:    &in.collegeID,
		}, studentTaken)
		if err != nil {
			return err
		}
		return s.issueCode(ctx, tx, created)
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}

// studentTaken tells a returning student whether to log in or finish
// verification.
func studentTaken(existing *models.User) error {
	if existing != nil && !existing.IsVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "student already exists, please verify your account")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "student already exists, please login")
}

// ResendOTP replaces the pending code of an unverified account.
func (s *registerService) ResendOTP(ctx context.Context, req ResendOTPRequest) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := findAccount(ctx, s.users.WithTx(tx), normalizeEmail(req.Email))
		if err != nil {
			return err
		}
		if user.IsVerified {
			return pkgerrors.New(pkgerrors.CodeValidation, "account is already verified")
		}
		return s.issueCode(ctx, tx, user)
	})
}

// VerifyEmail counts every attempt before comparing, so guesses past the
// limit fail even when correct. A new code resets the counter.
func (s *registerService) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	email, code := normalizeEmail(req.Email), strings.TrimSpace(req.OTP)
	if email == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email and otp are required")
	}
	codeKey, attemptsKey := s.otp.EmailOTPKey(email), s.otp.EmailOTPAttemptsKey(email)

	attempts, err := s.otp.IncrWithTTL(ctx, attemptsKey, s.codes.EmailTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count otp attempts")
	}
	if limit := s.codes.EmailMaxRetries; limit > 0 && attempts > int64(limit) {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, request a new code")
	}

	stored, err := s.otp.Get(ctx, codeKey)
	switch {
	case errors.Is(err, redisclient.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeValidation, "otp expired or not requested")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp")
	case !security.ConstantTimeEqual(stored, code):
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
	}

	user, err := findAccount(ctx, s.users, email)
	if err != nil {
		return err
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
	}
	if err := s.otp.Del(ctx, codeKey, attemptsKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear otp")
	}
	return nil
}

// issueCode stores a fresh code, resets the attempt counter and queues the
// email in tx.
func (s *registerService) issueCode(ctx context.Context, tx *gorm.DB, user *models.User) error {
	code, err := security.GenerateNumericCode(otpDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	ttl := s.codes.EmailTTL
	if err := s.otp.Set(ctx, s.otp.EmailOTPKey(user.Email), code, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp")
	}
	if err := s.otp.Del(ctx, s.otp.EmailOTPAttemptsKey(user.Email)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset otp attempts")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEmailOTPRequested,
		AggregateType: enums.AggregateUser,
		AggregateID:   user.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
		Data: payloads.EmailOTPRequestedEvent{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Code:      code,
			ExpiresAt: s.now().Add(ttl),
		},
	})
}
