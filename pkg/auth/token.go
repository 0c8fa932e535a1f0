package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

var (
	ErrSecretMissing = errors.New("jwt secret is required")
	ErrIssuerMissing = errors.New("jwt issuer is required")
)

var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs an HS256 access token that expires
// cfg.ExpirationMinutes after now. Owner tokens must name their shop.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrSecretMissing
	case cfg.Issuer == "":
		return "", ErrIssuerMissing
	case cfg.ExpirationMinutes <= 0:
		return "", fmt.Errorf("jwt expiration must be positive, got %d minutes", cfg.ExpirationMinutes)
	}
	if err := payload.validate(); err != nil {
		return "", err
	}

	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	signed, err := jwt.NewWithClaims(signingMethod, payload.claims(cfg.Issuer, now, ttl)).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	))
}

// ParseAccessTokenAllowExpired still checks signature and issuer but skips the
// time based claims, so refresh and logout can read the session id of a token
// that has just lapsed.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithoutClaimsValidation(),
	))
}

// IsExpired reports whether a parse failed only because the token lapsed.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

func parse(cfg config.JWTConfig, token string, parser *jwt.Parser) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretMissing
	}
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p AccessTokenPayload) validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("access token needs a user id")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid user role %q", p.Role)
	}
	if p.Role == enums.UserRoleOwner && p.StationaryID == nil {
		return errors.New("owner tokens require a stationary id")
	}
	return nil
}

func (p AccessTokenPayload) claims(issuer string, now time.Time, ttl time.Duration) AccessTokenClaims {
	jti := strings.TrimSpace(p.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	return AccessTokenClaims{
		UserID:       p.UserID,
		Email:        p.Email,
		Role:         p.Role,
		CollegeID:    p.CollegeID,
		StationaryID: p.StationaryID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   p.UserID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
