package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Email        string
	Role         enums.UserRole
	CollegeID    *uuid.UUID
	StationaryID *uuid.UUID
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID       uuid.UUID      `json:"user_id"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	CollegeID    *uuid.UUID     `json:"college_id,omitempty"`
	StationaryID *uuid.UUID     `json:"stationary_id,omitempty"`
	jwt.RegisteredClaims
}
