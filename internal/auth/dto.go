package auth

import (
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	StationaryID *uuid.UUID     `json:"stationaryId,omitempty"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest is the student sign-up payload.
type RegisterRequest struct {
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password" validate:"required,min=6"`
	CollegeID uuid.UUID `json:"collegeId" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,len=6"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterOwnerRequest is the admin payload for creating a shop owner account.
type RegisterOwnerRequest struct {
	Name       string    `json:"name" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	Phone      *string   `json:"phone" validate:"omitempty,numeric,len=10"`
	Password   string    `json:"password" validate:"required,min=6"`
	CollegeID  uuid.UUID `json:"collegeId" validate:"required"`
	IsVerified *bool     `json:"isVerified"`
}
