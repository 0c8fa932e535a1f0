package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID       contextKey = "user_id"
	ctxRole         contextKey = "actor_role"
	ctxStationaryID contextKey = "stationary_id"
	ctxCollegeID    contextKey = "college_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

// StationaryIDFromContext returns the shop an owner's token is bound to.
func StationaryIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxStationaryID)
}

func CollegeIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxCollegeID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

// WithStationaryID injects the owner's shop identifier for downstream handlers.
func WithStationaryID(ctx context.Context, stationaryID string) context.Context {
	return withValue(ctx, ctxStationaryID, stationaryID)
}

func WithCollegeID(ctx context.Context, collegeID string) context.Context {
	return withValue(ctx, ctxCollegeID, collegeID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserUUID parses the authenticated user id for handlers behind Auth.
func UserUUID(ctx context.Context) (uuid.UUID, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func StationaryUUID(ctx context.Context) (uuid.UUID, error) {
	raw := StationaryIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "stationary context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid stationary id")
	}
	return id, nil
}

func CollegeUUID(ctx context.Context) *uuid.UUID {
	id, err := uuid.Parse(CollegeIDFromContext(ctx))
	if err != nil {
		return nil
	}
	return &id
}
