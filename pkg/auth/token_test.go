package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "campusprint", ExpirationMinutes: minutes}
}

func mustMint(t *testing.T, cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) string {
	t.Helper()
	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token
}

func TestOwnerTokenRoundTripsShopAndCollege(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC().Truncate(time.Second)
	owner, shop, college := uuid.New(), uuid.New(), uuid.New()

	claims, err := ParseAccessToken(cfg, mustMint(t, cfg, now, AccessTokenPayload{
		UserID:       owner,
		Email:        "owner@xeroxcorner.in",
		Role:         enums.UserRoleOwner,
		CollegeID:    &college,
		StationaryID: &shop,
		JTI:          "session-1",
	}))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != owner || claims.Subject != owner.String() {
		t.Fatalf("user not carried: %+v", claims)
	}
	if claims.StationaryID == nil || *claims.StationaryID != shop {
		t.Fatalf("stationary id lost")
	}
	if claims.CollegeID == nil || *claims.CollegeID != college {
		t.Fatalf("college id lost")
	}
	if claims.ID != "session-1" || claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected jti %q or issuer %q", claims.ID, claims.Issuer)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("expected expiry 30m after issue, got %v", claims.ExpiresAt.Time)
	}
}

func TestBlankJTIGetsSessionID(t *testing.T) {
	cfg := testJWTConfig(5)
	claims, err := ParseAccessToken(cfg, mustMint(t, cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleStudent,
		JTI:    "   ",
	}))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected generated uuid jti, got %q", claims.ID)
	}
}

func TestExpiredTokenOnlyParsesForRefresh(t *testing.T) {
	cfg := testJWTConfig(15)
	token := mustMint(t, cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleStudent,
	})

	_, err := ParseAccessToken(cfg, token)
	if !IsExpired(err) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("expired token should parse for refresh: %v", err)
	}
	if claims.Role != enums.UserRoleStudent {
		t.Fatalf("unexpected role %s", claims.Role)
	}
}

func TestParseRejectsForgedTokens(t *testing.T) {
	cfg := testJWTConfig(10)
	valid := mustMint(t, cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss":  cfg.Issuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"role": string(enums.UserRoleAdmin),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build unsigned token: %v", err)
	}
	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"

	cases := map[string]struct {
		cfg   config.JWTConfig
		token string
	}{
		"tampered signature": {cfg: cfg, token: valid + "x"},
		"alg none":           {cfg: cfg, token: unsigned},
		"wrong issuer":       {cfg: otherIssuer, token: valid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAccessToken(tc.cfg, tc.token); err == nil {
				t.Fatal("expected parse error")
			}
			if _, err := ParseAccessTokenAllowExpired(tc.cfg, tc.token); err == nil {
				t.Fatal("refresh parse must still verify the token")
			}
		})
	}
}

func TestMintRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"no secret":          {cfg: config.JWTConfig{Issuer: "campusprint", ExpirationMinutes: 5}, payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStudent}},
		"zero ttl":           {cfg: testJWTConfig(0), payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStudent}},
		"empty role":         {cfg: testJWTConfig(5), payload: AccessTokenPayload{UserID: uuid.New()}},
		"missing user":       {cfg: testJWTConfig(5), payload: AccessTokenPayload{Role: enums.UserRoleStudent}},
		"owner without shop": {cfg: testJWTConfig(5), payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleOwner}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := MintAccessToken(tc.cfg, time.Now(), tc.payload); err == nil {
				t.Fatal("expected mint error")
			}
		})
	}

	if _, err := ParseAccessToken(config.JWTConfig{}, "x"); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}
