package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:   "secret",
		Issuer:   "https://auth.example.com",
		Audience: "authenticated",
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), time.Hour, AccessTokenPayload{
		UserID:   userID,
		Email:    "ana@example.com",
		FullName: "Ana Ruiz",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	got, err := claims.UserID()
	if err != nil || got != userID {
		t.Fatalf("expected user %s, got %s err=%v", userID, got, err)
	}
	if claims.Email != "ana@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.DisplayName() != "Ana Ruiz" {
		t.Fatalf("unexpected display name %q", claims.DisplayName())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch %q", claims.Issuer)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestParseAccessTokenRejectsWrongSecretAndAudience(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), time.Hour, AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wrongSecret := cfg
	wrongSecret.Secret = "other"
	if _, err := ParseAccessToken(wrongSecret, token); err == nil {
		t.Fatalf("expected signature failure")
	}

	wrongAudience := cfg
	wrongAudience.Audience = "service_role"
	if _, err := ParseAccessToken(wrongAudience, token); err == nil {
		t.Fatalf("expected audience failure")
	}
}

func TestParseAccessTokenRejectsNonUUIDSubject(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatalf("expected subject validation failure")
	}
}

func TestDisplayNameFallsBackToEmailLocalPart(t *testing.T) {
	claims := &AccessTokenClaims{Email: "luis@example.com"}
	if got := claims.DisplayName(); got != "luis" {
		t.Fatalf("expected luis, got %q", got)
	}
	claims.UserMetadata.Name = "Luis"
	if got := claims.DisplayName(); got != "Luis" {
		t.Fatalf("expected metadata name, got %q", got)
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	if _, err := MintAccessToken(config.JWTConfig{}, time.Now(), time.Hour, AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), time.Hour, AccessTokenPayload{}); err == nil {
		t.Fatalf("expected missing user error")
	}
}
