package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/chatguard-server/internal/config"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return NewService(config.AuthConfig{
		JWTSecret:             "test-secret-change-me",
		ModeratorPasswordHash: hash,
		TokenTTL:              time.Hour,
	})
}

func TestLoginIssuesModeratorToken(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.Login("correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.Authorize(token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if claims.Role != RoleModerator || claims.Issuer != issuer {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.Login("wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginDisabledWithoutConfig(t *testing.T) {
	svc := NewService(config.AuthConfig{})
	if svc.Enabled() {
		t.Fatal("auth should be disabled without a secret")
	}
	if _, err := svc.Login("anything"); !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("expected ErrLoginDisabled, got %v", err)
	}

	noHash := NewService(config.AuthConfig{JWTSecret: "s", TokenTTL: time.Hour})
	if _, err := noHash.Login("anything"); !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("expected ErrLoginDisabled, got %v", err)
	}
}

func TestAuthorizeRejectsOtherRoles(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.Issue("viewer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Authorize(token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthorizeRejectsForeignSecret(t *testing.T) {
	svc := newTestAuthService(t)
	other := NewService(config.AuthConfig{JWTSecret: "another-secret", TokenTTL: time.Hour})

	token, err := other.Issue(RoleModerator)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Authorize(token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestAuthorizeRejectsExpired(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: issuer, Audience: audience, TTL: -time.Minute}
	token, err := GenerateToken(cfg, RoleModerator, RoleModerator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
