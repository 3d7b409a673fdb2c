package auth

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/chatguard-server/internal/config"
)

const (
	issuer   = "chatguard"
	audience = "chatguard-moderation"
)

var (
	// ErrInvalidCredentials is returned when the moderator password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginDisabled is returned when no secret or password hash is configured.
	ErrLoginDisabled = errors.New("moderator login disabled")
	// ErrForbidden is returned for valid tokens without the moderator role.
	ErrForbidden = errors.New("forbidden")
)

// Service issues and checks moderator tokens.
type Service struct {
	passwordHash string
	jwtConfig    *JWTConfig
}

// NewService creates a Service from configuration. An empty JWT secret
// disables moderation auth entirely.
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		passwordHash: cfg.ModeratorPasswordHash,
		jwtConfig: &JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   issuer,
			Audience: audience,
			TTL:      cfg.TokenTTL,
		},
	}
}

// Enabled reports whether moderation endpoints require a token.
func (s *Service) Enabled() bool {
	return len(s.jwtConfig.Secret) > 0
}

// Login checks the moderator password and returns a signed token.
func (s *Service) Login(password string) (string, error) {
	if !s.Enabled() || s.passwordHash == "" {
		return "", ErrLoginDisabled
	}
	if !ComparePassword(s.passwordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.Issue(RoleModerator)
}

// Issue signs a token for the given role without a password check (CLI use).
func (s *Service) Issue(role string) (string, error) {
	if !s.Enabled() {
		return "", ErrLoginDisabled
	}
	token, err := GenerateToken(s.jwtConfig, role, role)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Authorize validates a bearer token and requires the moderator role.
func (s *Service) Authorize(token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleModerator {
		return nil, ErrForbidden
	}
	return claims, nil
}
