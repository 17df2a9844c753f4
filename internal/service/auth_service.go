package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates the single configured administrator.
type AuthService struct {
	email     string
	hash      string
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
}

type AuthResult struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expiresAt"`
}

// NewAuthService hashes password once so the plaintext is not kept.
func NewAuthService(email, password, jwtSecret string, ttl time.Duration) (*AuthService, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		email:     strings.ToLower(email),
		hash:      hash,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(s.email)) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	passOK := auth.CheckPassword(password, s.hash)
	if !emailOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	now := s.now()
	token, err := auth.GenerateToken(s.jwtSecret, s.email, auth.RoleAdmin, now, s.ttl)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		Email:     s.email,
		ExpiresAt: now.Add(s.ttl).UTC().Format(time.RFC3339),
	}, nil
}
