package app

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hotel-concierge/internal/pkg/jwtutil"
)

var (
	ErrAuthDisabled      = errors.New("admin login is not enabled")
	ErrInvalidCredential = errors.New("invalid admin password")
)

const AdminSubject = "admin"

// AuthService guards the staff dashboard with a single bcrypt password.
type AuthService struct {
	passwordHash  string
	jwtSecret     string
	jwtExpiration time.Duration
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthService(passwordHash, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	if jwtExpiration <= 0 {
		jwtExpiration = 2 * time.Hour
	}
	return &AuthService{
		passwordHash:  strings.TrimSpace(passwordHash),
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Enabled is false when no password hash is configured; admin routes are
// then open.
func (s *AuthService) Enabled() bool {
	return s.passwordHash != ""
}

func (s *AuthService) Login(password string) (*AuthResult, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	if password == "" {
		return nil, ErrInvalidInput
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	expiresAt := time.Now().Add(s.jwtExpiration)
	token, err := jwtutil.GenerateToken(s.jwtSecret, AdminSubject, expiresAt)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) Secret() string {
	return s.jwtSecret
}

func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
