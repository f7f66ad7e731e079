// Package auth protects the API with a single admin credential and
// short-lived JWT access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Config holds the admin credential and token settings. PasswordHash is a
// bcrypt hash; a plaintext password never lives in config.
type Config struct {
	Username      string        `json:"username"`
	PasswordHash  string        `json:"password_hash"`
	JWTSecret     string        `json:"jwt_secret"`
	TokenDuration time.Duration `json:"-"`
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager handles login and token validation.
type Manager struct {
	config Config
}

// NewManager creates a new auth manager
func NewManager(config Config) *Manager {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	return &Manager{config: config}
}

// Login checks the credential and issues an access token.
func (m *Manager) Login(username, password string) (string, error) {
	if username != m.config.Username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.config.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return m.generateToken(username)
}

func (m *Manager) generateToken(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenDuration)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "signal-bot",
		},
	})

	signedToken, err := token.SignedString([]byte(m.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateToken validates an access token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenDuration returns the access token lifetime in seconds.
func (m *Manager) TokenDuration() int64 {
	return int64(m.config.TokenDuration.Seconds())
}

// HashPassword produces a bcrypt hash for the config file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
