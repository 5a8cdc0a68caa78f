package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds session token claims. Identity is established only by
// signature verification, never by decoding alone.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// JWTService issues, validates and rotates session tokens.
type JWTService struct {
	secret        []byte
	expire        time.Duration
	refreshWindow time.Duration
}

// NewJWTService creates a session token service.
func NewJWTService(secret string, expireHours, refreshWindowHours int) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		expire:        time.Duration(expireHours) * time.Hour,
		refreshWindow: time.Duration(refreshWindowHours) * time.Hour,
	}
}

// Generate creates a new session token for the user.
func (s *JWTService) Generate(userID uuid.UUID, email string) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a session token, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Rotate returns a fresh token when the given claims are inside the refresh
// window before expiry. The second return is false when no rotation is due.
func (s *JWTService) Rotate(claims *Claims) (string, bool, error) {
	if claims.ExpiresAt == nil {
		return "", false, nil
	}
	if time.Until(claims.ExpiresAt.Time) > s.refreshWindow {
		return "", false, nil
	}
	token, err := s.Generate(claims.UserID, claims.Email)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}
