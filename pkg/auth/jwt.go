package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims
type Claims struct {
	PhoneNumber string `json:"phoneNumber"`
	TokenType   string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access and refresh tokens with separate secrets
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// GenerateAccessToken creates a short-lived access token for a phone number
func (j *JWTManager) GenerateAccessToken(phoneNumber string) (string, error) {
	return j.sign(phoneNumber, TokenTypeAccess, j.accessSecret, j.accessExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token for a phone number
func (j *JWTManager) GenerateRefreshToken(phoneNumber string) (string, error) {
	return j.sign(phoneNumber, TokenTypeRefresh, j.refreshSecret, j.refreshExpiry)
}

// ValidateAccessToken parses and validates an access token
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.accessSecret)
}

// ValidateRefreshToken parses and validates a refresh token
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.refreshSecret)
}

// AccessExpiry is the lifetime of issued access tokens
func (j *JWTManager) AccessExpiry() time.Duration {
	return j.accessExpiry
}

func (j *JWTManager) sign(phoneNumber, tokenType string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		PhoneNumber: phoneNumber,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   phoneNumber,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "otpwatch",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTManager) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.PhoneNumber == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
