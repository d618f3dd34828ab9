package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the session token payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for userID valid for 24 hours.
func GenerateToken(userID uuid.UUID) (string, error) {
	secret, err := jwtSecretFromEnv()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies a signed token and returns the user id it was issued
// for. Tokens without an expiry are rejected.
func ParseToken(signed string) (uuid.UUID, error) {
	secret, err := jwtSecretFromEnv()
	if err != nil {
		return uuid.Nil, err
	}
	var claims Claims
	_, err = jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
