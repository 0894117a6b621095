// Package auth contains the token codec (signing and verifying access and
// refresh JWTs) and password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are embedded in short-lived access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"_id"`
	Email     string `json:"email"`
	FullName  string `json:"fullname"`
	Username  string `json:"username"`
}

// RefreshClaims are embedded in long-lived refresh tokens. The token ID keeps
// two refresh tokens minted within the same second distinct.
type RefreshClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"_id"`
}

func registered(validity time.Duration, id string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}
}

func sign(claims jwt.Claims, secretKey []byte) (string, error) {
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// GenerateAccessToken signs claims with secretKey, valid for validityDuration.
// Any RegisteredClaims already set on claims are replaced.
func GenerateAccessToken(claims AccessClaims, secretKey []byte, validityDuration time.Duration) (string, error) {
	claims.RegisteredClaims = registered(validityDuration, "")
	return sign(claims, secretKey)
}

// GenerateRefreshToken signs a refresh token for accountID.
func GenerateRefreshToken(accountID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return sign(RefreshClaims{
		RegisteredClaims: registered(validityDuration, uuid.NewString()),
		AccountID:        accountID,
	}, secretKey)
}

// ParseAccessToken verifies tokenString and returns its claims.
// Errors are common.ErrTokenExpired, common.ErrMalformedToken or common.ErrInvalidToken.
func ParseAccessToken(tokenString string, secretKey []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken verifies tokenString and returns its claims.
func ParseRefreshToken(tokenString string, secretKey []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	switch {
	case err == nil && token.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrMalformedToken
	default:
		return common.ErrInvalidToken
	}
}
