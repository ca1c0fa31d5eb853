package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidTabToken = errors.New("invalid tab token")

type tabClaims struct {
	jwt.RegisteredClaims
}

// NewTabKey mints a random key identifying one browser tab session.
func NewTabKey() string {
	return uuid.NewString()
}

// SignTabToken wraps tabKey into an HS256 token so visitors cannot pick
// another tab's key.
func SignTabToken(tabKey, secret string) (string, error) {
	if tabKey == "" {
		return "", errors.New("empty tab key")
	}
	claims := tabClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  tabKey,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseTabToken verifies token and returns the tab key inside it.
func ParseTabToken(token, secret string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &tabClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTabToken, err)
	}
	claims, ok := parsed.Claims.(*tabClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidTabToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidTabToken
	}
	return claims.Subject, nil
}
