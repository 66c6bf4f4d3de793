package jwt

import (
	"fmt"
	"strings"
	"time"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/golang-jwt/jwt/v4"
)

const (
	bearerPrefix = "Bearer "
	issuer       = "joint-account-service"
)

// claims binds a token to a registered user.
type claims struct {
	jwt.RegisteredClaims
	UserID user.ID `json:"uid"`
}

// BuildString creates a signed bearer token for the given user.
func BuildString(userID user.ID, secret string, tokenExp time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExp)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return bearerPrefix + tokenString, nil
}

// GetUserID extracts the user ID from a bearer token.
// Every parse failure is reported as errs.ErrUnauthorized.
func GetUserID(tokenString, secret string) (user.ID, error) {
	c := new(claims)

	tokenString = strings.TrimPrefix(tokenString, bearerPrefix)

	token, err := jwt.ParseWithClaims(tokenString, c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
	if err != nil {
		return 0, fmt.Errorf("%w: parse token: %w", errs.ErrUnauthorized, err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	if !c.VerifyIssuer(issuer, true) {
		return 0, fmt.Errorf("%w: unknown issuer %q", errs.ErrUnauthorized, c.Issuer)
	}

	return c.UserID, nil
}
