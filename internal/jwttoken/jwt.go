// Package jwttoken validates the HS256 access tokens issued by the
// surrounding authentication service. This core never issues tokens; it only
// needs the user id and module entitlements carried in the claims.
package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"maintrack/internal/platform/middleware"
	dErrors "maintrack/pkg/domain-errors"
)

// Claims mirrors the claim set of the external issuer.
type Claims struct {
	UserID  string   `json:"user_id"`
	Modules []string `json:"modules"`
	jwt.RegisteredClaims
}

// Validator checks token signatures and expiry.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken implements middleware.JWTValidator.
func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is missing user_id")
	}

	return &middleware.JWTClaims{UserID: claims.UserID, Modules: claims.Modules}, nil
}
