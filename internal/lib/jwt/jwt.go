package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims is the claim set the posto backend encodes into access tokens.
type CustomClaims struct {
	UserID             int64 `json:"user_id"`
	IsFuncionarioPosto bool  `json:"is_funcionario_posto"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// DecodeTokenPayload decodes the claims of a token without verifying its
// signature. The console never holds the backend's signing secret; the
// backend re-validates every token on each request, so the client only
// needs to read the payload.
func DecodeTokenPayload(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token")
	}

	token, _, err := parser.ParseUnverified(tokenString, &CustomClaims{})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// IsExpired reports whether the token's exp claim is in the past.
// An absent, malformed or claim-less token counts as expired.
func IsExpired(tokenString string) bool {
	claims, err := DecodeTokenPayload(tokenString)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Before(time.Now())
}
