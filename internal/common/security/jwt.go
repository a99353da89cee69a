package security

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenAuthority issues and verifies the bearer tokens used by the API.
// Tokens are HS256 JWTs carrying the user identifier, valid for the
// configured window (30 days by default).
type TokenAuthority struct {
	tokenAuth *jwtauth.JWTAuth
	validity  time.Duration
}

func NewTokenAuthority(secret []byte, validity time.Duration) *TokenAuthority {
	return &TokenAuthority{
		tokenAuth: jwtauth.New("HS256", secret, nil),
		validity:  validity,
	}
}

// Verifier returns the middleware that extracts and verifies a token from
// the Authorization header, placing claims in the request context.
func (a *TokenAuthority) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(a.tokenAuth)
}

func (a *TokenAuthority) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(a.validity).Unix(),
		"iat":     time.Now().Unix(),
	}
	_, tokenString, err := a.tokenAuth.Encode(claims)
	return tokenString, err
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}
