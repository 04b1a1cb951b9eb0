package auth

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator is an optional bearer-token alternative to API keys,
// kept available for deployments that front the server with an identity
// provider rather than static keys.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator builds an authenticator validating HS256 tokens
// signed with secret, optionally constrained to a specific issuer.
func NewJWTAuthenticator(secret []byte, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, issuer: issuer}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	raw := extractBearer(r)
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub = "jwt-subject"
	}
	return &Principal{ID: sub, Source: "jwt"}, nil
}
