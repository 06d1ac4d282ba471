package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the identity claims carried by an access token. Subject
// holds the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Email returns the token subject.
func (c *Claims) Email() string {
	return c.Subject
}

// TokenVerifier validates an access token and returns its claims.
// Two implementations exist: the local HS256 service and a JWKS
// verifier for tokens minted by an external identity provider.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*Claims, error)
	Close() error
}
